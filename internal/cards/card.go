// Package cards builds the Adaptive Card messages posted to Teams. Every
// function here is pure: the current time is passed in.
package cards

// Adaptive Card constants.
const (
	MessageType    = "message"
	ContentType    = "application/vnd.microsoft.card.adaptive"
	CardVersion    = "1.2"
	CardSchemaURL  = "http://adaptivecards.io/schemas/adaptive-card.json"
	typeCard       = "AdaptiveCard"
	typeTextBlock  = "TextBlock"
	typeColumnSet  = "ColumnSet"
	typeColumn     = "Column"
	typeFactSet    = "FactSet"
	typeActionSet  = "ActionSet"
	typeActionOpen = "Action.OpenUrl"
)

// Message is the webhook payload: one Adaptive Card attachment.
type Message struct {
	Type        string       `json:"type"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment wraps a card.
type Attachment struct {
	ContentType string       `json:"contentType"`
	Content     AdaptiveCard `json:"content"`
}

// AdaptiveCard is the card body.
type AdaptiveCard struct {
	Type    string    `json:"type"`
	Version string    `json:"version"`
	Schema  string    `json:"$schema"`
	Body    []Element `json:"body"`
	Actions []Action  `json:"actions,omitempty"`
}

// Element is anything allowed in a card body.
type Element interface {
	elementType() string
}

// TextBlock renders text. Text is always serialised, even when empty,
// because separator blocks are empty text blocks.
type TextBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Size      string `json:"size,omitempty"`
	Weight    string `json:"weight,omitempty"`
	Color     string `json:"color,omitempty"`
	Wrap      bool   `json:"wrap,omitempty"`
	IsSubtle  bool   `json:"isSubtle,omitempty"`
	Separator bool   `json:"separator,omitempty"`
	Spacing   string `json:"spacing,omitempty"`
}

// ColumnSet lays columns out horizontally.
type ColumnSet struct {
	Type    string   `json:"type"`
	Columns []Column `json:"columns"`
}

// Column is one column of a ColumnSet.
type Column struct {
	Type  string    `json:"type"`
	Width string    `json:"width"`
	Items []Element `json:"items"`
}

// FactSet is a two-column list of title/value pairs.
type FactSet struct {
	Type  string `json:"type"`
	Facts []Fact `json:"facts"`
}

// Fact is one FactSet row.
type Fact struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// ActionSet places actions inline in the body.
type ActionSet struct {
	Type    string   `json:"type"`
	Actions []Action `json:"actions"`
}

// Action is an Action.OpenUrl button.
type Action struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (TextBlock) elementType() string { return typeTextBlock }
func (ColumnSet) elementType() string { return typeColumnSet }
func (FactSet) elementType() string   { return typeFactSet }
func (ActionSet) elementType() string { return typeActionSet }

func newMessage(body []Element, actions ...Action) Message {
	return Message{
		Type: MessageType,
		Attachments: []Attachment{{
			ContentType: ContentType,
			Content: AdaptiveCard{
				Type:    typeCard,
				Version: CardVersion,
				Schema:  CardSchemaURL,
				Body:    body,
				Actions: actions,
			},
		}},
	}
}

func text(s string) TextBlock {
	return TextBlock{Type: typeTextBlock, Text: s}
}

func separator() TextBlock {
	return TextBlock{Type: typeTextBlock, Text: "", Separator: true, Spacing: "Medium"}
}

func openURL(title, url string) Action {
	return Action{Type: typeActionOpen, Title: title, URL: url}
}

func column(width string, items ...Element) Column {
	return Column{Type: typeColumn, Width: width, Items: items}
}

// Card returns the single card carried by m, for inspection.
func (m Message) Card() AdaptiveCard {
	if len(m.Attachments) == 0 {
		return AdaptiveCard{}
	}
	return m.Attachments[0].Content
}
