package cards

import (
	"strings"
	"time"

	"github.com/jonathan/teams-newsbot/internal/types"
)

// MediaOnlyText stands in for the text of posts that carry only media.
const MediaOnlyText = "[メディアのみの投稿]"

// ComposeShare renders the card for one shared X post. text is the
// (possibly rewritten) body; single newlines are doubled so Teams keeps
// the line breaks.
func ComposeShare(info types.SocialShareInfo, text string, now time.Time) Message {
	if strings.TrimSpace(text) == "" {
		text = MediaOnlyText
	}

	body := []Element{
		TextBlock{
			Type:   typeTextBlock,
			Text:   "🐦 AI News from X - " + now.Format("2006/01/02 15:04:05"),
			Size:   "Large",
			Weight: "Bolder",
			Color:  "Accent",
		},
		TextBlock{
			Type:    typeTextBlock,
			Text:    "@" + info.Username + " の投稿に基づくAI紹介文",
			Size:    "Medium",
			Color:   "Good",
			Spacing: "Small",
		},
		TextBlock{
			Type:    typeTextBlock,
			Text:    strings.ReplaceAll(text, "\n", "\n\n"),
			Size:    "Medium",
			Wrap:    true,
			Spacing: "Medium",
		},
	}

	var actions []Action
	if info.URL != "" {
		actions = append(actions, openURL("Xで開く 🔗", info.URL))
	}
	return newMessage(body, actions...)
}
