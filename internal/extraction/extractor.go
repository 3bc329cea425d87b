// Package extraction pulls the shared X post out of a "share via email" message.
package extraction

import (
	"errors"
	"regexp"
	"strings"

	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// ErrNoShareURL is returned when neither the body nor the subject contains
// an X or Twitter status URL.
var ErrNoShareURL = errors.New("no X/Twitter status URL found in email")

// UnextractableText replaces the post text when nothing usable survives cleanup.
const UnextractableText = "[メール本文から抽出できませんでした]"

const (
	// MaxTextRunes caps the extracted post text.
	MaxTextRunes = 500
	maxLines     = 10
	minLineRunes = 4
	postedMarker = "ポストしました:"
)

var statusURLPattern = regexp.MustCompile(`https?://(?:www\.)?(?:twitter\.com|x\.com)/(\w+)/status/(\d+)`)

// boilerplatePatterns are removed in order before the text is split into lines.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)Check out.*?:\s*`),
	regexp.MustCompile(`(?is)Shared from.*?:\s*`),
	regexp.MustCompile(`(?is)From X.*?:\s*`),
	regexp.MustCompile(`(?is).*shared.*tweet.*:\s*`),
	regexp.MustCompile(`(?is)---------- Forwarded message ---------.*?\n`),
	regexp.MustCompile(`(?is)From:.*?\n`),
	regexp.MustCompile(`(?is)Date:.*?\n`),
	regexp.MustCompile(`(?is)Subject:.*?\n`),
	regexp.MustCompile(`(?is)To:.*?\n`),
}

var (
	trailingStatusURL = regexp.MustCompile(`(?s)https?://(?:www\.)?(?:twitter\.com|x\.com)/\S+.*`)
	shortLink         = regexp.MustCompile(`https?://t\.co/\S+`)
)

// Extractor turns mail messages into SocialShareInfo values.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract finds the first status URL in body+" "+subject and derives the
// post text from the body.
func (e *Extractor) Extract(msg types.MailMessage) (*types.SocialShareInfo, error) {
	match := statusURLPattern.FindStringSubmatch(msg.Body + " " + msg.Subject)
	if match == nil {
		logging.WarnWithFields("no X/Twitter URL found in email", logging.Fields{"email_id": msg.ID})
		return nil, ErrNoShareURL
	}

	text := PostText(msg.Body)
	if text == "" {
		text = UnextractableText
		logging.WarnWithFields("could not extract post text from email", logging.Fields{
			"email_id":    msg.ID,
			"body_length": len(msg.Body),
		})
	}

	return &types.SocialShareInfo{
		URL:      match[0],
		Username: match[1],
		TweetID:  match[2],
		Text:     types.TruncateRunes(text, MaxTextRunes),
		Date:     msg.Date,
		EmailID:  msg.ID,
	}, nil
}

// PostText strips share boilerplate, links and trailing content from body
// and returns up to ten meaningful lines joined by newlines. The result is
// empty when nothing qualifies.
func PostText(body string) string {
	text := body
	for _, pattern := range boilerplatePatterns {
		text = pattern.ReplaceAllString(text, "")
	}

	text = trailingStatusURL.ReplaceAllString(text, "")
	text = shortLink.ReplaceAllString(text, "")

	if _, after, found := strings.Cut(text, postedMarker); found {
		text = strings.TrimLeft(after, " \t\r\n\v\f")
	}

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < minLineRunes || strings.HasPrefix(line, "--") {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			break
		}
	}
	return strings.Join(lines, "\n")
}
