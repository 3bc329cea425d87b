// Package mail reads X share emails from Gmail.
package mail

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// DefaultTimeout bounds each Gmail API call.
const DefaultTimeout = 30 * time.Second

const (
	userID      = "me"
	pageSize    = 100
	unreadLabel = "UNREAD"
)

// NewService builds an authenticated Gmail service from a client secret
// and a saved token.
func NewService(ctx context.Context, credentialsFile, tokenFile string) (*gmail.Service, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	ts, err := TokenSource(ctx, cfg, tokenFile)
	if err != nil {
		return nil, err
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return svc, nil
}

// Mailbox wraps the three Gmail calls the share pipeline makes.
type Mailbox struct {
	svc     *gmail.Service
	timeout time.Duration
}

// NewMailbox wraps svc.
func NewMailbox(svc *gmail.Service) *Mailbox {
	return &Mailbox{svc: svc, timeout: DefaultTimeout}
}

// BuildQuery returns the search for self-addressed mails mentioning X or
// Twitter since the calendar day of after.
func BuildQuery(address string, after time.Time, onlyUnread bool) string {
	parts := []string{
		"from:" + address,
		"to:" + address,
		"after:" + after.Format("2006/01/02"),
		"(x.com OR twitter.com)",
	}
	if onlyUnread {
		parts = append(parts, "is:unread")
	}
	return strings.Join(parts, " ")
}

// Search returns the ids of every message matching query, following
// pagination.
func (m *Mailbox) Search(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		call := m.svc.Users.Messages.List(userID).Q(query).MaxResults(pageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		callCtx, cancel := context.WithTimeout(ctx, m.timeout)
		resp, err := call.Context(callCtx).Do()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("gmail list failed: %w", err)
		}

		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(ids) > 0 {
		logging.InfoWithFields("found X share emails", logging.Fields{"count": len(ids)})
	}
	return ids, nil
}

// Get fetches one message in full and flattens it.
func (m *Mailbox) Get(ctx context.Context, id string) (types.MailMessage, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	msg, err := m.svc.Users.Messages.Get(userID, id).Format("full").Context(callCtx).Do()
	if err != nil {
		return types.MailMessage{}, fmt.Errorf("gmail get %s failed: %w", id, err)
	}
	return toMailMessage(msg), nil
}

// MarkRead removes the UNREAD label.
func (m *Mailbox) MarkRead(ctx context.Context, id string) error {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	_, err := m.svc.Users.Messages.Modify(userID, id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{unreadLabel},
	}).Context(callCtx).Do()
	if err != nil {
		return fmt.Errorf("gmail modify %s failed: %w", id, err)
	}
	return nil
}

func toMailMessage(msg *gmail.Message) types.MailMessage {
	out := types.MailMessage{
		ID:           msg.Id,
		Snippet:      msg.Snippet,
		InternalDate: msg.InternalDate,
	}
	if msg.Payload == nil {
		return out
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			out.Subject = h.Value
		case "Date":
			out.Date = h.Value
		}
	}
	out.Body = ExtractBody(msg.Payload)
	return out
}

// ExtractBody returns the body of a single-part payload, or the
// concatenated text/plain parts of a multipart one, searched recursively.
func ExtractBody(part *gmail.MessagePart) string {
	if part == nil {
		return ""
	}
	if part.Body != nil && part.Body.Data != "" {
		return decodeBase64URL(part.Body.Data)
	}

	var sb strings.Builder
	for _, p := range part.Parts {
		switch {
		case p.MimeType == "text/plain":
			if p.Body != nil {
				sb.WriteString(decodeBase64URL(p.Body.Data))
			}
		case len(p.Parts) > 0:
			sb.WriteString(ExtractBody(p))
		}
	}
	return sb.String()
}

// decodeBase64URL decodes Gmail's base64url data with or without padding.
// Undecodable input yields what decoded before the error; invalid UTF-8 is
// dropped.
func decodeBase64URL(data string) string {
	raw := strings.TrimRight(data, "=")
	buf := make([]byte, base64.RawURLEncoding.DecodedLen(len(raw)))
	n, _ := base64.RawURLEncoding.Decode(buf, []byte(raw))
	return strings.ToValidUTF8(string(buf[:n]), "")
}

// OldestFirst sorts messages by InternalDate ascending and keeps at most limit.
// A non-positive limit keeps everything.
func OldestFirst(msgs []types.MailMessage, limit int) []types.MailMessage {
	sorted := make([]types.MailMessage, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InternalDate < sorted[j].InternalDate
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func randomState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
