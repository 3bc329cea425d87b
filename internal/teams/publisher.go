// Package teams posts Adaptive Card messages to a Teams incoming webhook.
package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/teams-newsbot/internal/logging"
)

// DefaultTimeout bounds each webhook POST.
const DefaultTimeout = 10 * time.Second

// statusLegacyAccepted is the literal "1" some Teams connector versions
// reported for accepted posts. It is not a valid HTTP status and never
// arrives over net/http, but it has always counted as success.
const statusLegacyAccepted = 1

const maxErrorBody = 500

// PublishError describes a rejected or failed webhook post.
type PublishError struct {
	StatusCode int
	Message    string
	Body       string
	Cause      error
}

func (e *PublishError) Error() string {
	msg := e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *PublishError) Unwrap() error {
	return e.Cause
}

// Result is the outcome of one Publish call. Err is set whenever OK is false.
type Result struct {
	OK         bool
	DryRun     bool
	StatusCode int
	Err        error
}

// Options configures a Publisher.
type Options struct {
	DryRun  bool
	Timeout time.Duration
	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// Publisher sends payloads to one webhook URL.
type Publisher struct {
	webhookURL string
	dryRun     bool
	client     *http.Client
}

// NewPublisher creates a publisher for webhookURL.
func NewPublisher(webhookURL string, opts Options) *Publisher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Publisher{webhookURL: webhookURL, dryRun: opts.DryRun, client: client}
}

// DryRun reports whether posts are only logged.
func (p *Publisher) DryRun() bool {
	return p.dryRun
}

// Publish posts payload as JSON. Failures are logged and returned in the
// Result, never as a panic or separate error.
func (p *Publisher) Publish(ctx context.Context, payload any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return p.fail(&PublishError{Message: "failed to marshal payload", Cause: err})
	}

	if p.dryRun {
		logging.InfoWithFields("DRY RUN - would post to Teams", logging.Fields{
			"payload_bytes": len(body),
		})
		logging.Log.Debug(string(body))
		return Result{OK: true, DryRun: true}
	}

	if p.webhookURL == "" {
		return p.fail(&PublishError{Message: "webhook URL is not configured"})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.webhookURL, bytes.NewReader(body))
	if err != nil {
		return p.fail(&PublishError{Message: "failed to create webhook request", Cause: err})
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.fail(&PublishError{Message: "webhook request failed", Cause: err})
	}
	defer func() { _ = resp.Body.Close() }()

	if !accepted(resp.StatusCode) {
		sample, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		result := p.fail(&PublishError{
			StatusCode: resp.StatusCode,
			Message:    "webhook rejected post",
			Body:       strings.TrimSpace(string(sample)),
		})
		result.StatusCode = resp.StatusCode
		return result
	}

	logging.InfoWithFields("posted to Teams", logging.Fields{"status": resp.StatusCode})
	return Result{OK: true, StatusCode: resp.StatusCode}
}

func accepted(status int) bool {
	switch status {
	case http.StatusOK, http.StatusAccepted, statusLegacyAccepted:
		return true
	}
	return false
}

func (p *Publisher) fail(err error) Result {
	logging.ErrorWithFields("failed to post to Teams", logging.Fields{"error": err.Error()})
	return Result{Err: err}
}
