// Package rewriting turns shared X posts into short introduction texts for
// the Teams channel.
package rewriting

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jonathan/teams-newsbot/internal/cards"
	"github.com/jonathan/teams-newsbot/internal/llm"
	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/prompts"
)

const (
	// DefaultTimeout bounds one rewrite request.
	DefaultTimeout = 30 * time.Second
	temperature    = 0.7
	maxTokens      = 500
)

// Rewriter asks the LLM for an introduction text. A nil client disables it.
type Rewriter struct {
	client  llm.Client
	timeout time.Duration
}

// New creates a Rewriter. client may be nil.
func New(client llm.Client) *Rewriter {
	return &Rewriter{client: client, timeout: DefaultTimeout}
}

// Enabled reports whether an LLM is configured.
func (r *Rewriter) Enabled() bool {
	return r != nil && r.client != nil
}

// Rewrite returns the LLM's version of text, or text itself when the input
// is empty or media-only, when no LLM is configured, or when the request
// fails or comes back empty.
func (r *Rewriter) Rewrite(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(text) == cards.MediaOnlyText {
		return text
	}
	if !r.Enabled() {
		logging.Log.Warn("LLM not configured, using original text")
		return text
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	completion, err := r.client.GenerateContent(ctx, llm.Request{
		System:      prompts.MustGet(prompts.Rewriting, "rewrite-system"),
		Prompt:      prompts.Render(prompts.Rewriting, "rewrite-share", map[string]string{"Text": text}),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		logging.ErrorWithFields("failed to rewrite text with LLM", logging.Fields{"error": err.Error()})
		return text
	}

	rewritten := parseCompletion(completion)
	if rewritten == "" {
		logging.Log.Warn("LLM returned an empty rewrite, using original text")
		return text
	}

	logging.Log.Info("text successfully rewritten by LLM")
	return rewritten
}

// parseCompletion strips a surrounding code fence and unwraps {"text": ...}
// replies.
func parseCompletion(completion string) string {
	text := strings.TrimSpace(completion)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
			lines = lines[1:]
		}
		if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
			lines = lines[:len(lines)-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	var wrapped struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Text != "" {
		return strings.TrimSpace(wrapped.Text)
	}

	return text
}
