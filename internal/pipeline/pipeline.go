// Package pipeline runs the news and X-share batch jobs end to end.
package pipeline

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/teams-newsbot/internal/teams"
)

// ErrNothingPublished means the run finished without posting anything.
// Commands map it to exit status 1.
var ErrNothingPublished = errors.New("nothing was published")

// Status is the final state of one item in a run.
type Status string

const (
	StatusPublished Status = "published"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome records what happened to one article or email.
type Outcome struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Publisher posts one card payload.
type Publisher interface {
	Publish(ctx context.Context, payload any) teams.Result
}

// countStatus returns how many outcomes have status s.
func countStatus(outcomes []Outcome, s Status) int {
	n := 0
	for _, o := range outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

func newRunID() string {
	return uuid.NewString()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
