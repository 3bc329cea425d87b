package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonathan/teams-newsbot/internal/cards"
	"github.com/jonathan/teams-newsbot/internal/extraction"
	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/mail"
	"github.com/jonathan/teams-newsbot/internal/observability"
	"github.com/jonathan/teams-newsbot/internal/rewriting"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// Mailbox is the subset of Gmail the share run needs.
type Mailbox interface {
	Search(ctx context.Context, query string) ([]string, error)
	Get(ctx context.Context, id string) (types.MailMessage, error)
	MarkRead(ctx context.Context, id string) error
}

// ShareOptions wires one share run.
type ShareOptions struct {
	Mailbox   Mailbox
	Extractor *extraction.Extractor
	Rewriter  *rewriting.Rewriter
	Publisher Publisher

	Address    string
	HoursBack  int
	OnlyUnread bool
	MarkAsRead bool
	MaxEmails  int
	// DryRun suppresses MarkRead; publishing dry-run is the Publisher's concern.
	DryRun   bool
	Location *time.Location
	Now      func() time.Time
	Printer  *observability.Printer
}

// ShareReport summarises a share run.
type ShareReport struct {
	RunID     string
	Query     string
	Found     int
	Outcomes  []Outcome
	Published int
}

// RunShare posts one card per X share email. An empty mailbox is a
// success; otherwise ErrNothingPublished is returned when no card was posted.
func RunShare(ctx context.Context, opts ShareOptions) (*ShareReport, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	extractor := opts.Extractor
	if extractor == nil {
		extractor = extraction.New()
	}

	report := &ShareReport{RunID: newRunID()}
	after := now().In(loc).Add(-time.Duration(opts.HoursBack) * time.Hour)
	report.Query = mail.BuildQuery(opts.Address, after, opts.OnlyUnread)
	logging.DebugWithFields("gmail search", logging.Fields{"run_id": report.RunID, "query": report.Query})

	ids, err := opts.Mailbox.Search(ctx, report.Query)
	if err != nil {
		logging.ErrorWithFields("gmail search failed", logging.Fields{"run_id": report.RunID, "error": err.Error()})
		return report, fmt.Errorf("mailbox search failed: %w", err)
	}
	report.Found = len(ids)

	var messages []types.MailMessage
	for _, id := range ids {
		msg, err := opts.Mailbox.Get(ctx, id)
		if err != nil {
			logging.ErrorWithFields("failed to get email details", logging.Fields{"email_id": id, "error": err.Error()})
			report.Outcomes = append(report.Outcomes, Outcome{ID: id, Status: StatusFailed, Reason: err.Error()})
			continue
		}
		messages = append(messages, msg)
	}
	messages = mail.OldestFirst(messages, opts.MaxEmails)

	if len(messages) == 0 {
		if len(report.Outcomes) == 0 {
			return report, nil
		}
		opts.printSummary(report)
		return report, ErrNothingPublished
	}
	logging.InfoWithFields("processing oldest emails", logging.Fields{"run_id": report.RunID, "count": len(messages)})

	for _, msg := range messages {
		report.Outcomes = append(report.Outcomes, opts.processMessage(ctx, extractor, msg, now()))
	}
	report.Published = countStatus(report.Outcomes, StatusPublished)
	opts.printSummary(report)

	if report.Published == 0 {
		return report, ErrNothingPublished
	}
	logging.InfoWithFields("posted X shares to Teams", logging.Fields{"run_id": report.RunID, "count": report.Published})
	return report, nil
}

func (opts ShareOptions) processMessage(ctx context.Context, extractor *extraction.Extractor, msg types.MailMessage, now time.Time) Outcome {
	outcome := Outcome{ID: msg.ID, Title: msg.Subject}
	logging.InfoWithFields("processing email", logging.Fields{
		"email_id": msg.ID,
		"subject":  types.TruncateRunes(msg.Subject, 50),
		"date":     msg.Date,
	})
	logging.DebugWithFields("email body", logging.Fields{"email_id": msg.ID, "body": msg.Body})

	info, err := extractor.Extract(msg)
	if err != nil {
		outcome.Status = StatusSkipped
		outcome.Reason = err.Error()
		if !errors.Is(err, extraction.ErrNoShareURL) {
			outcome.Status = StatusFailed
		}
		return outcome
	}

	text := opts.Rewriter.Rewrite(ctx, info.Text)
	logging.InfoWithFields("share extracted", logging.Fields{
		"url":      info.URL,
		"username": info.Username,
		"tweet_id": info.TweetID,
		"text":     text,
	})

	result := opts.Publisher.Publish(ctx, cards.ComposeShare(*info, text, now))
	if !result.OK {
		outcome.Status = StatusFailed
		outcome.Reason = errString(result.Err)
		return outcome
	}
	outcome.Status = StatusPublished

	if opts.MarkAsRead {
		if opts.DryRun {
			logging.InfoWithFields("DRY RUN - would mark email as read", logging.Fields{"email_id": msg.ID})
		} else if err := opts.Mailbox.MarkRead(ctx, msg.ID); err != nil {
			logging.ErrorWithFields("failed to mark email as read", logging.Fields{"email_id": msg.ID, "error": err.Error()})
		} else {
			logging.InfoWithFields("marked email as read", logging.Fields{"email_id": msg.ID})
		}
	}
	return outcome
}

func (opts ShareOptions) printSummary(report *ShareReport) {
	if opts.Printer == nil {
		return
	}
	opts.Printer.PrintShareSummary(observability.ShareSummary{
		RunID:     report.RunID,
		Query:     report.Query,
		Found:     report.Found,
		Processed: len(report.Outcomes),
		Published: report.Published,
		Skipped:   countStatus(report.Outcomes, StatusSkipped),
		Failed:    countStatus(report.Outcomes, StatusFailed),
	})
}
