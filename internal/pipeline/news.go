package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/jonathan/teams-newsbot/internal/cards"
	"github.com/jonathan/teams-newsbot/internal/feeds"
	"github.com/jonathan/teams-newsbot/internal/filtering"
	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/observability"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// ArticleSource yields the articles of one run.
type ArticleSource interface {
	Collect(ctx context.Context) *feeds.CollectResult
}

// ArticleFilter picks the articles worth posting.
type ArticleFilter interface {
	Select(ctx context.Context, articles []types.Article) *filtering.Selection
}

// NewsOptions wires one news run.
type NewsOptions struct {
	Source    ArticleSource
	Filter    ArticleFilter
	Publisher Publisher
	// PerArticle posts a summary card followed by one card per article
	// instead of a single combined card.
	PerArticle bool
	// HoursBack and MaxEntriesPerFeed are only used in the report.
	HoursBack         int
	MaxEntriesPerFeed int
	Now               func() time.Time
	// Printer receives the run reports; nil disables them.
	Printer *observability.Printer
}

// NewsReport summarises a news run.
type NewsReport struct {
	RunID     string
	Collected *feeds.CollectResult
	Selection *filtering.Selection
	Outcomes  []Outcome
	Published int
}

// RunNews collects, filters and posts articles. It returns
// ErrNothingPublished (possibly wrapped) when no article reached Teams.
func RunNews(ctx context.Context, opts NewsOptions) (*NewsReport, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	report := &NewsReport{RunID: newRunID()}
	fields := logging.Fields{"run_id": report.RunID}
	logging.InfoWithFields("news run started", fields)

	report.Collected = opts.Source.Collect(ctx)
	defer opts.printSummary(report)

	articles := report.Collected.Articles
	if opts.Printer != nil {
		opts.Printer.PrintFeedStats(report.Collected.Stats, opts.HoursBack)
	}
	if len(articles) == 0 {
		logging.ErrorWithFields("no articles collected", fields)
		return report, fmt.Errorf("no articles collected: %w", ErrNothingPublished)
	}

	report.Selection = opts.Filter.Select(ctx, articles)
	if opts.Printer != nil {
		opts.Printer.PrintFiltering(report.Selection)
	}
	selected := report.Selection.Articles
	if len(selected) == 0 {
		logging.WarnWithFields("no relevant articles found after filtering", fields)
		return report, fmt.Errorf("no relevant articles: %w", ErrNothingPublished)
	}

	if opts.PerArticle {
		report.Outcomes = publishEach(ctx, opts.Publisher, selected, len(articles), now())
	} else {
		report.Outcomes = publishCombined(ctx, opts.Publisher, selected, len(articles), now())
	}
	report.Published = countStatus(report.Outcomes, StatusPublished)

	logging.InfoWithFields("news run finished", logging.Fields{
		"run_id":    report.RunID,
		"collected": len(articles),
		"selected":  len(selected),
		"published": report.Published,
		"fallback":  report.Selection.Fallback,
	})

	if report.Published == 0 {
		return report, ErrNothingPublished
	}
	return report, nil
}

func publishCombined(ctx context.Context, pub Publisher, articles []types.Article, total int, now time.Time) []Outcome {
	result := pub.Publish(ctx, cards.ComposeNews(articles, total, now))

	outcomes := make([]Outcome, len(articles))
	for i, a := range articles {
		outcomes[i] = Outcome{ID: a.URL, Title: a.Title, Status: StatusPublished}
		if !result.OK {
			outcomes[i].Status = StatusFailed
			outcomes[i].Reason = errString(result.Err)
		}
	}
	if result.OK {
		logging.InfoWithFields("posted combined card", logging.Fields{"articles": len(articles)})
	}
	return outcomes
}

func publishEach(ctx context.Context, pub Publisher, articles []types.Article, total int, now time.Time) []Outcome {
	if result := pub.Publish(ctx, cards.ComposeSummary(total, len(articles), now)); !result.OK {
		logging.WarnWithFields("summary card was not posted", logging.Fields{"error": errString(result.Err)})
	}

	outcomes := make([]Outcome, 0, len(articles))
	for i, a := range articles {
		result := pub.Publish(ctx, cards.ComposeArticle(a, i+1))
		outcome := Outcome{ID: a.URL, Title: a.Title, Status: StatusPublished}
		if !result.OK {
			outcome.Status = StatusFailed
			outcome.Reason = errString(result.Err)
		} else {
			logging.InfoWithFields("posted article", logging.Fields{"title": a.Title})
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (opts NewsOptions) printSummary(report *NewsReport) {
	if opts.Printer == nil {
		return
	}
	summary := observability.NewsSummary{
		RunID:             report.RunID,
		HoursBack:         opts.HoursBack,
		MaxEntriesPerFeed: opts.MaxEntriesPerFeed,
		Feeds:             report.Collected.Stats,
		Collected:         len(report.Collected.Articles),
		Published:         report.Published,
	}
	if sel := report.Selection; sel != nil {
		summary.SentToLLM = sel.SentToLLM
		summary.Selected = len(sel.Articles)
		summary.Fallback = sel.Fallback
	}
	opts.Printer.PrintNewsSummary(summary)
}
