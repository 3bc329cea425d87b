// Package feeds collects recent articles from an ordered list of RSS/Atom sources.
package feeds

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/fetch"
	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// MaxSummaryRunes bounds Article.Summary at ingestion.
const MaxSummaryRunes = 500

// Options controls a collection run.
type Options struct {
	// HoursBack is the recency window; older entries are skipped.
	HoursBack int
	// MaxEntriesPerFeed caps how many entries are inspected per source.
	MaxEntriesPerFeed int
	// Location is assumed for publish times that carry no zone.
	Location *time.Location
	// Fetch configures the HTTP layer; nil uses fetch.DefaultOptions.
	Fetch *fetch.Options
	// Now is injectable for tests.
	Now func() time.Time
}

// SourceStat is the per-source outcome of one run.
type SourceStat struct {
	Name string
	types.FeedStat
	Err error
}

// CollectResult holds every recent article plus per-source stats, both in source order.
type CollectResult struct {
	Articles []types.Article
	Stats    []SourceStat
}

// Stat returns the stat recorded for the named source.
func (r *CollectResult) Stat(name string) (types.FeedStat, bool) {
	for _, s := range r.Stats {
		if s.Name == name {
			return s.FeedStat, true
		}
	}
	return types.FeedStat{}, false
}

// TotalFetched sums TotalFetched over all sources.
func (r *CollectResult) TotalFetched() int {
	n := 0
	for _, s := range r.Stats {
		n += s.TotalFetched
	}
	return n
}

// Collector fetches sources sequentially. A failing source never aborts the run.
type Collector struct {
	sources []config.FeedSource
	opts    Options
	parser  *gofeed.Parser
}

// NewCollector creates a Collector over sources.
func NewCollector(sources []config.FeedSource, opts Options) *Collector {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Fetch == nil {
		opts.Fetch = fetch.DefaultOptions()
	}
	return &Collector{
		sources: sources,
		opts:    opts,
		parser:  gofeed.NewParser(),
	}
}

// Collect walks every source once.
func (c *Collector) Collect(ctx context.Context) *CollectResult {
	cutoff := c.opts.Now().Add(-time.Duration(c.opts.HoursBack) * time.Hour)
	result := &CollectResult{
		Articles: []types.Article{},
		Stats:    make([]SourceStat, 0, len(c.sources)),
	}

	for _, src := range c.sources {
		logging.InfoWithFields("fetching feed", logging.Fields{"source": src.Name, "url": src.URL})

		feed, err := c.fetch(ctx, src)
		if err != nil {
			logging.ErrorWithFields("feed fetch failed", logging.Fields{"source": src.Name, "error": err.Error()})
			result.Stats = append(result.Stats, SourceStat{Name: src.Name, Err: err})
			continue
		}

		articles, stat := c.filterRecent(src.Name, feed.Items, cutoff)
		result.Articles = append(result.Articles, articles...)
		result.Stats = append(result.Stats, SourceStat{Name: src.Name, FeedStat: stat})

		logging.InfoWithFields("feed collected", logging.Fields{
			"source":        src.Name,
			"entries":       len(feed.Items),
			"total_fetched": stat.TotalFetched,
			"recent":        stat.RecentCount,
			"hours_back":    c.opts.HoursBack,
		})
	}

	return result
}

func (c *Collector) fetch(ctx context.Context, src config.FeedSource) (*gofeed.Feed, error) {
	res, err := fetch.URL(ctx, src.URL, c.opts.Fetch)
	if err != nil {
		return nil, err
	}
	feed, err := c.parser.Parse(res.Reader())
	if err != nil {
		return nil, &fetch.Error{URL: src.URL, StatusCode: res.StatusCode, Message: "failed to parse feed", Cause: err}
	}
	return feed, nil
}

// filterRecent applies the entry cap and the recency window to items.
func (c *Collector) filterRecent(source string, items []*gofeed.Item, cutoff time.Time) ([]types.Article, types.FeedStat) {
	var stat types.FeedStat
	var articles []types.Article

	limit := len(items)
	if c.opts.MaxEntriesPerFeed > 0 && c.opts.MaxEntriesPerFeed < limit {
		limit = c.opts.MaxEntriesPerFeed
	}

	for _, item := range items[:limit] {
		stat.TotalFetched++
		if item == nil {
			continue
		}

		published := publishedText(item)
		if published == "" {
			continue
		}

		ts, err := ParsePublished(published, c.opts.Location)
		if err != nil {
			logging.DebugWithFields("unparseable publish date", logging.Fields{"source": source, "published": published})
			continue
		}
		if ts.Before(cutoff) {
			continue
		}

		articles = append(articles, types.Article{
			Title:     strings.TrimSpace(item.Title),
			URL:       item.Link,
			Source:    source,
			Published: published,
			Summary:   types.TruncateRunes(item.Description, MaxSummaryRunes),
		})
		stat.RecentCount++
	}

	return articles, stat
}

// publishedText returns the entry's publish date. Entries carrying only an
// update date are treated as undated.
func publishedText(item *gofeed.Item) string {
	return strings.TrimSpace(item.Published)
}

// ParsePublished parses a feed date in any of the common RSS/Atom layouts.
// Times without a zone are read in loc.
func ParsePublished(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	ts, err := dateparse.ParseIn(strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised publish date %q: %w", raw, err)
	}
	return ts, nil
}
