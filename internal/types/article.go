// Package types provides the data shapes shared by the news and share pipelines.
package types

// Article is a single news item collected from an RSS feed.
// RelevanceScore, Category and Reason are only set by the relevance filter.
type Article struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Source    string `json:"source"`
	Published string `json:"published"`
	Summary   string `json:"summary"`

	RelevanceScore float64 `json:"relevance_score,omitempty"`
	Category       string  `json:"category,omitempty"`
	Reason         string  `json:"reason,omitempty"`
}

// Enriched returns a copy of the article carrying the filter's verdict.
// The receiver is left untouched so callers can keep the unranked list around.
func (a Article) Enriched(score float64, category, reason string) Article {
	a.RelevanceScore = score
	a.Category = category
	a.Reason = reason
	return a
}

// FeedStat counts what one source produced during a single run.
type FeedStat struct {
	TotalFetched int `json:"total_fetched"`
	RecentCount  int `json:"recent_count"`
}
