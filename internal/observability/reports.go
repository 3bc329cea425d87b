package observability

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/teams-newsbot/internal/feeds"
	"github.com/jonathan/teams-newsbot/internal/filtering"
)

const (
	sourceColumn = 40
	titleLimit   = 80
	reasonLimit  = 100
)

// NewsSummary is everything the end-of-run news report shows.
type NewsSummary struct {
	RunID             string
	HoursBack         int
	MaxEntriesPerFeed int
	Feeds             []feeds.SourceStat
	Collected         int
	SentToLLM         int
	Selected          int
	Published         int
	Fallback          bool
}

// ShareSummary is everything the end-of-run share report shows.
type ShareSummary struct {
	RunID     string
	Query     string
	Found     int
	Processed int
	Published int
	Skipped   int
	Failed    int
}

// PrintFeedStats lists every source as "✓/✗ name : recent/fetched" with totals.
func (p *Printer) PrintFeedStats(stats []feeds.SourceStat, hoursBack int) {
	p.printBox("FEED COLLECTION", feedTable(stats, hoursBack))
}

func feedTable(stats []feeds.SourceStat, hoursBack int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("フィード別収集結果: (過去%d時間内/取得総数)\n", hoursBack))
	sb.WriteString(strings.Repeat("-", 65) + "\n")

	totalRecent, totalFetched := 0, 0
	for _, s := range stats {
		status := "✓"
		if s.RecentCount == 0 {
			status = "✗"
		}
		name := padRight(truncateWidth(s.Name, sourceColumn), sourceColumn)
		sb.WriteString(fmt.Sprintf("%s %s : %2d/%2d 件\n", status, name, s.RecentCount, s.TotalFetched))
		totalRecent += s.RecentCount
		totalFetched += s.TotalFetched
	}

	sb.WriteString(strings.Repeat("-", 65) + "\n")
	sb.WriteString(fmt.Sprintf("合計: %d/%d 件収集", totalRecent, totalFetched))
	return sb.String()
}

// PrintFiltering shows what the relevance filter picked and why.
func (p *Printer) PrintFiltering(sel *filtering.Selection) {
	if sel == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Articles sent to LLM for evaluation: %d\n", sel.SentToLLM))
	sb.WriteString(fmt.Sprintf("Articles selected: %d\n", len(sel.Articles)))
	if sel.Duplicates > 0 {
		sb.WriteString(fmt.Sprintf("Duplicate titles removed: %d\n", sel.Duplicates))
	}
	if sel.Fallback {
		sb.WriteString(fmt.Sprintf("Fallback: %s\n", sel.FallbackReason))
	}
	for _, d := range sel.Discarded {
		sb.WriteString(fmt.Sprintf("Discarded #%d: %s\n", d.Number, d.Reason))
	}

	count := min(len(sel.Articles), maxItemsToShow)
	if count > 0 {
		sb.WriteString("\nSelected articles detail:\n")
	}
	bySource := map[string]int{}
	for i, a := range sel.Articles {
		bySource[a.Source]++
		if i >= count {
			continue
		}
		category := a.Category
		if category == "" {
			category = "N/A"
		}
		reason := a.Reason
		if reason == "" {
			reason = "N/A"
		}
		sb.WriteString(fmt.Sprintf("%d. [%s] Score: %.2f\n", i+1, padRight(category, 15), a.RelevanceScore))
		sb.WriteString(fmt.Sprintf("   Title: %s\n", truncateRunes(a.Title, titleLimit)))
		sb.WriteString(fmt.Sprintf("   Source: %s\n", a.Source))
		sb.WriteString(fmt.Sprintf("   Reason: %s\n", truncateRunes(reason, reasonLimit)))
	}
	if len(sel.Articles) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(sel.Articles)-maxItemsToShow))
	}

	if len(bySource) > 0 {
		sb.WriteString("\nSelected articles by source:\n")
		sources := make([]string, 0, len(bySource))
		for s := range bySource {
			sources = append(sources, s)
		}
		sort.Strings(sources)
		for _, s := range sources {
			sb.WriteString(fmt.Sprintf("  %s: %d articles\n", s, bySource[s]))
		}
	}

	p.printBox("FILTERING SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintNewsSummary prints the end-of-run report for the news pipeline.
func (p *Printer) PrintNewsSummary(s NewsSummary) {
	var sb strings.Builder
	if s.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n\n", s.RunID))
	}
	sb.WriteString("■ 記事収集\n")
	sb.WriteString(fmt.Sprintf("  対象期間: 過去 %d 時間\n", s.HoursBack))
	sb.WriteString(fmt.Sprintf("  RSSフィード数: %d 件\n", len(s.Feeds)))
	sb.WriteString(fmt.Sprintf("  各フィード最大取得数: %d 件\n\n", s.MaxEntriesPerFeed))
	for _, line := range strings.Split(feedTable(s.Feeds, s.HoursBack), "\n") {
		sb.WriteString("  " + line + "\n")
	}

	sb.WriteString("\n■ 記事処理\n")
	sb.WriteString(fmt.Sprintf("  収集記事数: %d 件\n", s.Collected))
	sb.WriteString(fmt.Sprintf("  LLMへ送信: %d 件\n", s.SentToLLM))
	selected := fmt.Sprintf("  LLMが選択: %d 件", s.Selected)
	if s.Fallback {
		selected += " (fallback)"
	}
	sb.WriteString(selected + "\n")
	sb.WriteString(fmt.Sprintf("  Teams投稿: %d 件\n", s.Published))

	sb.WriteString("\n■ 実行結果\n")
	sb.WriteString("  ステータス: " + statusText(s.Published))

	p.printBox("【実行サマリー】", sb.String())
}

// PrintShareSummary prints the end-of-run report for the share pipeline.
func (p *Printer) PrintShareSummary(s ShareSummary) {
	var sb strings.Builder
	if s.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: %s\n", s.RunID))
	}
	sb.WriteString(fmt.Sprintf("Query: %s\n\n", s.Query))
	sb.WriteString(fmt.Sprintf("  検索ヒット: %d 件\n", s.Found))
	sb.WriteString(fmt.Sprintf("  処理対象: %d 件\n", s.Processed))
	sb.WriteString(fmt.Sprintf("  Teams投稿: %d 件\n", s.Published))
	sb.WriteString(fmt.Sprintf("  スキップ: %d 件\n", s.Skipped))
	sb.WriteString(fmt.Sprintf("  失敗: %d 件\n\n", s.Failed))
	sb.WriteString("  ステータス: " + statusText(s.Published))

	p.printBox("【X共有 実行サマリー】", sb.String())
}

func statusText(published int) string {
	if published > 0 {
		return "成功 ✓"
	}
	return "失敗 ✗"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
