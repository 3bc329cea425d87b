package cards

import (
	"strings"

	"github.com/araddon/dateparse"

	"github.com/jonathan/teams-newsbot/internal/fetch"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// MaxSummaryRunes is the longest summary shown on a card before "..." is appended.
const MaxSummaryRunes = 200

const (
	dateLayout      = "06/01/02 15:04"
	defaultIcon     = "📰"
	defaultCategory = "General"
)

// categoryIcons is evaluated in order and the first substring match wins,
// so "AI Coding Agent" must precede "AI Agent".
var categoryIcons = []struct {
	substring string
	icon      string
}{
	{"SLM/VLM", "🤖"},
	{"AI Coding Agent", "💻"},
	{"AI Agent", "🔧"},
	{"AIセキュリティ", "🔒"},
	{"Python", "🐍"},
	{"TypeScript", "📘"},
	{"音声認識", "🎤"},
	{"OCR", "👁️"},
}

// CategoryIcon returns the emoji for a category.
func CategoryIcon(category string) string {
	for _, ci := range categoryIcons {
		if strings.Contains(category, ci.substring) {
			return ci.icon
		}
	}
	return defaultIcon
}

// FormatPublished renders a feed date as YY/MM/DD HH:MM in the date's own
// zone. Unparseable input is returned unchanged.
func FormatPublished(raw string) string {
	if raw == "" {
		return ""
	}
	ts, err := dateparse.ParseAny(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	return ts.Format(dateLayout)
}

// CleanSummary strips markup, collapses whitespace and truncates to
// MaxSummaryRunes runes plus "...".
func CleanSummary(summary string) string {
	cleaned := fetch.HTMLToText(summary)
	if len([]rune(cleaned)) > MaxSummaryRunes {
		return types.TruncateRunes(cleaned, MaxSummaryRunes) + "..."
	}
	return cleaned
}

// Stars converts a relevance score into a one to five star rating.
func Stars(score float64) string {
	switch {
	case score >= 0.9:
		return "⭐⭐⭐⭐⭐"
	case score >= 0.8:
		return "⭐⭐⭐⭐"
	case score >= 0.7:
		return "⭐⭐⭐"
	case score >= 0.5:
		return "⭐⭐"
	default:
		return "⭐"
	}
}

func categoryOrDefault(category string) string {
	if strings.TrimSpace(category) == "" {
		return defaultCategory
	}
	return category
}
