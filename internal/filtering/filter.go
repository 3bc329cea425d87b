// Package filtering narrows the collected articles down to the few most
// relevant ones, asking an LLM when one is available.
package filtering

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/teams-newsbot/internal/llm"
	"github.com/jonathan/teams-newsbot/internal/logging"
	"github.com/jonathan/teams-newsbot/internal/prompts"
	"github.com/jonathan/teams-newsbot/internal/schemas"
	"github.com/jonathan/teams-newsbot/internal/types"
)

// DefaultMaxArticlesToLLM bounds the numbered list sent to the model.
const DefaultMaxArticlesToLLM = 40

const (
	selectTemperature = 0.3
	selectMaxTokens   = 3000
)

// Options configures a Filter.
type Options struct {
	// MaxItems is the most articles Select ever returns.
	MaxItems int
	// MaxArticlesToLLM caps the candidate list after deduplication.
	MaxArticlesToLLM int
}

// DiscardedSelection records a model selection that was dropped.
type DiscardedSelection struct {
	Number int
	Reason string
}

// Selection is the outcome of Select.
type Selection struct {
	// Articles are copies, ordered by descending RelevanceScore.
	Articles []types.Article
	// Unique is the article count after title deduplication.
	Unique     int
	Duplicates int
	SentToLLM  int
	// Fallback is true when the model was not used or its answer was unusable.
	Fallback       bool
	FallbackReason string
	Discarded      []DiscardedSelection
}

// Filter selects articles. A nil client always falls back.
type Filter struct {
	client llm.Client
	opts   Options
}

// New creates a Filter. client may be nil.
func New(client llm.Client, opts Options) *Filter {
	if opts.MaxArticlesToLLM <= 0 {
		opts.MaxArticlesToLLM = DefaultMaxArticlesToLLM
	}
	return &Filter{client: client, opts: opts}
}

// selectedArticle is one entry of the model's selected_articles array.
type selectedArticle struct {
	Number         float64 `json:"number"`
	RelevanceScore float64 `json:"relevance_score"`
	Category       string  `json:"category"`
	Reason         string  `json:"reason"`
}

type selectionEnvelope struct {
	SelectedArticles []json.RawMessage `json:"selected_articles"`
}

// Select never fails: any problem with the model yields the first MaxItems
// unique articles without enrichment.
func (f *Filter) Select(ctx context.Context, articles []types.Article) *Selection {
	unique := Deduplicate(articles)
	sel := &Selection{
		Unique:     len(unique),
		Duplicates: len(articles) - len(unique),
	}
	logging.InfoWithFields("deduplicated articles", logging.Fields{
		"input":      len(articles),
		"unique":     len(unique),
		"duplicates": sel.Duplicates,
	})

	if f.opts.MaxItems <= 0 || len(unique) == 0 {
		sel.Articles = []types.Article{}
		return sel
	}

	candidates := unique
	if len(candidates) > f.opts.MaxArticlesToLLM {
		candidates = candidates[:f.opts.MaxArticlesToLLM]
	}

	if f.client == nil {
		return f.fallback(sel, unique, "no LLM configured")
	}

	schema, err := schemas.LoadSelection()
	if err != nil {
		return f.fallback(sel, unique, err.Error())
	}

	sel.SentToLLM = len(candidates)
	prompt := prompts.Render(prompts.Filtering, "select-articles", map[string]string{
		"ArticleList": BuildArticleList(candidates),
		"MaxItems":    strconv.Itoa(f.opts.MaxItems),
	})
	logging.DebugWithFields("llm selection request", logging.Fields{"prompt": prompt})

	resp, err := f.client.GenerateJSON(ctx, llm.Request{
		System:      prompts.MustGet(prompts.Filtering, "curator-system"),
		Prompt:      prompt,
		Temperature: selectTemperature,
		MaxTokens:   selectMaxTokens,
		Schema:      schema.Raw(),
	})
	if err != nil {
		return f.fallback(sel, unique, fmt.Sprintf("LLM request failed: %v", err))
	}
	logging.DebugWithFields("llm selection response", logging.Fields{"response": resp})

	if err := schema.ValidateEnvelope(resp); err != nil {
		return f.fallback(sel, unique, fmt.Sprintf("malformed LLM response: %v", err))
	}
	var envelope selectionEnvelope
	if err := json.Unmarshal([]byte(resp), &envelope); err != nil {
		return f.fallback(sel, unique, fmt.Sprintf("malformed LLM response: %v", err))
	}

	accepted := make([]selectedArticle, 0, len(envelope.SelectedArticles))
	for i, raw := range envelope.SelectedArticles {
		item, reason := parseSelection(schema, raw, len(candidates))
		if reason != "" {
			sel.Discarded = append(sel.Discarded, DiscardedSelection{Number: int(item.Number), Reason: reason})
			logging.WarnWithFields("discarded LLM selection", logging.Fields{"index": i, "reason": reason})
			continue
		}
		accepted = append(accepted, item)
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].RelevanceScore > accepted[j].RelevanceScore
	})

	chosen := make([]types.Article, 0, f.opts.MaxItems)
	used := make(map[int]bool, len(accepted))
	for _, item := range accepted {
		if len(chosen) == f.opts.MaxItems {
			break
		}
		n := int(item.Number)
		if used[n] {
			sel.Discarded = append(sel.Discarded, DiscardedSelection{Number: n, Reason: "article selected more than once"})
			continue
		}
		used[n] = true
		chosen = append(chosen, candidates[n-1].Enriched(item.RelevanceScore, item.Category, item.Reason))
	}

	sel.Articles = chosen
	logging.InfoWithFields("LLM selected articles", logging.Fields{
		"sent":      sel.SentToLLM,
		"selected":  len(chosen),
		"discarded": len(sel.Discarded),
	})
	return sel
}

// parseSelection validates one entry. A non-empty reason means it is discarded.
func parseSelection(schema *schemas.Selection, raw json.RawMessage, candidates int) (selectedArticle, string) {
	var item selectedArticle
	if err := schema.ValidateItem(raw); err != nil {
		_ = json.Unmarshal(raw, &item)
		return item, strings.TrimSpace(err.Error())
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, err.Error()
	}
	n := int(item.Number)
	if n < 1 || n > candidates {
		return item, fmt.Sprintf("number %d outside 1..%d", n, candidates)
	}
	return item, ""
}

func (f *Filter) fallback(sel *Selection, unique []types.Article, reason string) *Selection {
	n := min(f.opts.MaxItems, len(unique))
	sel.Articles = make([]types.Article, n)
	copy(sel.Articles, unique[:n])
	sel.Fallback = true
	sel.FallbackReason = reason

	logging.WarnWithFields("falling back to first articles", logging.Fields{
		"reason": reason,
		"count":  n,
	})
	return sel
}

// Deduplicate keeps the first article for each trimmed title and drops
// articles whose title is blank. Order is preserved.
func Deduplicate(articles []types.Article) []types.Article {
	seen := make(map[string]bool, len(articles))
	unique := make([]types.Article, 0, len(articles))
	for _, a := range articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		unique = append(unique, a)
	}
	return unique
}

// BuildArticleList renders the 1-based numbered list the model picks from.
func BuildArticleList(articles []types.Article) string {
	lines := make([]string, len(articles))
	for i, a := range articles {
		lines[i] = fmt.Sprintf("%d. %s (from %s)", i+1, a.Title, a.Source)
	}
	return strings.Join(lines, "\n")
}
