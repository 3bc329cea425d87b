package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/feeds"
	"github.com/jonathan/teams-newsbot/internal/filtering"
	"github.com/jonathan/teams-newsbot/internal/llm"
	"github.com/jonathan/teams-newsbot/internal/observability"
	"github.com/jonathan/teams-newsbot/internal/teams"
	"github.com/jonathan/teams-newsbot/internal/types"
)

var (
	jst      = time.FixedZone("JST", 9*60*60)
	fixedNow = time.Date(2025, 10, 16, 12, 0, 0, 0, jst)
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, req llm.Request) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, req llm.Request) (string, error) {
	return "", errors.New("not used")
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, req)
	}
	return `{"selected_articles": []}`, nil
}

func (m *MockLLMClient) GetModel() string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

// recordingPublisher captures payloads and answers with a fixed result.
type recordingPublisher struct {
	mu       sync.Mutex
	payloads []any
	results  []teams.Result
}

func (p *recordingPublisher) Publish(_ context.Context, payload any) teams.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	if len(p.results) == 0 {
		return teams.Result{OK: true, StatusCode: http.StatusOK}
	}
	r := p.results[0]
	if len(p.results) > 1 {
		p.results = p.results[1:]
	}
	return r
}

func rssFeed(count int, prefix string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>`)
	for i := 0; i < count; i++ {
		pub := fixedNow.Add(-time.Duration(i+1) * 10 * time.Minute).Format(time.RFC1123Z)
		fmt.Fprintf(&sb, "<item><title>%s %d</title><link>https://example.com/%s/%d</link><pubDate>%s</pubDate></item>", prefix, i+1, prefix, i+1, pub)
	}
	sb.WriteString("</channel></rss>")
	return sb.String()
}

// newsFixture serves three feeds (5 recent items, an error, 2 recent items)
// and a webhook answering with webhookStatus.
func newsFixture(t *testing.T, webhookStatus int) (*feeds.Collector, *teams.Publisher, *[]map[string]any) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/feed-a", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, rssFeed(5, "A"))
	})
	mux.HandleFunc("/feed-b", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/feed-c", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, rssFeed(2, "C"))
	})

	var mu sync.Mutex
	posted := []map[string]any{}
	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		posted = append(posted, body)
		mu.Unlock()
		w.WriteHeader(webhookStatus)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	collector := feeds.NewCollector([]config.FeedSource{
		{Name: "A", URL: srv.URL + "/feed-a"},
		{Name: "B", URL: srv.URL + "/feed-b"},
		{Name: "C", URL: srv.URL + "/feed-c"},
	}, feeds.Options{
		HoursBack:         3,
		MaxEntriesPerFeed: 30,
		Location:          jst,
		Now:               func() time.Time { return fixedNow },
	})
	return collector, teams.NewPublisher(srv.URL+"/webhook", teams.Options{}), &posted
}

func TestRunNews_WebhookUnavailable(t *testing.T) {
	collector, publisher, posted := newsFixture(t, http.StatusServiceUnavailable)
	filter := filtering.New(nil, filtering.Options{MaxItems: 3})

	report, err := RunNews(context.Background(), NewsOptions{
		Source:    collector,
		Filter:    filter,
		Publisher: publisher,
		Now:       func() time.Time { return fixedNow },
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNothingPublished))
	assert.Equal(t, 0, report.Published)
	assert.Len(t, *posted, 1)

	assert.Len(t, report.Collected.Articles, 7)
	stat, ok := report.Collected.Stat("B")
	require.True(t, ok)
	assert.Equal(t, types.FeedStat{}, stat)

	require.Len(t, report.Outcomes, 3)
	for _, o := range report.Outcomes {
		assert.Equal(t, StatusFailed, o.Status)
		assert.Contains(t, o.Reason, "503")
	}
}

func TestRunNews_PublishesOrderedSelection(t *testing.T) {
	collector, publisher, posted := newsFixture(t, http.StatusOK)
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ llm.Request) (string, error) {
			return `{"selected_articles": [
				{"number": 2, "relevance_score": 0.9, "category": "AI Agent", "reason": "agents"},
				{"number": 1, "relevance_score": 0.95, "category": "SLM/VLM", "reason": "small model"}
			]}`, nil
		},
	}

	var out bytes.Buffer
	report, err := RunNews(context.Background(), NewsOptions{
		Source:            collector,
		Filter:            filtering.New(client, filtering.Options{MaxItems: 3}),
		Publisher:         publisher,
		HoursBack:         3,
		MaxEntriesPerFeed: 30,
		Now:               func() time.Time { return fixedNow },
		Printer:           observability.NewPrinter(&out),
	})

	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Published)
	require.Len(t, report.Selection.Articles, 2)
	assert.Equal(t, "A 1", report.Selection.Articles[0].Title)
	assert.Equal(t, "A 2", report.Selection.Articles[1].Title)

	require.Len(t, *posted, 1)
	payload, err := json.Marshal((*posted)[0])
	require.NoError(t, err)
	assert.Contains(t, string(payload), "本日のAIニュース 2件をお届けします")
	assert.Contains(t, string(payload), "🤖 #1 A 1")

	assert.Contains(t, out.String(), "FEED COLLECTION")
	assert.Contains(t, out.String(), "FILTERING SUMMARY")
	assert.Contains(t, out.String(), "成功 ✓")
}

type staticSource struct{ result *feeds.CollectResult }

func (s staticSource) Collect(context.Context) *feeds.CollectResult { return s.result }

func sampleArticles(n int) []types.Article {
	articles := make([]types.Article, n)
	for i := range articles {
		articles[i] = types.Article{Title: fmt.Sprintf("T%d", i+1), URL: fmt.Sprintf("https://example.com/%d", i+1), Source: "S"}
	}
	return articles
}

func TestRunNews_NoArticles(t *testing.T) {
	pub := &recordingPublisher{}
	report, err := RunNews(context.Background(), NewsOptions{
		Source:    staticSource{&feeds.CollectResult{}},
		Filter:    filtering.New(nil, filtering.Options{MaxItems: 3}),
		Publisher: pub,
	})

	assert.True(t, errors.Is(err, ErrNothingPublished))
	assert.Nil(t, report.Selection)
	assert.Empty(t, pub.payloads)
}

func TestRunNews_PerArticle(t *testing.T) {
	pub := &recordingPublisher{results: []teams.Result{
		{OK: true},
		{OK: true},
		{OK: false, Err: errors.New("rejected")},
		{OK: true},
	}}

	report, err := RunNews(context.Background(), NewsOptions{
		Source:     staticSource{&feeds.CollectResult{Articles: sampleArticles(5)}},
		Filter:     filtering.New(nil, filtering.Options{MaxItems: 3}),
		Publisher:  pub,
		PerArticle: true,
		Now:        func() time.Time { return fixedNow },
	})

	require.NoError(t, err)
	assert.Len(t, pub.payloads, 4)
	assert.Equal(t, 2, report.Published)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Equal(t, "rejected", report.Outcomes[1].Reason)
	assert.True(t, report.Selection.Fallback)
}
