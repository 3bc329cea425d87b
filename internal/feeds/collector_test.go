package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/teams-newsbot/internal/config"
	"github.com/jonathan/teams-newsbot/internal/types"
)

var (
	jst      = time.FixedZone("JST", 9*60*60)
	fixedNow = time.Date(2025, 10, 16, 12, 0, 0, 0, jst)
)

type rssItem struct {
	title   string
	pubDate string
	desc    string
}

func rssFeed(items ...rssItem) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>`)
	for i, it := range items {
		sb.WriteString("<item>")
		fmt.Fprintf(&sb, "<title>%s</title><link>https://example.com/%d</link>", it.title, i)
		if it.pubDate != "" {
			fmt.Fprintf(&sb, "<pubDate>%s</pubDate>", it.pubDate)
		}
		if it.desc != "" {
			fmt.Fprintf(&sb, "<description><![CDATA[%s]]></description>", it.desc)
		}
		sb.WriteString("</item>")
	}
	sb.WriteString("</channel></rss>")
	return sb.String()
}

func atomFeed(published ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>atom</title>`)
	for i, p := range published {
		fmt.Fprintf(&sb, `<entry><title>Atom %d</title><link href="https://atom.example.com/%d"/><published>%s</published><updated>%s</updated><summary>s</summary></entry>`, i, i, p, p)
	}
	sb.WriteString("</feed>")
	return sb.String()
}

func hoursAgo(h float64) string {
	return fixedNow.Add(-time.Duration(h * float64(time.Hour))).Format(time.RFC1123Z)
}

func newCollector(t *testing.T, routes map[string]http.HandlerFunc, names ...string) *Collector {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sources := make([]config.FeedSource, 0, len(names))
	for _, n := range names {
		sources = append(sources, config.FeedSource{Name: n, URL: srv.URL + "/" + n})
	}
	return NewCollector(sources, Options{
		HoursBack:         3,
		MaxEntriesPerFeed: 30,
		Location:          jst,
		Now:               func() time.Time { return fixedNow },
	})
}

func serve(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func TestCollect_ThreeFeedsOneErroring(t *testing.T) {
	five := make([]rssItem, 0, 6)
	for i := 0; i < 5; i++ {
		five = append(five, rssItem{title: fmt.Sprintf("A%d", i), pubDate: hoursAgo(float64(i) * 0.5)})
	}
	five = append(five, rssItem{title: "too old", pubDate: hoursAgo(10)})

	c := newCollector(t, map[string]http.HandlerFunc{
		"/a": serve(rssFeed(five...)),
		"/b": func(w http.ResponseWriter, _ *http.Request) { http.Error(w, "down", http.StatusInternalServerError) },
		"/c": serve(atomFeed(fixedNow.Add(-time.Hour).Format(time.RFC3339), fixedNow.Add(-2*time.Hour).Format(time.RFC3339))),
	}, "a", "b", "c")

	result := c.Collect(context.Background())

	require.Len(t, result.Articles, 7)
	assert.Equal(t, "A0", result.Articles[0].Title)
	assert.Equal(t, "a", result.Articles[0].Source)
	assert.Equal(t, "c", result.Articles[6].Source)

	require.Len(t, result.Stats, 3)
	a, ok := result.Stat("a")
	require.True(t, ok)
	assert.Equal(t, types.FeedStat{TotalFetched: 6, RecentCount: 5}, a)

	b, ok := result.Stat("b")
	require.True(t, ok)
	assert.Equal(t, types.FeedStat{TotalFetched: 0, RecentCount: 0}, b)
	assert.Error(t, result.Stats[1].Err)

	cs, _ := result.Stat("c")
	assert.Equal(t, 2, cs.RecentCount)
	assert.Equal(t, 8, result.TotalFetched())
}

func TestCollect_SkipsUndatedAndUnparseable(t *testing.T) {
	c := newCollector(t, map[string]http.HandlerFunc{
		"/feed": serve(rssFeed(
			rssItem{title: "no date"},
			rssItem{title: "garbage date", pubDate: "sometime last week"},
			rssItem{title: "ok", pubDate: hoursAgo(1)},
		)),
	}, "feed")

	result := c.Collect(context.Background())

	require.Len(t, result.Articles, 1)
	assert.Equal(t, "ok", result.Articles[0].Title)
	stat, _ := result.Stat("feed")
	assert.Equal(t, types.FeedStat{TotalFetched: 3, RecentCount: 1}, stat)
}

func TestCollect_SkipsUpdatedOnlyEntries(t *testing.T) {
	updated := fixedNow.Add(-time.Hour).Format(time.RFC3339)
	body := `<?xml version="1.0" encoding="utf-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>atom</title>` +
		`<entry><title>Only updated</title><link href="https://atom.example.com/0"/><updated>` + updated + `</updated></entry>` +
		`</feed>`
	c := newCollector(t, map[string]http.HandlerFunc{"/feed": serve(body)}, "feed")

	result := c.Collect(context.Background())

	assert.Empty(t, result.Articles)
	stat, _ := result.Stat("feed")
	assert.Equal(t, types.FeedStat{TotalFetched: 1, RecentCount: 0}, stat)
}

func TestCollect_EntryCapCountsInspectedOnly(t *testing.T) {
	items := make([]rssItem, 0, 10)
	for i := 0; i < 10; i++ {
		items = append(items, rssItem{title: fmt.Sprintf("n%d", i), pubDate: hoursAgo(0.1)})
	}
	c := newCollector(t, map[string]http.HandlerFunc{"/feed": serve(rssFeed(items...))}, "feed")
	c.opts.MaxEntriesPerFeed = 4

	result := c.Collect(context.Background())

	assert.Len(t, result.Articles, 4)
	stat, _ := result.Stat("feed")
	assert.Equal(t, types.FeedStat{TotalFetched: 4, RecentCount: 4}, stat)
}

func TestCollect_SummaryTruncatedToRunes(t *testing.T) {
	long := strings.Repeat("あ", 800)
	c := newCollector(t, map[string]http.HandlerFunc{
		"/feed": serve(rssFeed(rssItem{title: "long", pubDate: hoursAgo(1), desc: long})),
	}, "feed")

	result := c.Collect(context.Background())

	require.Len(t, result.Articles, 1)
	assert.Equal(t, MaxSummaryRunes, len([]rune(result.Articles[0].Summary)))
}

func TestCollect_UnparseableFeedRecordedAsFailure(t *testing.T) {
	c := newCollector(t, map[string]http.HandlerFunc{
		"/feed": serve("this is not xml"),
	}, "feed")

	result := c.Collect(context.Background())

	assert.Empty(t, result.Articles)
	require.Len(t, result.Stats, 1)
	assert.Equal(t, types.FeedStat{}, result.Stats[0].FeedStat)
	assert.ErrorContains(t, result.Stats[0].Err, "failed to parse feed")
}

func TestParsePublished(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected time.Time
	}{
		{name: "RFC1123Z", raw: "Thu, 16 Oct 2025 10:30:00 +0900", expected: time.Date(2025, 10, 16, 10, 30, 0, 0, jst)},
		{name: "RFC3339 UTC", raw: "2025-10-16T01:30:00Z", expected: time.Date(2025, 10, 16, 10, 30, 0, 0, jst)},
		{name: "naive assumes location", raw: "2025-10-16 10:30:00", expected: time.Date(2025, 10, 16, 10, 30, 0, 0, jst)},
		{name: "GMT name", raw: "Thu, 16 Oct 2025 01:30:00 GMT", expected: time.Date(2025, 10, 16, 10, 30, 0, 0, jst)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePublished(tt.raw, jst)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %s want %s", got, tt.expected)
		})
	}

	_, err := ParsePublished("not a date", jst)
	assert.Error(t, err)
}
