package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FeedSource is one RSS/Atom feed to collect from.
type FeedSource struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

type feedsFile struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// DefaultFeeds returns the built-in Japanese AI and tech news feeds.
func DefaultFeeds() []FeedSource {
	return []FeedSource{
		{Name: "ITmedia AI+ RSS", URL: "https://rss.itmedia.co.jp/rss/2.0/aiplus.xml"},
		{Name: "ITmedia NEWS AI", URL: "https://rss.itmedia.co.jp/rss/2.0/news_bursts.xml"},
		{Name: "ITmedia エンタープライズ", URL: "https://rss.itmedia.co.jp/rss/2.0/enterprise.xml"},
		{Name: "@IT", URL: "https://rss.itmedia.co.jp/rss/2.0/ait.xml"},
		{Name: "@IT Security", URL: "https://rss.itmedia.co.jp/rss/2.0/ait_security.xml"},
		{Name: "GIGAZINE", URL: "https://gigazine.net/news/rss_2.0/"},
		{Name: "ZDNet Japan", URL: "https://feeds.japan.zdnet.com/rss/zdnet/all.rdf"},
		{Name: "CNET Japan", URL: "https://feeds.japan.cnet.com/rss/cnet/all.rdf"},
		{Name: "Publickey", URL: "https://www.publickey1.jp/atom.xml"},
		{Name: "はてなブックマーク テクノロジー", URL: "https://b.hatena.ne.jp/hotentry/it.rss"},
		{Name: "Developers.IO", URL: "https://dev.classmethod.jp/feed/"},
		{Name: "Qiita トレンド", URL: "https://qiita.com/popular-items/feed"},
		{Name: "Zenn トレンド", URL: "https://zenn.dev/feed"},
	}
}

// LoadFeeds reads the feed list from a YAML file of the form
//
//	feeds:
//	  - name: Publickey
//	    url: https://www.publickey1.jp/atom.xml
//
// An empty path returns DefaultFeeds.
func LoadFeeds(path string) ([]FeedSource, error) {
	if path == "" {
		return DefaultFeeds(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feeds file %s: %w", path, err)
	}

	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse feeds YAML: %w", err)
	}

	if len(f.Feeds) == 0 {
		return nil, fmt.Errorf("feeds file %s lists no feeds", path)
	}
	for i, src := range f.Feeds {
		if src.Name == "" || src.URL == "" {
			return nil, fmt.Errorf("feeds file %s: entry %d needs both name and url", path, i+1)
		}
	}

	return f.Feeds, nil
}
