package cards

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/teams-newsbot/internal/types"
)

// Audience is the team the daily digest is addressed to.
const Audience = "法律事務所内 AI Product 開発チーム"

// Focus lists the topics highlighted on the summary card.
const Focus = "セキュリティ, AI/ML, Coding Agent, LangGraph等"

const (
	readArticleTitle = "記事を読む 🔗"
	defaultReason    = "AIに関連するニュースです"
	headerRule       = "──────────────────────────────"
)

// ComposeNews renders the combined daily digest card.
func ComposeNews(articles []types.Article, totalCollected int, now time.Time) Message {
	body := []Element{
		TextBlock{
			Type:   typeTextBlock,
			Text:   "🤖 AI News Daily - " + now.Format("2006-01-02 15:04"),
			Size:   "ExtraLarge",
			Weight: "Bolder",
			Color:  "Accent",
		},
		TextBlock{
			Type:    typeTextBlock,
			Text:    fmt.Sprintf("本日のAIニュース %d件をお届けします", len(articles)),
			Wrap:    true,
			Spacing: "Small",
		},
		FactSet{
			Type: typeFactSet,
			Facts: []Fact{
				{Title: "📊 収集記事数", Value: strconv.Itoa(totalCollected)},
				{Title: "✅ 選択記事数", Value: strconv.Itoa(len(articles))},
				{Title: "🎯 対象", Value: Audience},
			},
		},
		TextBlock{Type: typeTextBlock, Text: headerRule, Separator: true, IsSubtle: true},
	}

	for i, article := range articles {
		body = append(body, articleBlocks(article, i+1)...)
		if i < len(articles)-1 {
			body = append(body, separator())
		}
	}

	return newMessage(body)
}

func articleBlocks(article types.Article, index int) []Element {
	blocks := []Element{
		TextBlock{
			Type:   typeTextBlock,
			Text:   fmt.Sprintf("%s #%d %s", CategoryIcon(article.Category), index, article.Title),
			Size:   "Medium",
			Weight: "Bolder",
			Color:  "Accent",
			Wrap:   true,
		},
		ColumnSet{
			Type: typeColumnSet,
			Columns: []Column{
				column("auto", TextBlock{
					Type:  typeTextBlock,
					Text:  "📂 " + categoryOrDefault(article.Category),
					Size:  "Small",
					Color: "Good",
				}),
				column("auto", TextBlock{
					Type:     typeTextBlock,
					Text:     FormatPublished(article.Published),
					Size:     "Small",
					IsSubtle: true,
				}),
				column("stretch", TextBlock{
					Type:  typeTextBlock,
					Text:  "📰 " + article.Source,
					Size:  "Small",
					Color: "Attention",
				}),
			},
		},
	}

	if summary := CleanSummary(article.Summary); summary != "" {
		blocks = append(blocks, TextBlock{
			Type:     typeTextBlock,
			Text:     summary,
			Size:     "Small",
			Wrap:     true,
			IsSubtle: true,
			Spacing:  "Small",
		})
	}

	if article.URL != "" {
		blocks = append(blocks, ActionSet{
			Type:    typeActionSet,
			Actions: []Action{openURL(readArticleTitle, article.URL)},
		})
	}
	return blocks
}

// ComposeSummary renders the overview card posted before individual article
// cards.
func ComposeSummary(totalCollected, selected int, now time.Time) Message {
	body := []Element{
		TextBlock{
			Type:   typeTextBlock,
			Text:   "🤖 AI News Daily - " + now.Format("2006-01-02 15:04"),
			Size:   "ExtraLarge",
			Weight: "Bolder",
			Color:  "Accent",
		},
		TextBlock{
			Type: typeTextBlock,
			Text: "本日のAIニュースをお届けします",
			Wrap: true,
		},
		FactSet{
			Type: typeFactSet,
			Facts: []Fact{
				{Title: "📊 収集記事数", Value: strconv.Itoa(totalCollected)},
				{Title: "✅ 選択記事数", Value: strconv.Itoa(selected)},
				{Title: "🎯 対象", Value: Audience},
				{Title: "🔍 フォーカス", Value: Focus},
			},
		},
	}
	return newMessage(body)
}

// ComposeArticle renders one article as a standalone card.
func ComposeArticle(article types.Article, index int) Message {
	reason := strings.TrimSpace(article.Reason)
	if reason == "" {
		reason = defaultReason
	}

	body := []Element{
		TextBlock{
			Type:   typeTextBlock,
			Text:   fmt.Sprintf("%s AI News #%d", CategoryIcon(article.Category), index),
			Size:   "Medium",
			Weight: "Bolder",
			Color:  "Accent",
		},
		TextBlock{
			Type:   typeTextBlock,
			Text:   article.Title,
			Size:   "Large",
			Weight: "Bolder",
			Wrap:   true,
		},
		ColumnSet{
			Type: typeColumnSet,
			Columns: []Column{
				column("stretch", TextBlock{
					Type:  typeTextBlock,
					Text:  "📂 " + categoryOrDefault(article.Category),
					Size:  "Small",
					Color: "Good",
				}),
				column("auto", TextBlock{
					Type:     typeTextBlock,
					Text:     FormatPublished(article.Published),
					Size:     "Small",
					IsSubtle: true,
				}),
			},
		},
	}

	if article.RelevanceScore > 0 {
		body = append(body, TextBlock{
			Type: typeTextBlock,
			Text: fmt.Sprintf("%s %.2f", Stars(article.RelevanceScore), article.RelevanceScore),
			Size: "Small",
		})
	}

	body = append(body,
		TextBlock{Type: typeTextBlock, Text: "💡 " + reason, Wrap: true, Spacing: "Small"},
		TextBlock{Type: typeTextBlock, Text: "📰 " + article.Source, Size: "Small", Color: "Attention"},
	)

	var actions []Action
	if article.URL != "" {
		actions = append(actions, openURL(readArticleTitle, article.URL))
	}
	return newMessage(body, actions...)
}
