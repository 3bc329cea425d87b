package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock_MarkdownCodeBlock(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "json code block",
			input:    "```json\n{\"selected_articles\": []}\n```",
			expected: `{"selected_articles": []}`,
		},
		{
			name:     "generic code block",
			input:    "```\n{\"selected_articles\": []}\n```",
			expected: `{"selected_articles": []}`,
		},
		{
			name:     "plain JSON",
			input:    `{"selected_articles": []}`,
			expected: `{"selected_articles": []}`,
		},
		{
			name:     "not json at all",
			input:    "I cannot help with that.",
			expected: "I cannot help with that.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestCleanJSONBlock_PreambleText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "preamble before JSON object",
			input:    "以下が選択結果です:\n{\"selected_articles\": [{\"number\": 1}]}",
			expected: `{"selected_articles": [{"number": 1}]}`,
		},
		{
			name:     "JSON with trailing text",
			input:    "{\"selected_articles\": []}\n\nLet me know if you need anything else!",
			expected: `{"selected_articles": []}`,
		},
		{
			name:     "preamble before JSON array",
			input:    "Here are the items:\n[1, 2]",
			expected: `[1, 2]`,
		},
		{
			name:     "escaped quotes and braces in strings",
			input:    `Result: {"reason": "He said \"{hello}\""}`,
			expected: `{"reason": "He said \"{hello}\""}`,
		},
		{
			name:     "unbalanced object left alone",
			input:    `{"selected_articles": [`,
			expected: `{"selected_articles": [`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple object", input: `{"key": "value"}`, expected: `{"key": "value"}`},
		{name: "nested objects", input: `{"outer": {"inner": "value"}}`, expected: `{"outer": {"inner": "value"}}`},
		{name: "object with trailing text", input: `{"key": "value"} and more`, expected: `{"key": "value"}`},
		{name: "string with braces inside", input: `{"template": "Hello {name}!"}`, expected: `{"template": "Hello {name}!"}`},
		{name: "empty input", input: "", expected: ""},
		{name: "not starting with brace", input: "not json", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONObject(tt.input))
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "nested arrays", input: `[[1, 2], [3, 4]]`, expected: `[[1, 2], [3, 4]]`},
		{name: "array of objects", input: `[{"id": 1}, {"id": 2}]`, expected: `[{"id": 1}, {"id": 2}]`},
		{name: "array with trailing text", input: `[1, 2, 3] extra`, expected: `[1, 2, 3]`},
		{name: "not starting with bracket", input: "not array", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSONArray(tt.input))
		})
	}
}
