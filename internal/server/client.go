package server

import (
	"encoding/json"
	"strings"
)

// Client application names recognised from request bodies.
const (
	ClientChatAI   = "ChatAI"
	ClientChromeAI = "chrome-AI"
	ClientUnknown  = "Unknown"
)

// ClientAppName identifies the caller from a JSON body: an explicit
// client_name wins, then a "query" key means the browser extension, then
// "messages" or a chatai referer means the chat UI.
func ClientAppName(contentType string, body []byte, referer string) string {
	if !strings.Contains(strings.ToLower(contentType), "json") {
		return ClientUnknown
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return ClientUnknown
	}

	if name, _ := doc["client_name"].(string); name != "" {
		return name
	}
	if _, ok := doc["query"]; ok {
		return ClientChromeAI
	}
	if _, ok := doc["messages"]; ok || strings.Contains(referer, "chatai") {
		return ClientChatAI
	}
	return ClientUnknown
}

// logTag is the short client marker used in request log lines.
func logTag(client string) string {
	switch client {
	case ClientChatAI:
		return "CHAT"
	case ClientChromeAI:
		return "CHRM"
	default:
		return "UNKN"
	}
}
