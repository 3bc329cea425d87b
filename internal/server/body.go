package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// maxValueLength is the longest alphanumeric or base64 value logged in full.
const maxValueLength = 100

var (
	alphanumeric  = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	base64Charset = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)
)

// sensitiveKeys are masked when the request is flagged confidential.
var sensitiveKeys = map[string]bool{
	"message":  true,
	"messages": true,
	"content":  true,
	"prompt":   true,
	"query":    true,
	"choices":  true,
}

// passThroughMarkers keep system values such as content types and file
// names intact.
var passThroughMarkers = []string{"content-type", ".xlsx", ".pdf", ".doc"}

// ParseAndTruncateBody renders a JSON body for logging with long opaque
// values shortened. A top-level "is_alt": true marks the body confidential,
// masking model inputs and outputs. Non-JSON bodies are returned as text.
func ParseAndTruncateBody(body []byte, confidential bool) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return string(body), confidential
	}

	if alt, ok := doc["is_alt"].(bool); ok {
		confidential = alt
	}

	truncated := truncateLongValues("root", doc, confidential)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(truncated); err != nil {
		return string(body), confidential
	}
	return strings.TrimSuffix(buf.String(), "\n"), confidential
}

func truncateLongValues(key string, value any, confidential bool) any {
	if confidential && sensitiveKeys[key] {
		return fmt.Sprintf("(%s is confidential)", key)
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = truncateLongValues(k, item, confidential)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = truncateLongValues(key, item, confidential)
		}
		return out
	case string:
		lower := strings.ToLower(v)
		for _, marker := range passThroughMarkers {
			if strings.Contains(lower, marker) {
				return v
			}
		}
		if len(v) > maxValueLength && (alphanumeric.MatchString(v) || isBase64(v)) {
			return v[:maxValueLength] + "...(truncated)"
		}
		return v
	default:
		return v
	}
}

// isBase64 reports whether s is padded standard base64.
func isBase64(s string) bool {
	if !base64Charset.MatchString(s) || len(s)%4 != 0 {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(s)
	return err == nil
}
