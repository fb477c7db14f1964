// File: internal/planner/content.go
package planner

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// UnwrapContent extracts plain text from the planner's content field, which
// arrives in several shapes depending on the upstream model wrapper: a bare
// string, a stringified JSON array, an actual array of text parts, or an
// object with a text-like field.
func UnwrapContent(raw jsoniter.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return unwrapString(s)
	}

	var parts []contentPart
	if err := json.Unmarshal(raw, &parts); err == nil && len(parts) > 0 {
		if text := parts[0].text(); text != "" {
			return text
		}
	}

	var obj contentPart
	if err := json.Unmarshal(raw, &obj); err == nil {
		if text := obj.text(); text != "" {
			return text
		}
	}
	return strings.TrimSpace(string(raw))
}

// unwrapString handles content that is itself a stringified JSON array of
// text parts.
func unwrapString(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[{") {
		return s
	}
	var parts []contentPart
	if err := json.Unmarshal([]byte(trimmed), &parts); err != nil || len(parts) == 0 {
		return s
	}
	if text := parts[0].text(); text != "" {
		return text
	}
	return s
}

type contentPart struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	Message string `json:"message"`
	Content string `json:"content"`
}

func (p contentPart) text() string {
	switch {
	case p.Text != "":
		return p.Text
	case p.Message != "":
		return p.Message
	case p.Content != "":
		return p.Content
	}
	return ""
}
