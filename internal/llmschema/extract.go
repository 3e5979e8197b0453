package llmschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const fenceMarker = "```"

// Extract locates the single JSON object carried by a model response.
//
// Candidates are tried in order and the first one that decodes to an object
// wins: the interior of a fenced block when the text contains a fence
// marker, otherwise the whole text, then the span from the first '{' to the
// last '}' of that same text. Numbers are decoded as json.Number so integer
// checks stay exact.
func Extract(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ParseError{Reason: "empty response", Snippet: summarize(raw)}
	}
	if strings.Contains(text, fenceMarker) {
		text = fenceInterior(text)
	}
	if obj, ok := decodeObject(text); ok {
		return obj, nil
	}
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if obj, ok := decodeObject(text[start : end+1]); ok {
				return obj, nil
			}
		}
	}
	return nil, &ParseError{Reason: "no JSON object found", Snippet: summarize(raw)}
}

// fenceInterior returns the text between the first fence marker (and its
// optional language tag) and the next fence marker. An unterminated fence
// yields everything after the opening marker.
func fenceInterior(text string) string {
	start := strings.Index(text, fenceMarker)
	body := text[start+len(fenceMarker):]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		tag := strings.TrimSpace(body[:newline])
		if tag == "" || isLanguageTag(tag) {
			body = body[newline+1:]
		}
	}
	if end := strings.Index(body, fenceMarker); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

func isLanguageTag(tag string) bool {
	for _, r := range tag {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

func decodeObject(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, false
	}
	obj, ok := value.(map[string]any)
	return obj, ok
}

func summarize(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<empty>"
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}

// ParseError reports a response from which no JSON object could be
// recovered. It is terminal and never repaired.
type ParseError struct {
	Schema  string
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	if e.Schema != "" {
		return fmt.Sprintf("parse %s response: %s (payload snippet: %s)", e.Schema, e.Reason, e.Snippet)
	}
	return fmt.Sprintf("parse response: %s (payload snippet: %s)", e.Reason, e.Snippet)
}
