package llmschema

import (
	"strings"

	"sift/internal/analysis"
)

// Placeholder texts injected when a synthesis response omits its narrative.
const (
	PlaceholderSynthesis = "No synthesis was generated for this transcript."
	PlaceholderTitle     = "Untitled"
)

// SynthesisAliases lists field spellings seen in stage-three responses.
var SynthesisAliases = AliasTable{
	Version: 1,
	Fields: map[string]string{
		"synthesis": "text",
		"summary":   "text",
		"narrative": "text",
	},
}

// PersonaSynthesisAliases lists field spellings seen in persona synthesis
// responses.
var PersonaSynthesisAliases = AliasTable{
	Version: 1,
	Fields: map[string]string{
		"name":      "title",
		"headline":  "title",
		"story":     "narrative",
		"summary":   "narrative",
		"synthesis": "narrative",
		"text":      "narrative",
	},
}

// Synthesis validates the stage-three payload {"text": "..."}.
func Synthesis() Schema[analysis.Synthesis] {
	return Schema[analysis.Synthesis]{
		Name:    "synthesis",
		Aliases: SynthesisAliases,
		Decode: func(doc map[string]any) (analysis.Synthesis, []Issue) {
			var c checker
			text := c.str(doc, "text", "", true)
			return analysis.Synthesis{Text: text}, c.issues
		},
		Repair: func(doc map[string]any) {
			doc["text"] = liftText(doc["text"], "text", PlaceholderSynthesis)
		},
		Fallback: func(doc map[string]any) (analysis.Synthesis, error) {
			return analysis.Synthesis{Text: PlaceholderSynthesis}, nil
		},
	}
}

// PersonaSynthesis validates the persona payload {"title", "narrative"}.
func PersonaSynthesis() Schema[analysis.Synthesis] {
	return Schema[analysis.Synthesis]{
		Name:    "persona synthesis",
		Aliases: PersonaSynthesisAliases,
		Decode: func(doc map[string]any) (analysis.Synthesis, []Issue) {
			var c checker
			out := analysis.Synthesis{
				Title:     c.str(doc, "title", "", true),
				Narrative: c.str(doc, "narrative", "", true),
			}
			return out, c.issues
		},
		Repair: func(doc map[string]any) {
			doc["title"] = liftText(doc["title"], "title", PlaceholderTitle)
			doc["narrative"] = liftText(doc["narrative"], "narrative", PlaceholderSynthesis)
		},
		Fallback: func(doc map[string]any) (analysis.Synthesis, error) {
			out := analysis.Synthesis{Title: PlaceholderTitle, Narrative: PlaceholderSynthesis}
			if title, ok := doc["title"].(string); ok && trim(title) != "" {
				out.Title = trim(title)
			}
			if narrative, ok := doc["narrative"].(string); ok && trim(narrative) != "" {
				out.Narrative = trim(narrative)
			}
			return out, nil
		},
	}
}

// liftText returns value when it is a non-empty string. A nested object
// carrying the same key is flattened; anything else becomes placeholder.
func liftText(value any, key, placeholder string) any {
	switch v := value.(type) {
	case string:
		if trim(v) != "" {
			return v
		}
	case map[string]any:
		if inner, ok := v[key].(string); ok && trim(inner) != "" {
			return inner
		}
	}
	return placeholder
}

func trim(value string) string {
	return strings.TrimSpace(value)
}
