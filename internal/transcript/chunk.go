package transcript

import (
	"fmt"
	"strings"
)

// Chunk is one numbered, speaker-attributed span of transcript text.
type Chunk struct {
	Number  int     `json:"number" yaml:"number"`
	Speaker string  `json:"speaker" yaml:"speaker"`
	Text    string  `json:"text" yaml:"text"`
	Start   float64 `json:"start,omitempty" yaml:"start,omitempty"`
	End     float64 `json:"end,omitempty" yaml:"end,omitempty"`
}

// Index builds a number -> chunk lookup.
func Index(chunks []Chunk) map[int]Chunk {
	lookup := make(map[int]Chunk, len(chunks))
	for _, chunk := range chunks {
		lookup[chunk.Number] = chunk
	}
	return lookup
}

// Format renders chunks as "[n] Speaker: text" lines for prompt input.
func Format(chunks []Chunk) string {
	var b strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] %s: %s\n", chunk.Number, chunk.Speaker, chunk.Text)
	}
	return b.String()
}
