package analysis

import (
	"encoding/json"
	"fmt"

	"sift/internal/transcript"
)

// Document is the serializable form of a Result.
type Document struct {
	Transcript   []transcript.Chunk `json:"transcript" yaml:"transcript"`
	ProblemAreas []ProblemArea      `json:"problemAreas" yaml:"problemAreas"`
	Synthesis    Synthesis          `json:"synthesis" yaml:"synthesis"`
	Metadata     Metadata           `json:"metadata" yaml:"metadata"`
}

// Result is the assembled analysis of one transcript. It is built once by
// Assemble (or Decode) and exposes only copies of its contents.
type Result struct {
	doc Document
}

// Transcript returns a copy of the chunk list the result was built from.
func (r *Result) Transcript() []transcript.Chunk {
	return append([]transcript.Chunk(nil), r.doc.Transcript...)
}

// ProblemAreas returns a deep copy of the merged problem areas.
func (r *Result) ProblemAreas() []ProblemArea {
	return cloneProblemAreas(r.doc.ProblemAreas)
}

// Synthesis returns the run's narrative synthesis.
func (r *Result) Synthesis() Synthesis {
	return r.doc.Synthesis
}

// Metadata returns summary counts for the result.
func (r *Result) Metadata() Metadata {
	meta := r.doc.Metadata
	meta.RepairedStages = append([]string(nil), meta.RepairedStages...)
	return meta
}

// Document returns a deep copy of the serializable form.
func (r *Result) Document() Document {
	return Document{
		Transcript:   r.Transcript(),
		ProblemAreas: r.ProblemAreas(),
		Synthesis:    r.Synthesis(),
		Metadata:     r.Metadata(),
	}
}

// MarshalJSON encodes the result document.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.doc)
}

// MarshalYAML exposes the document to yaml encoders.
func (r *Result) MarshalYAML() (any, error) {
	return r.Document(), nil
}

// Decode rebuilds a Result from its JSON document, re-checking the metadata
// invariants so a corrupted payload is rejected rather than trusted.
func Decode(data []byte) (*Result, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	if doc.Transcript == nil {
		doc.Transcript = []transcript.Chunk{}
	}
	if doc.ProblemAreas == nil {
		doc.ProblemAreas = []ProblemArea{}
	}
	for i := range doc.ProblemAreas {
		if doc.ProblemAreas[i].Excerpts == nil {
			doc.ProblemAreas[i].Excerpts = []Excerpt{}
		}
	}
	if err := checkMetadata(doc); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	return &Result{doc: doc}, nil
}

func checkMetadata(doc Document) error {
	excerpts := 0
	for _, area := range doc.ProblemAreas {
		excerpts += len(area.Excerpts)
	}
	switch {
	case doc.Metadata.TranscriptLength != len(doc.Transcript):
		return fmt.Errorf("transcriptLength %d does not match %d chunks", doc.Metadata.TranscriptLength, len(doc.Transcript))
	case doc.Metadata.ProblemAreaCount != len(doc.ProblemAreas):
		return fmt.Errorf("problemAreaCount %d does not match %d problem areas", doc.Metadata.ProblemAreaCount, len(doc.ProblemAreas))
	case doc.Metadata.ExcerptCount != excerpts:
		return fmt.Errorf("excerptCount %d does not match %d excerpts", doc.Metadata.ExcerptCount, excerpts)
	}
	return nil
}
