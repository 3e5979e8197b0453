package analysis

import (
	"encoding/json"
	"slices"

	"sift/internal/transcript"
)

// Persona is a participant archetype suggested from a transcript.
type Persona struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Role         string   `json:"role" yaml:"role"`
	Goals        []string `json:"goals" yaml:"goals"`
	Frustrations []string `json:"frustrations" yaml:"frustrations"`
	ChunkNumbers []int    `json:"chunkNumbers" yaml:"chunkNumbers"`
	// UnresolvedChunks lists entries of ChunkNumbers that match no chunk.
	UnresolvedChunks []int `json:"unresolvedChunks,omitempty" yaml:"unresolvedChunks,omitempty"`
}

// PersonaMetadata summarizes a persona result.
type PersonaMetadata struct {
	TranscriptLength  int      `json:"transcriptLength" yaml:"transcriptLength"`
	PersonaCount      int      `json:"personaCount" yaml:"personaCount"`
	ManuallyValidated bool     `json:"manuallyValidated" yaml:"manuallyValidated"`
	RepairedStages    []string `json:"repairedStages,omitempty" yaml:"repairedStages,omitempty"`
}

// PersonaDocument is the serializable form of a PersonaResult.
type PersonaDocument struct {
	Transcript []transcript.Chunk `json:"transcript" yaml:"transcript"`
	Personas   []Persona          `json:"personas" yaml:"personas"`
	Synthesis  Synthesis          `json:"synthesis" yaml:"synthesis"`
	Metadata   PersonaMetadata    `json:"metadata" yaml:"metadata"`
}

// PersonaResult is the assembled output of a persona suggestion run.
type PersonaResult struct {
	doc PersonaDocument
}

// AssemblePersonas binds suggested personas to the transcript, recording
// chunk references that do not resolve.
func AssemblePersonas(chunks []transcript.Chunk, personas []Persona, synthesis Synthesis, opts AssembleOptions) *PersonaResult {
	lookup := transcript.Index(chunks)
	out := make([]Persona, len(personas))
	for i, persona := range personas {
		out[i] = clonePersona(persona)
		out[i].UnresolvedChunks = nil
		for _, number := range out[i].ChunkNumbers {
			if _, ok := lookup[number]; !ok {
				out[i].UnresolvedChunks = append(out[i].UnresolvedChunks, number)
			}
		}
	}
	return &PersonaResult{doc: PersonaDocument{
		Transcript: append([]transcript.Chunk{}, chunks...),
		Personas:   out,
		Synthesis:  synthesis,
		Metadata: PersonaMetadata{
			TranscriptLength:  len(chunks),
			PersonaCount:      len(out),
			ManuallyValidated: opts.ManuallyValidated,
			RepairedStages:    append([]string(nil), opts.RepairedStages...),
		},
	}}
}

// Personas returns a deep copy of the suggested personas.
func (r *PersonaResult) Personas() []Persona {
	out := make([]Persona, len(r.doc.Personas))
	for i, persona := range r.doc.Personas {
		out[i] = clonePersona(persona)
	}
	return out
}

func (r *PersonaResult) Synthesis() Synthesis { return r.doc.Synthesis }

func (r *PersonaResult) Metadata() PersonaMetadata {
	meta := r.doc.Metadata
	meta.RepairedStages = append([]string(nil), meta.RepairedStages...)
	return meta
}

// Document returns a deep copy of the serializable form.
func (r *PersonaResult) Document() PersonaDocument {
	return PersonaDocument{
		Transcript: append([]transcript.Chunk{}, r.doc.Transcript...),
		Personas:   r.Personas(),
		Synthesis:  r.doc.Synthesis,
		Metadata:   r.Metadata(),
	}
}

func (r *PersonaResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.doc)
}

func (r *PersonaResult) MarshalYAML() (any, error) {
	return r.Document(), nil
}

func clonePersona(persona Persona) Persona {
	persona.Goals = slices.Clone(persona.Goals)
	persona.Frustrations = slices.Clone(persona.Frustrations)
	persona.ChunkNumbers = slices.Clone(persona.ChunkNumbers)
	persona.UnresolvedChunks = slices.Clone(persona.UnresolvedChunks)
	if persona.Goals == nil {
		persona.Goals = []string{}
	}
	if persona.Frustrations == nil {
		persona.Frustrations = []string{}
	}
	if persona.ChunkNumbers == nil {
		persona.ChunkNumbers = []int{}
	}
	return persona
}
