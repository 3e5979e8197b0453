package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"sift/internal/analysis"
	"sift/internal/transcript"
)

// ProblemAreaPrompt asks for the problem areas discussed in an interview.
const ProblemAreaPrompt = `Read the customer interview transcript below. Each line is one numbered chunk: "[number] speaker: text".

Identify at most %d distinct problem areas the interviewee describes. A problem area is a recurring difficulty, unmet need or workaround, not a feature request.

Respond ONLY with JSON: {"problemAreas": [{"id": "1", "title": "short title", "description": "one or two sentences"}]}
Use ids "1", "2", ... in order. Return an empty list if the interview describes no problems.

Transcript:
%s`

// ExcerptPrompt asks for supporting evidence for each problem area.
const ExcerptPrompt = `Read the customer interview transcript and the problem areas below.

For every problem area, select verbatim excerpts from the transcript that support it. Classify each excerpt with one or more of these categories: %s.

Respond ONLY with JSON: {"problemAreas": [{"id": "<problem area id>", "excerpts": [{"quote": "verbatim text", "categories": ["PainPoint"], "insight": "why it matters", "chunkNumber": 1}]}]}
Use only the problem area ids listed. chunkNumber must be the number of the chunk the quote comes from.

Problem areas:
%s

Transcript:
%s`

// SynthesisPrompt asks for a narrative across the merged problem areas.
const SynthesisPrompt = `You are given the problem areas found in a customer interview, each with supporting excerpts.

Write a concise synthesis (one to three paragraphs) describing the interviewee's situation, their most important problems and what an ideal solution would change for them.

Respond ONLY with JSON: {"text": "synthesis"}

Problem areas:
%s`

// PersonaPrompt asks for the personas represented in an interview.
const PersonaPrompt = `Read the customer interview transcript below. Each line is one numbered chunk: "[number] speaker: text".

Describe the user personas the interviewee represents. For each persona give a name, their role, their goals and their frustrations, and list the chunk numbers that support the description.

Respond ONLY with JSON: {"personas": [{"id": "persona-1", "name": "...", "role": "...", "goals": ["..."], "frustrations": ["..."], "chunkNumbers": [1, 2]}]}

Transcript:
%s`

// PersonaSynthesisPrompt asks for a headline and narrative across personas.
const PersonaSynthesisPrompt = `You are given the personas identified in a customer interview.

Write a short title and a narrative paragraph describing who these users are and what connects them.

Respond ONLY with JSON: {"title": "...", "narrative": "..."}

Personas:
%s`

type excerptInput struct {
	chunks []transcript.Chunk
	areas  []analysis.ProblemArea
}

type promptArea struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Excerpts    []analysis.Excerpt `json:"excerpts,omitempty"`
}

func renderProblemAreas(maxAreas int) func([]transcript.Chunk) (string, error) {
	return func(chunks []transcript.Chunk) (string, error) {
		return fmt.Sprintf(ProblemAreaPrompt, maxAreas, transcript.Format(chunks)), nil
	}
}

func renderExcerpts(in excerptInput) (string, error) {
	areas, err := encodeAreas(in.areas, false)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(ExcerptPrompt, categoryList(), areas, transcript.Format(in.chunks)), nil
}

func renderSynthesis(areas []analysis.ProblemArea) (string, error) {
	encoded, err := encodeAreas(areas, true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(SynthesisPrompt, encoded), nil
}

func renderPersonas(chunks []transcript.Chunk) (string, error) {
	return fmt.Sprintf(PersonaPrompt, transcript.Format(chunks)), nil
}

func renderPersonaSynthesis(personas []analysis.Persona) (string, error) {
	encoded, err := json.MarshalIndent(personas, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode personas: %w", err)
	}
	return fmt.Sprintf(PersonaSynthesisPrompt, encoded), nil
}

func encodeAreas(areas []analysis.ProblemArea, withExcerpts bool) (string, error) {
	out := make([]promptArea, 0, len(areas))
	for _, area := range areas {
		entry := promptArea{ID: area.ID, Title: area.Title, Description: area.Description}
		if withExcerpts {
			entry.Excerpts = area.Excerpts
		}
		out = append(out, entry)
	}
	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode problem areas: %w", err)
	}
	return string(encoded), nil
}

func categoryList() string {
	categories := analysis.AllCategories()
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, string(category))
	}
	return strings.Join(names, ", ")
}
