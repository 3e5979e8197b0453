package analysis

import (
	"sift/internal/transcript"
)

// AssembleOptions carries run-level flags gathered while validating stage output.
type AssembleOptions struct {
	ManuallyValidated bool
	RepairedStages    []string
}

// Assemble binds merged problem areas back to the transcript and computes
// summary metadata.
//
// Excerpts whose chunk number resolves get an empty quote backfilled from the
// chunk text. Excerpts whose chunk number does not resolve are kept and marked
// Unresolved. Inputs are copied; the caller may reuse them.
func Assemble(chunks []transcript.Chunk, areas []ProblemArea, synthesis Synthesis, opts AssembleOptions) *Result {
	lookup := transcript.Index(chunks)

	doc := Document{
		Transcript:   append([]transcript.Chunk{}, chunks...),
		ProblemAreas: cloneProblemAreas(areas),
		Synthesis:    synthesis,
		Metadata: Metadata{
			TranscriptLength:  len(chunks),
			ProblemAreaCount:  len(areas),
			ManuallyValidated: opts.ManuallyValidated,
			RepairedStages:    append([]string(nil), opts.RepairedStages...),
		},
	}

	for i := range doc.ProblemAreas {
		excerpts := doc.ProblemAreas[i].Excerpts
		for j := range excerpts {
			chunk, ok := lookup[excerpts[j].ChunkNumber]
			if !ok {
				excerpts[j].Unresolved = true
				doc.Metadata.UnresolvedExcerptCount++
				continue
			}
			excerpts[j].Unresolved = false
			if excerpts[j].Quote == "" {
				excerpts[j].Quote = chunk.Text
			}
		}
		doc.Metadata.ExcerptCount += len(excerpts)
	}

	return &Result{doc: doc}
}
