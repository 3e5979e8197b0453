package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sift/internal/analysis"
	"sift/internal/llmschema"
	"sift/internal/logging"
	"sift/internal/transcript"
)

// PersonaSuggester runs the two-stage persona pipeline.
type PersonaSuggester struct {
	caller    caller
	logger    *slog.Logger
	personas  Stage[[]transcript.Chunk, []analysis.Persona]
	narrative Stage[[]analysis.Persona, analysis.Synthesis]
}

// NewPersonaSuggester builds the persona pipeline from the same options as
// the analyzer. Store and MaxProblemAreas are ignored.
func NewPersonaSuggester(opts Options) (*PersonaSuggester, error) {
	c, err := newCaller(opts, "personas")
	if err != nil {
		return nil, err
	}
	return &PersonaSuggester{
		caller: c,
		logger: c.logger,
		personas: Stage[[]transcript.Chunk, []analysis.Persona]{
			Name:   StagePersonas,
			Render: renderPersonas,
			Schema: llmschema.Personas(),
		},
		narrative: Stage[[]analysis.Persona, analysis.Synthesis]{
			Name:   StagePersonaSynthesis,
			Render: renderPersonaSynthesis,
			Schema: llmschema.PersonaSynthesis(),
		},
	}, nil
}

// Suggest segments raw caption text and proposes personas.
func (p *PersonaSuggester) Suggest(ctx context.Context, raw string) (*analysis.PersonaResult, error) {
	chunks := transcript.Segment(raw)
	if len(chunks) == 0 {
		return nil, noContent()
	}
	ctx = ensureAnalysisID(ctx)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	var repaired repairs
	personas, err := p.personas.Run(ctx, p.caller, chunks)
	if err != nil {
		return nil, err
	}
	repaired.note(StagePersonas, personas.Repaired, personas.ManuallyValidated)

	narrative, err := p.narrative.Run(ctx, p.caller, personas.Value)
	if err != nil {
		return nil, err
	}
	repaired.note(StagePersonaSynthesis, narrative.Repaired, narrative.ManuallyValidated)

	result := analysis.AssemblePersonas(chunks, personas.Value, narrative.Value, repaired.options())
	logger.Info("persona suggestion completed",
		logging.String(logging.FieldEventType, "personas_complete"),
		logging.Int("persona_count", result.Metadata().PersonaCount),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}
