package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sift/internal/analysis"
	"sift/internal/breaker"
	"sift/internal/llmschema"
	"sift/internal/logging"
	"sift/internal/services"
	"sift/internal/store"
	"sift/internal/transcript"
)

// Stage names used in errors, logs and repaired-stage metadata.
const (
	StageProblemAreas     = "problem_areas"
	StageExcerpts         = "excerpts"
	StageSynthesis        = "synthesis"
	StagePersonas         = "personas"
	StagePersonaSynthesis = "persona_synthesis"
)

// Persister stores a finished analysis.
type Persister interface {
	Persist(ctx context.Context, result *analysis.Result, meta store.Metadata) (store.Record, error)
}

// Options configures an Analyzer or PersonaSuggester.
type Options struct {
	Model ModelClient
	// Breakers supplies the per-provider circuit breaker. Nil disables it.
	Breakers        *breaker.Registry
	Logger          *slog.Logger
	CallTimeout     time.Duration
	MaxProblemAreas int
	Store           Persister
}

// Analyzer runs the three-stage problem area pipeline.
type Analyzer struct {
	caller   caller
	store    Persister
	logger   *slog.Logger
	problems Stage[[]transcript.Chunk, []analysis.ProblemArea]
	excerpts Stage[excerptInput, []analysis.ExcerptGroup]
	summary  Stage[[]analysis.ProblemArea, analysis.Synthesis]
}

// NewAnalyzer validates opts and builds the pipeline. A missing model client
// is a ConfigurationError.
func NewAnalyzer(opts Options) (*Analyzer, error) {
	c, err := newCaller(opts, "analyzer")
	if err != nil {
		return nil, err
	}
	maxAreas := opts.MaxProblemAreas
	if maxAreas <= 0 {
		maxAreas = llmschema.DefaultMaxProblemAreas
	}
	return &Analyzer{
		caller: c,
		store:  opts.Store,
		logger: c.logger,
		problems: Stage[[]transcript.Chunk, []analysis.ProblemArea]{
			Name:   StageProblemAreas,
			Render: renderProblemAreas(maxAreas),
			Schema: llmschema.ProblemAreas(maxAreas),
		},
		excerpts: Stage[excerptInput, []analysis.ExcerptGroup]{
			Name:   StageExcerpts,
			Render: renderExcerpts,
			Schema: llmschema.Excerpts(),
		},
		summary: Stage[[]analysis.ProblemArea, analysis.Synthesis]{
			Name:   StageSynthesis,
			Render: renderSynthesis,
			Schema: llmschema.Synthesis(),
		},
	}, nil
}

func newCaller(opts Options, component string) (caller, error) {
	if opts.Model == nil {
		return caller{}, &Error{Kind: KindConfiguration, Message: "model client required"}
	}
	c := caller{
		model:   opts.Model,
		timeout: opts.CallTimeout,
		logger:  logging.NewComponentLogger(opts.Logger, component),
	}
	if opts.Breakers != nil {
		c.breaker = opts.Breakers.Get(opts.Model.Name())
	}
	return c, nil
}

// Analyze segments raw caption text and runs every stage in order. Any
// failure aborts the run; no partial result is returned.
func (a *Analyzer) Analyze(ctx context.Context, raw string) (*analysis.Result, error) {
	chunks := transcript.Segment(raw)
	if len(chunks) == 0 {
		return nil, noContent()
	}
	ctx = ensureAnalysisID(ctx)
	logger := logging.WithContext(ctx, a.logger)
	started := time.Now()
	logger.Info("analysis started",
		logging.String(logging.FieldEventType, "analysis_start"),
		logging.Int("chunk_count", len(chunks)),
	)

	var repaired repairs

	areas, err := a.problems.Run(ctx, a.caller, chunks)
	if err != nil {
		return nil, err
	}
	repaired.note(StageProblemAreas, areas.Repaired, areas.ManuallyValidated)

	groups, err := a.excerpts.Run(ctx, a.caller, excerptInput{chunks: chunks, areas: areas.Value})
	if err != nil {
		return nil, err
	}
	repaired.note(StageExcerpts, groups.Repaired, groups.ManuallyValidated)

	merged, report := analysis.Merge(areas.Value, groups.Value)
	if len(report.Orphaned) > 0 || len(report.Duplicates) > 0 {
		logging.WarnWithContext(logger, "excerpt groups dropped during merge", "merge_dropped",
			logging.Any("orphaned_ids", report.Orphaned),
			logging.Any("duplicate_ids", report.Duplicates),
			logging.String(logging.FieldImpact, "excerpts for unknown problem areas were discarded"),
		)
	}

	synthesis, err := a.summary.Run(ctx, a.caller, merged)
	if err != nil {
		return nil, err
	}
	repaired.note(StageSynthesis, synthesis.Repaired, synthesis.ManuallyValidated)

	result := analysis.Assemble(chunks, merged, synthesis.Value, repaired.options())
	meta := result.Metadata()
	if meta.UnresolvedExcerptCount > 0 {
		logging.WarnWithContext(logger, "excerpts reference unknown chunks", "unresolved_excerpts",
			logging.Int("unresolved_count", meta.UnresolvedExcerptCount),
			logging.String(logging.FieldImpact, "excerpts kept and flagged unresolved"),
		)
	}
	logger.Info("analysis completed",
		logging.String(logging.FieldEventType, "analysis_complete"),
		logging.Int("problem_area_count", meta.ProblemAreaCount),
		logging.Int("excerpt_count", meta.ExcerptCount),
		logging.Bool("manually_validated", meta.ManuallyValidated),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// AnalyzeAndStore runs Analyze and persists the result. A persistence
// failure is a StorageError; the computed result is not returned.
func (a *Analyzer) AnalyzeAndStore(ctx context.Context, raw string, meta store.Metadata) (store.Record, *analysis.Result, error) {
	if a.store == nil {
		return store.Record{}, nil, &Error{Kind: KindConfiguration, Message: "no store configured"}
	}
	ctx = ensureAnalysisID(ctx)
	result, err := a.Analyze(ctx, raw)
	if err != nil {
		return store.Record{}, nil, err
	}
	if id, ok := services.AnalysisIDFromContext(ctx); ok && meta.ID == "" {
		meta.ID = id
	}
	record, err := a.store.Persist(ctx, result, meta)
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, a.logger), "persist analysis failed", "persist_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check data_dir permissions and free space"),
		)
		return store.Record{}, nil, &Error{Kind: KindStorage, Message: "persist analysis", Err: err}
	}
	return record, result, nil
}

func ensureAnalysisID(ctx context.Context) context.Context {
	if _, ok := services.AnalysisIDFromContext(ctx); ok {
		return ctx
	}
	return services.WithAnalysisID(ctx, uuid.NewString())
}

type repairs struct {
	stages []string
	manual bool
}

func (r *repairs) note(stage string, repaired, manual bool) {
	if repaired {
		r.stages = append(r.stages, stage)
	}
	r.manual = r.manual || manual
}

func (r repairs) options() analysis.AssembleOptions {
	return analysis.AssembleOptions{ManuallyValidated: r.manual, RepairedStages: r.stages}
}
