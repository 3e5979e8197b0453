package pipeline

import (
	"context"
	"log/slog"
	"time"

	"sift/internal/breaker"
	"sift/internal/llmschema"
	"sift/internal/logging"
	"sift/internal/services"
)

// ModelClient is the text-generation capability every stage calls once.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// DefaultCallTimeout bounds a single model call when no timeout is configured.
const DefaultCallTimeout = 60 * time.Second

// Stage renders a prompt from In, calls the model once and validates the
// response into Out.
type Stage[In, Out any] struct {
	Name   string
	Render func(In) (string, error)
	Schema llmschema.Schema[Out]
}

// caller carries the collaborators shared by every stage of one pipeline.
type caller struct {
	model   ModelClient
	breaker *breaker.Breaker
	timeout time.Duration
	logger  *slog.Logger
}

// Run executes the stage. The model call is detached from ctx cancellation
// and bounded by the caller's timeout. There is no retry.
func (s Stage[In, Out]) Run(ctx context.Context, c caller, in In) (llmschema.Outcome[Out], error) {
	var out llmschema.Outcome[Out]
	ctx = services.WithStage(ctx, s.Name)
	logger := logging.WithContext(ctx, c.logger)

	prompt, err := s.Render(in)
	if err != nil {
		return out, &Error{Kind: KindPipeline, Stage: s.Name, Message: "render prompt", Err: err}
	}

	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			logging.WarnWithContext(logger, "model call rejected", "breaker_open",
				logging.String("provider", c.model.Name()),
				logging.String(logging.FieldErrorHint, "wait for the breaker reset window or check provider status"),
				logging.String(logging.FieldImpact, "analysis aborted"),
			)
			return out, callError(s.Name, err)
		}
	}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	started := time.Now()
	raw, err := c.model.Complete(callCtx, prompt)
	if err == nil && callCtx.Err() != nil {
		err = callCtx.Err()
	}
	if c.breaker != nil {
		c.breaker.Record(err)
	}
	if err != nil {
		logging.ErrorWithContext(logger, "model call failed", "model_call_failed",
			logging.String("provider", c.model.Name()),
			logging.Duration("elapsed", time.Since(started)),
			logging.Error(err),
		)
		return out, callError(s.Name, err)
	}

	out, err = s.Schema.Apply(raw)
	if err != nil {
		logging.ErrorWithContext(logger, "model response rejected", "stage_schema_failed",
			logging.String("schema", s.Schema.Name),
			logging.Error(err),
		)
		return out, schemaError(s.Name, err)
	}
	if out.Repaired {
		logging.WarnWithContext(logger, "model response repaired", "stage_repaired",
			logging.Int("issue_count", len(out.Issues)),
			logging.Bool("manually_validated", out.ManuallyValidated),
			logging.String(logging.FieldImpact, "result flagged as repaired"),
		)
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", time.Since(started)),
		logging.Int("response_bytes", len(raw)),
	)
	return out, nil
}
