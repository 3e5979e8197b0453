package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"sift/internal/breaker"
	"sift/internal/llmschema"
	"sift/internal/services"
)

// Kind classifies pipeline failures for callers. The set is closed.
type Kind string

const (
	KindNoContent     Kind = "NoContent"
	KindConfiguration Kind = "ConfigurationError"
	KindParse         Kind = "ParseError"
	KindValidation    Kind = "ValidationError"
	KindCall          Kind = "CallError"
	KindStorage       Kind = "StorageError"
	KindPipeline      Kind = "PipelineError"
)

// Error is the stage-scoped failure returned by the analysis pipelines.
type Error struct {
	Kind    Kind
	Stage   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Stage != "" {
		b.WriteString(" [")
		b.WriteString(e.Stage)
		b.WriteByte(']')
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf maps any error to its kind. Errors that did not come from the
// pipeline are classified by their markers and otherwise reported as
// PipelineError.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		return pipeErr.Kind
	}
	var parseErr *llmschema.ParseError
	var validationErr *llmschema.ValidationError
	switch {
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &validationErr):
		return KindValidation
	case services.IsConfiguration(err):
		return KindConfiguration
	case errors.Is(err, breaker.ErrOpen),
		errors.Is(err, services.ErrExternalService),
		errors.Is(err, services.ErrTimeout),
		errors.Is(err, services.ErrEmptyResponse),
		errors.Is(err, services.ErrTransient),
		errors.Is(err, context.DeadlineExceeded):
		return KindCall
	default:
		return KindPipeline
	}
}

// MessageOf returns the caller-facing message for err. Unclassified errors
// are reduced to a generic message so internal detail does not leak.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var pipeErr *Error
	if errors.As(err, &pipeErr) {
		msg := pipeErr.Message
		if pipeErr.Stage != "" {
			msg = fmt.Sprintf("%s stage: %s", pipeErr.Stage, msg)
		}
		if pipeErr.Kind != KindPipeline && pipeErr.Err != nil {
			msg = msg + ": " + pipeErr.Err.Error()
		}
		return msg
	}
	if KindOf(err) == KindPipeline {
		return "internal pipeline failure"
	}
	return err.Error()
}

// HTTPStatus maps a kind to the status code used by the HTTP boundary.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNoContent:
		return http.StatusUnprocessableEntity
	case KindParse, KindValidation:
		return http.StatusBadGateway
	case KindCall:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps a kind to a process exit status for the CLI.
func ExitCode(kind Kind) int {
	switch kind {
	case "":
		return 0
	case KindNoContent:
		return 3
	case KindConfiguration:
		return 4
	case KindParse, KindValidation:
		return 5
	case KindCall:
		return 6
	case KindStorage:
		return 7
	default:
		return 1
	}
}

func noContent() error {
	return &Error{Kind: KindNoContent, Message: "transcript contains no time-delimited cues"}
}

func callError(stage string, err error) error {
	kind := KindCall
	message := "model call failed"
	switch {
	case services.IsConfiguration(err):
		kind = KindConfiguration
		message = "model client misconfigured"
	case errors.Is(err, breaker.ErrOpen):
		message = "model provider unavailable (circuit open)"
	case errors.Is(err, services.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		message = "model call timed out"
	}
	return &Error{Kind: kind, Stage: stage, Message: message, Err: err}
}

func schemaError(stage string, err error) error {
	var parseErr *llmschema.ParseError
	if errors.As(err, &parseErr) {
		return &Error{Kind: KindParse, Stage: stage, Message: "model response is not JSON", Err: err}
	}
	var validationErr *llmschema.ValidationError
	if errors.As(err, &validationErr) {
		return &Error{Kind: KindValidation, Stage: stage, Message: "model response failed validation", Err: err}
	}
	return &Error{Kind: KindPipeline, Stage: stage, Message: "unexpected schema failure", Err: err}
}
