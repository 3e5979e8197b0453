package llmschema

import (
	"fmt"
	"strings"
)

// MetadataKey is the optional top-level object carried alongside every
// schema's payload. The fallback step records ManuallyValidatedKey in it.
const (
	MetadataKey          = "metadata"
	ManuallyValidatedKey = "manuallyValidated"
)

// Issue is one schema violation found while validating a document.
type Issue struct {
	Path    string
	Problem string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Problem
	}
	return i.Path + ": " + i.Problem
}

// ValidationError reports a document that still failed validation after
// structural repair and could not be reduced to a valid fallback.
type ValidationError struct {
	Schema string
	Issues []Issue
	Err    error
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.String())
	}
	msg := fmt.Sprintf("validate %s response", e.Schema)
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Schema describes how one kind of model response is validated, repaired and
// converted into T.
type Schema[T any] struct {
	Name    string
	Aliases AliasTable
	// Decode validates doc strictly and converts it. Any returned issue
	// rejects the document.
	Decode func(doc map[string]any) (T, []Issue)
	// Repair performs structural repair in place after aliases have been
	// coalesced: missing optional containers, scalar-to-list coercion and
	// similar fixes that do not discard data.
	Repair func(doc map[string]any)
	// Fallback builds the smallest valid value from the parts of doc that
	// validate. An error means nothing usable survived.
	Fallback func(doc map[string]any) (T, error)
}

// Outcome is the result of applying a schema to a response.
type Outcome[T any] struct {
	Value T
	// Repaired is set when the response needed structural repair or fallback.
	Repaired bool
	// ManuallyValidated is set when the value came from the fallback step.
	ManuallyValidated bool
	// Issues lists the violations that triggered repair.
	Issues []Issue
	// Metadata is the response's metadata object after repair.
	Metadata map[string]any
}

// Apply runs the full ladder: extraction, validation, structural repair,
// re-validation and manual fallback. It fails only with *ParseError for text
// with no JSON object, or *ValidationError when the fallback cannot produce
// a valid value.
func (s Schema[T]) Apply(raw string) (Outcome[T], error) {
	var out Outcome[T]
	doc, err := Extract(raw)
	if err != nil {
		if parseErr, ok := err.(*ParseError); ok {
			parseErr.Schema = s.Name
		}
		return out, err
	}

	value, issues := s.Decode(doc)
	if len(issues) == 0 {
		out.Value = value
		out.Metadata = metadataOf(doc)
		return out, nil
	}
	out.Repaired = true
	out.Issues = issues

	s.Aliases.Apply(doc)
	ensureMetadata(doc)
	if s.Repair != nil {
		s.Repair(doc)
	}
	value, remaining := s.Decode(doc)
	if len(remaining) == 0 {
		out.Value = value
		out.Metadata = metadataOf(doc)
		return out, nil
	}

	if s.Fallback == nil {
		return out, &ValidationError{Schema: s.Name, Issues: remaining}
	}
	value, err = s.Fallback(doc)
	if err != nil {
		return out, &ValidationError{Schema: s.Name, Issues: remaining, Err: err}
	}
	meta := ensureMetadata(doc)
	meta[ManuallyValidatedKey] = true
	out.Value = value
	out.ManuallyValidated = true
	out.Issues = remaining
	out.Metadata = meta
	return out, nil
}

func ensureMetadata(doc map[string]any) map[string]any {
	if meta, ok := doc[MetadataKey].(map[string]any); ok {
		return meta
	}
	meta := map[string]any{}
	doc[MetadataKey] = meta
	return meta
}

func metadataOf(doc map[string]any) map[string]any {
	if meta, ok := doc[MetadataKey].(map[string]any); ok {
		return meta
	}
	return map[string]any{}
}
