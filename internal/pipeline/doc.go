// Package pipeline orchestrates the model-backed analysis of interview
// transcripts.
//
// A Stage renders a prompt, makes exactly one model call under a fixed
// timeout and validates the response through an llmschema.Schema. The
// Analyzer composes three stages (problem areas, excerpts, synthesis) with an
// id merge between the second and third; the PersonaSuggester composes two.
// Stages run strictly in order and the first failure aborts the run with an
// *Error whose Kind callers map to exit codes or HTTP statuses. Nothing is
// retried.
package pipeline
