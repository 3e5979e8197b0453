// Package llm provides an OpenRouter chat client used as the model client of
// the analysis pipeline.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send one rendered prompt under the analyst system prompt.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// Transport retries are off by default (one attempt). WithRetryMaxAttempts
// enables retries on HTTP 408/429/5xx, empty content and network timeouts
// with exponential backoff (base 1s, max 10s). Context cancellation aborts
// retries immediately. The pipeline itself never retries.
//
// # Errors
//
// Failures carry services markers: ErrConfiguration for a missing API key,
// ErrTimeout for deadline or network timeouts, ErrEmptyResponse when the
// provider returns no content, and ErrExternalService otherwise.
package llm
