// Package breaker implements a consecutive-failure circuit breaker for
// downstream dependencies such as the model provider.
//
// A Registry is constructed once at process start and passed to the
// pipeline; tests build a fresh one per case. Breakers are safe for
// concurrent use by many pipeline runs.
package breaker
