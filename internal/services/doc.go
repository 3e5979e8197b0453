// Package services defines shared utilities consumed by the pipeline stages
// and the model provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp analysis IDs, stage names, transcript
//     sources, and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so provider failures can
//     be classified (configuration vs call failure) at the pipeline boundary.
//
// Provider clients live in subpackages: llm (OpenRouter chat completions) and
// gemini (Google Gen AI).
package services
