// Package llmschema turns loosely formatted model responses into typed
// values.
//
// Every response goes through the same ladder. Extract locates one JSON
// object (fenced block interior, whole text, then first '{' to last '}');
// failure there is a terminal *ParseError. The object is validated
// strictly. On failure the schema's versioned AliasTable coalesces known
// field-name variants, Repair injects missing optional containers and
// coerces scalars into lists, and the object is validated again. If it is
// still invalid the schema's Fallback keeps whichever entries validate on
// their own and the outcome is marked manually validated. Only a fallback
// that cannot find the schema's top-level container yields a
// *ValidationError.
//
// Schemas: ProblemAreas (stage one), Excerpts (stage two), Synthesis (stage
// three), Personas and PersonaSynthesis (persona suggestion).
package llmschema
