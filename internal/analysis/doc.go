// Package analysis holds the domain model produced by a transcript analysis
// run and the pure functions that finalize it.
//
// Merge attaches stage-two excerpts to the stage-one problem areas by id,
// keeping the stage-one list authoritative. Assemble binds the merged areas
// back to transcript chunks, backfills empty quotes, flags excerpts whose
// chunk reference does not resolve, and computes summary metadata. The
// resulting Result is immutable; every accessor returns a copy.
//
// AssemblePersonas is the equivalent finalizer for persona suggestion runs.
package analysis
