// Package store persists finished analyses in SQLite (modernc.org/sqlite).
//
// Each row keeps the serialized Result plus caller metadata (project, user,
// source name) and the headline counts used by listings. Schema changes are
// embedded SQL migrations applied on Open.
package store
