// Package api is the HTTP boundary of Sift, built on fiber.
//
// # Routes
//
// POST /v1/analyses: raw caption text in the body; optional project_id,
// user_id and source query parameters. Runs the analysis, persists it and
// answers 201 with {id, created_at, result}.
//
// GET /v1/analyses, GET /v1/analyses/:id, DELETE /v1/analyses/:id: read and
// remove stored analyses.
//
// GET /healthz: breaker positions; status is "degraded" while any breaker
// is open.
//
// # Errors
//
// Every failure renders {kind, message}. Pipeline kinds map to statuses via
// pipeline.HTTPStatus; unknown ids are 404 NotFound. Unclassified errors
// never expose their detail.
package api
