package api

import (
	"time"

	"sift/internal/analysis"
	"sift/internal/breaker"
	"sift/internal/store"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// AnalysisSummary describes a stored analysis in a transport-friendly format.
type AnalysisSummary struct {
	ID                string `json:"id" yaml:"id"`
	CreatedAt         string `json:"created_at" yaml:"created_at"`
	ProjectID         string `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	UserID            string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	SourceName        string `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	TranscriptLength  int    `json:"transcript_length" yaml:"transcript_length"`
	ProblemAreaCount  int    `json:"problem_area_count" yaml:"problem_area_count"`
	ExcerptCount      int    `json:"excerpt_count" yaml:"excerpt_count"`
	ManuallyValidated bool   `json:"manually_validated" yaml:"manually_validated"`
}

// AnalysisResponse carries a stored analysis and its result.
type AnalysisResponse struct {
	ID        string           `json:"id" yaml:"id"`
	CreatedAt string           `json:"created_at" yaml:"created_at"`
	Result    *analysis.Result `json:"result" yaml:"result"`
}

// ListResponse wraps analysis summaries.
type ListResponse struct {
	Analyses []AnalysisSummary `json:"analyses" yaml:"analyses"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// HealthResponse reports process readiness and breaker positions.
type HealthResponse struct {
	Status   string             `json:"status"`
	Breakers []breaker.Snapshot `json:"breakers"`
}

// FromSummary converts a store summary into its transport form.
func FromSummary(summary store.Summary) AnalysisSummary {
	return AnalysisSummary{
		ID:                summary.ID,
		CreatedAt:         FormatTime(summary.CreatedAt),
		ProjectID:         summary.ProjectID,
		UserID:            summary.UserID,
		SourceName:        summary.SourceName,
		TranscriptLength:  summary.TranscriptLength,
		ProblemAreaCount:  summary.ProblemAreaCount,
		ExcerptCount:      summary.ExcerptCount,
		ManuallyValidated: summary.ManuallyValidated,
	}
}

// FromSummaries converts a slice of summaries, never returning nil.
func FromSummaries(summaries []store.Summary) []AnalysisSummary {
	out := make([]AnalysisSummary, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, FromSummary(summary))
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
