package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"sift/internal/analysis"
	"sift/internal/api"
	"sift/internal/store"
)

const (
	quoteWidth   = 60
	insightWidth = 40
)

// renderResult prints a human-readable view of an analysis.
func renderResult(out io.Writer, result *analysis.Result, color bool) {
	meta := result.Metadata()
	for _, line := range renderSectionHeader("Summary", color) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "  %-22s %d\n", "Transcript chunks:", meta.TranscriptLength)
	fmt.Fprintf(out, "  %-22s %d\n", "Problem areas:", meta.ProblemAreaCount)
	fmt.Fprintf(out, "  %-22s %d\n", "Excerpts:", meta.ExcerptCount)
	if meta.UnresolvedExcerptCount > 0 {
		fmt.Fprintf(out, "  %-22s %s\n", "Unresolved excerpts:", colorize(color, ansiYellow, strconv.Itoa(meta.UnresolvedExcerptCount)))
	}
	validated := yesNo(meta.ManuallyValidated)
	if meta.ManuallyValidated {
		validated = colorize(color, ansiYellow, validated+" ("+strings.Join(meta.RepairedStages, ", ")+")")
	}
	fmt.Fprintf(out, "  %-22s %s\n", "Repaired responses:", validated)
	fmt.Fprintln(out)

	for _, area := range result.ProblemAreas() {
		for _, line := range renderSectionHeader(fmt.Sprintf("%s. %s", area.ID, area.Title), color) {
			fmt.Fprintln(out, line)
		}
		if area.Description != "" {
			fmt.Fprintf(out, "  %s\n", area.Description)
		}
		if len(area.Excerpts) == 0 {
			fmt.Fprintln(out, "  No excerpts")
			fmt.Fprintln(out)
			continue
		}
		rows := make([][]string, 0, len(area.Excerpts))
		for _, excerpt := range area.Excerpts {
			chunk := strconv.Itoa(excerpt.ChunkNumber)
			if excerpt.Unresolved {
				chunk = colorize(color, ansiRed, chunk+"?")
			}
			rows = append(rows, []string{chunk, categoryLabels(excerpt.Categories), excerpt.Quote, excerpt.Insight})
		}
		fmt.Fprintln(out, renderTable([]tableColumn{
			{header: "Chunk", align: alignRight},
			{header: "Categories"},
			{header: "Quote", maxWidth: quoteWidth},
			{header: "Insight", maxWidth: insightWidth},
		}, rows))
		fmt.Fprintln(out)
	}

	for _, line := range renderSectionHeader("Synthesis", color) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, result.Synthesis().Text)
}

// renderPersonas prints a human-readable view of a persona run.
func renderPersonas(out io.Writer, result *analysis.PersonaResult, color bool) {
	personas := result.Personas()
	rows := make([][]string, 0, len(personas))
	for _, persona := range personas {
		chunks := joinInts(persona.ChunkNumbers)
		if len(persona.UnresolvedChunks) > 0 {
			chunks += colorize(color, ansiRed, " (unresolved: "+joinInts(persona.UnresolvedChunks)+")")
		}
		rows = append(rows, []string{
			persona.ID,
			persona.Name,
			persona.Role,
			strings.Join(persona.Goals, "; "),
			strings.Join(persona.Frustrations, "; "),
			chunks,
		})
	}
	fmt.Fprintln(out, renderTable([]tableColumn{
		{header: "ID"},
		{header: "Name"},
		{header: "Role"},
		{header: "Goals", maxWidth: insightWidth},
		{header: "Frustrations", maxWidth: insightWidth},
		{header: "Chunks"},
	}, rows))
	synthesis := result.Synthesis()
	if synthesis.Title != "" || synthesis.Narrative != "" {
		fmt.Fprintln(out)
		for _, line := range renderSectionHeader(synthesis.Title, color) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, synthesis.Narrative)
	}
}

func renderSummaries(out io.Writer, summaries []store.Summary) {
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No analyses stored")
		return
	}
	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, []string{
			summary.ID,
			summary.CreatedAt.Local().Format("2006-01-02 15:04"),
			summary.SourceName,
			summary.ProjectID,
			strconv.Itoa(summary.ProblemAreaCount),
			strconv.Itoa(summary.ExcerptCount),
			yesNo(summary.ManuallyValidated),
		})
	}
	fmt.Fprintln(out, renderTable([]tableColumn{
		{header: "ID"},
		{header: "Created"},
		{header: "Source"},
		{header: "Project"},
		{header: "Areas", align: alignRight},
		{header: "Excerpts", align: alignRight},
		{header: "Repaired"},
	}, rows))
}

func storedResponse(record store.Record, result *analysis.Result) api.AnalysisResponse {
	return api.AnalysisResponse{
		ID:        record.ID,
		CreatedAt: api.FormatTime(record.CreatedAt),
		Result:    result,
	}
}

func categoryLabels(categories []analysis.Category) string {
	labels := make([]string, 0, len(categories))
	for _, category := range categories {
		labels = append(labels, category.Label())
	}
	return strings.Join(labels, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}
