package analysis

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category classifies the evidence an excerpt provides.
type Category string

const (
	CategoryPainPoint       Category = "PainPoint"
	CategoryCurrentApproach Category = "CurrentApproach"
	CategoryIdealSolution   Category = "IdealSolution"
	CategoryImpact          Category = "Impact"
)

var allCategories = []Category{
	CategoryPainPoint,
	CategoryCurrentApproach,
	CategoryIdealSolution,
	CategoryImpact,
}

var categorySet = func() map[Category]struct{} {
	set := make(map[Category]struct{}, len(allCategories))
	for _, category := range allCategories {
		set[category] = struct{}{}
	}
	return set
}()

var labelCaser = cases.Title(language.English)

// AllCategories returns the closed set of categories in display order.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory accepts only the canonical spelling of a category.
func ParseCategory(value string) (Category, bool) {
	category := Category(value)
	_, ok := categorySet[category]
	return category, ok
}

// Valid reports whether c is a member of the closed category set.
func (c Category) Valid() bool {
	_, ok := categorySet[c]
	return ok
}

// Label renders the category as space separated words ("Pain Point").
func (c Category) Label() string {
	var words []string
	var current []rune
	for _, r := range string(c) {
		if unicode.IsUpper(r) && len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
		current = append(current, unicode.ToLower(r))
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	return labelCaser.String(strings.Join(words, " "))
}

// Excerpt is a quoted, categorized piece of evidence that references a chunk.
type Excerpt struct {
	Quote       string     `json:"quote" yaml:"quote"`
	Categories  []Category `json:"categories" yaml:"categories"`
	Insight     string     `json:"insight" yaml:"insight"`
	ChunkNumber int        `json:"chunkNumber" yaml:"chunkNumber"`
	// Unresolved is set during assembly when ChunkNumber matches no chunk.
	Unresolved bool `json:"unresolved,omitempty" yaml:"unresolved,omitempty"`
}

// ProblemArea is a theme identified in the transcript together with its evidence.
type ProblemArea struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Excerpts    []Excerpt `json:"excerpts" yaml:"excerpts"`
}

// ExcerptGroup is one stage-two entry: the excerpts proposed for a problem area id.
type ExcerptGroup struct {
	ProblemAreaID string    `json:"id" yaml:"id"`
	Excerpts      []Excerpt `json:"excerpts" yaml:"excerpts"`
}

// Synthesis is the free-form narrative generated once per run. Analysis runs
// populate Text; persona runs populate Title and Narrative.
type Synthesis struct {
	Text      string `json:"text,omitempty" yaml:"text,omitempty"`
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	Narrative string `json:"narrative,omitempty" yaml:"narrative,omitempty"`
}

// Metadata summarizes an assembled result.
type Metadata struct {
	TranscriptLength       int      `json:"transcriptLength" yaml:"transcriptLength"`
	ProblemAreaCount       int      `json:"problemAreaCount" yaml:"problemAreaCount"`
	ExcerptCount           int      `json:"excerptCount" yaml:"excerptCount"`
	UnresolvedExcerptCount int      `json:"unresolvedExcerptCount" yaml:"unresolvedExcerptCount"`
	ManuallyValidated      bool     `json:"manuallyValidated" yaml:"manuallyValidated"`
	RepairedStages         []string `json:"repairedStages,omitempty" yaml:"repairedStages,omitempty"`
}

func cloneExcerpts(excerpts []Excerpt) []Excerpt {
	out := make([]Excerpt, len(excerpts))
	for i, excerpt := range excerpts {
		out[i] = excerpt
		out[i].Categories = append([]Category(nil), excerpt.Categories...)
	}
	return out
}

func cloneProblemAreas(areas []ProblemArea) []ProblemArea {
	out := make([]ProblemArea, len(areas))
	for i, area := range areas {
		out[i] = area
		out[i].Excerpts = cloneExcerpts(area.Excerpts)
	}
	return out
}
