package llmschema

import (
	"errors"

	"sift/internal/analysis"
)

// ExcerptAliases lists field spellings seen in stage-two responses.
var ExcerptAliases = AliasTable{
	Version: 1,
	Fields: map[string]string{
		"problem_areas":            problemAreasKey,
		"excerptsByProblemArea":    problemAreasKey,
		"excerpts_by_problem_area": problemAreasKey,
		"problem_area_id":          "id",
		"problemAreaId":            "id",
		"chunk_number":             "chunkNumber",
		"chunk":                    "chunkNumber",
		"chunkId":                  "chunkNumber",
		"category":                 "categories",
		"excerpt":                  "quote",
		"text":                     "quote",
		"rationale":                "insight",
	},
}

var errNoExcerptList = errors.New("response has no problemAreas array")

// Excerpts validates the stage-two payload
// {"problemAreas":[{"id","excerpts":[{"quote","categories","insight","chunkNumber"}]}]}.
// Quotes may be empty; they are backfilled during assembly.
func Excerpts() Schema[[]analysis.ExcerptGroup] {
	return Schema[[]analysis.ExcerptGroup]{
		Name:     "excerpts",
		Aliases:  ExcerptAliases,
		Decode:   decodeExcerptGroups,
		Repair:   repairExcerptGroups,
		Fallback: fallbackExcerptGroups,
	}
}

func decodeExcerptGroups(doc map[string]any) ([]analysis.ExcerptGroup, []Issue) {
	var c checker
	items, ok := c.list(doc, problemAreasKey, "")
	if !ok {
		return nil, c.issues
	}
	groups := make([]analysis.ExcerptGroup, 0, len(items))
	for i, item := range items {
		path := index(problemAreasKey, i)
		before := c.count()
		obj, ok := c.object(item, path)
		if !ok {
			continue
		}
		group := analysis.ExcerptGroup{ProblemAreaID: c.str(obj, "id", path, true)}
		excerpts, ok := c.list(obj, "excerpts", path)
		if ok {
			group.Excerpts = make([]analysis.Excerpt, 0, len(excerpts))
			for j, raw := range excerpts {
				if excerpt, ok := decodeExcerpt(&c, raw, index(join(path, "excerpts"), j)); ok {
					group.Excerpts = append(group.Excerpts, excerpt)
				}
			}
		}
		if c.count() == before {
			groups = append(groups, group)
		}
	}
	return groups, c.issues
}

func decodeExcerpt(c *checker, raw any, path string) (analysis.Excerpt, bool) {
	before := c.count()
	obj, ok := c.object(raw, path)
	if !ok {
		return analysis.Excerpt{}, false
	}
	excerpt := analysis.Excerpt{
		Quote:       c.str(obj, "quote", path, false),
		Categories:  c.categories(obj, path),
		Insight:     c.str(obj, "insight", path, false),
		ChunkNumber: c.integer(obj, "chunkNumber", path),
	}
	return excerpt, c.count() == before
}

// repairExcerptGroups treats a missing problemAreas list as "no excerpts for
// any area"; stage two may legitimately answer {} when stage one found none.
func repairExcerptGroups(doc map[string]any) {
	items, ok := coerceList(doc, problemAreasKey, true)
	if !ok {
		return
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := stringify(obj["id"]); ok {
			obj["id"] = id
		}
		excerpts, ok := coerceList(obj, "excerpts", true)
		if !ok {
			continue
		}
		for _, raw := range excerpts {
			if excerpt, ok := raw.(map[string]any); ok {
				repairExcerpt(excerpt)
			}
		}
	}
}

func repairExcerpt(obj map[string]any) {
	if _, ok := obj["quote"].(string); !ok {
		if obj["quote"] == nil {
			obj["quote"] = ""
		}
	}
	if _, ok := obj["insight"].(string); !ok {
		if obj["insight"] == nil {
			obj["insight"] = ""
		}
	}
	if list, ok := asList(obj["categories"]); ok {
		normalized := make([]any, 0, len(list))
		for _, value := range list {
			if category, ok := normalizeCategory(value); ok {
				normalized = append(normalized, string(category))
				continue
			}
			normalized = append(normalized, value)
		}
		obj["categories"] = normalized
	}
	if _, ok := exactInt(obj["chunkNumber"]); !ok {
		if n, ok := looseInt(obj["chunkNumber"]); ok {
			obj["chunkNumber"] = n
		}
	}
}

func fallbackExcerptGroups(doc map[string]any) ([]analysis.ExcerptGroup, error) {
	items, ok := doc[problemAreasKey].([]any)
	if !ok {
		return nil, errNoExcerptList
	}
	groups := make([]analysis.ExcerptGroup, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["id"].(string)
		if id == "" {
			continue
		}
		group := analysis.ExcerptGroup{ProblemAreaID: id, Excerpts: []analysis.Excerpt{}}
		excerpts, _ := obj["excerpts"].([]any)
		for _, raw := range excerpts {
			if excerpt, ok := salvageExcerpt(raw); ok {
				group.Excerpts = append(group.Excerpts, excerpt)
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// salvageExcerpt keeps an excerpt when its chunk number is an integer and at
// least one of its categories is known. Unknown categories are dropped.
func salvageExcerpt(raw any) (analysis.Excerpt, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return analysis.Excerpt{}, false
	}
	chunk, ok := exactInt(obj["chunkNumber"])
	if !ok {
		return analysis.Excerpt{}, false
	}
	list, _ := asList(obj["categories"])
	seen := make(map[analysis.Category]struct{}, len(list))
	categories := make([]analysis.Category, 0, len(list))
	for _, value := range list {
		name, _ := value.(string)
		category, ok := analysis.ParseCategory(name)
		if !ok {
			continue
		}
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}
	if len(categories) == 0 {
		return analysis.Excerpt{}, false
	}
	quote, _ := obj["quote"].(string)
	insight, _ := obj["insight"].(string)
	return analysis.Excerpt{
		Quote:       trim(quote),
		Categories:  categories,
		Insight:     trim(insight),
		ChunkNumber: chunk,
	}, true
}
