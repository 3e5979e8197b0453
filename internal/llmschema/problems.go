package llmschema

import (
	"errors"
	"strconv"

	"sift/internal/analysis"
)

// DefaultMaxProblemAreas caps the number of problem areas a stage-one
// response may carry.
const DefaultMaxProblemAreas = 10

const problemAreasKey = "problemAreas"

// ProblemAreaAliases lists field spellings seen in stage-one responses.
var ProblemAreaAliases = AliasTable{
	Version: 1,
	Fields: map[string]string{
		"problem_areas":   problemAreasKey,
		"problems":        problemAreasKey,
		"areas":           problemAreasKey,
		"problem_area_id": "id",
		"problemAreaId":   "id",
		"name":            "title",
		"summary":         "description",
	},
}

var errNoProblemAreaList = errors.New("response has no problemAreas array")

// ProblemAreas validates the stage-one payload
// {"problemAreas":[{"id","title","description"}]}. An empty list is valid;
// more than maxAreas entries is a violation that repair truncates. Returned
// areas always carry an empty, non-nil excerpt list.
func ProblemAreas(maxAreas int) Schema[[]analysis.ProblemArea] {
	if maxAreas <= 0 {
		maxAreas = DefaultMaxProblemAreas
	}
	return Schema[[]analysis.ProblemArea]{
		Name:    "problem areas",
		Aliases: ProblemAreaAliases,
		Decode: func(doc map[string]any) ([]analysis.ProblemArea, []Issue) {
			return decodeProblemAreas(doc, maxAreas)
		},
		Repair: func(doc map[string]any) {
			repairProblemAreas(doc, maxAreas)
		},
		Fallback: func(doc map[string]any) ([]analysis.ProblemArea, error) {
			return fallbackProblemAreas(doc, maxAreas)
		},
	}
}

func decodeProblemAreas(doc map[string]any, maxAreas int) ([]analysis.ProblemArea, []Issue) {
	var c checker
	items, ok := c.list(doc, problemAreasKey, "")
	if !ok {
		return nil, c.issues
	}
	if len(items) > maxAreas {
		c.add(problemAreasKey, "expected at most %d entries, got %d", maxAreas, len(items))
	}
	areas := make([]analysis.ProblemArea, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		path := index(problemAreasKey, i)
		area, ok := decodeProblemArea(&c, item, path)
		if !ok {
			continue
		}
		if _, dup := seen[area.ID]; dup {
			c.add(join(path, "id"), "duplicate id %q", area.ID)
			continue
		}
		seen[area.ID] = struct{}{}
		areas = append(areas, area)
	}
	return areas, c.issues
}

func decodeProblemArea(c *checker, item any, path string) (analysis.ProblemArea, bool) {
	before := c.count()
	obj, ok := c.object(item, path)
	if !ok {
		return analysis.ProblemArea{}, false
	}
	area := analysis.ProblemArea{
		ID:          c.str(obj, "id", path, true),
		Title:       c.str(obj, "title", path, true),
		Description: c.str(obj, "description", path, false),
		Excerpts:    []analysis.Excerpt{},
	}
	if value, present := obj["excerpts"]; present {
		if _, isList := value.([]any); !isList {
			c.add(join(path, "excerpts"), "expected array, got %s", typeName(value))
		}
	}
	return area, c.count() == before
}

func repairProblemAreas(doc map[string]any, maxAreas int) {
	items, ok := coerceList(doc, problemAreasKey, false)
	if !ok {
		return
	}
	if len(items) > maxAreas {
		items = items[:maxAreas]
		doc[problemAreasKey] = items
	}
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		position := strconv.Itoa(i + 1)
		id, _ := stringify(obj["id"])
		if id == "" {
			id = position
		}
		if _, dup := seen[id]; dup {
			id = id + "-" + position
		}
		seen[id] = struct{}{}
		obj["id"] = id
		if _, ok := obj["description"].(string); !ok {
			obj["description"] = ""
		}
		if _, ok := obj["excerpts"].([]any); !ok {
			obj["excerpts"] = []any{}
		}
	}
}

func fallbackProblemAreas(doc map[string]any, maxAreas int) ([]analysis.ProblemArea, error) {
	items, ok := doc[problemAreasKey].([]any)
	if !ok {
		return nil, errNoProblemAreaList
	}
	areas := make([]analysis.ProblemArea, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if len(areas) == maxAreas {
			break
		}
		var c checker
		area, ok := decodeProblemArea(&c, item, index(problemAreasKey, i))
		if !ok {
			continue
		}
		if _, dup := seen[area.ID]; dup {
			continue
		}
		seen[area.ID] = struct{}{}
		areas = append(areas, area)
	}
	return areas, nil
}
