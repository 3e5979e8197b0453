package llmschema

import (
	"errors"
	"strconv"

	"sift/internal/analysis"
)

const personasKey = "personas"

// PersonaAliases lists field spellings seen in persona extraction responses.
var PersonaAliases = AliasTable{
	Version: 1,
	Fields: map[string]string{
		"persona_id":    "id",
		"personaId":     "id",
		"chunk_numbers": "chunkNumbers",
		"chunks":        "chunkNumbers",
		"pain_points":   "frustrations",
		"painPoints":    "frustrations",
		"job_title":     "role",
	},
}

var errNoPersonaList = errors.New("response has no personas array")

// Personas validates {"personas":[{"id","name","role","goals","frustrations","chunkNumbers"}]}.
func Personas() Schema[[]analysis.Persona] {
	return Schema[[]analysis.Persona]{
		Name:     "personas",
		Aliases:  PersonaAliases,
		Decode:   decodePersonas,
		Repair:   repairPersonas,
		Fallback: fallbackPersonas,
	}
}

func decodePersonas(doc map[string]any) ([]analysis.Persona, []Issue) {
	var c checker
	items, ok := c.list(doc, personasKey, "")
	if !ok {
		return nil, c.issues
	}
	out := make([]analysis.Persona, 0, len(items))
	for i, item := range items {
		if persona, ok := decodePersona(&c, item, index(personasKey, i)); ok {
			out = append(out, persona)
		}
	}
	return out, c.issues
}

func decodePersona(c *checker, item any, path string) (analysis.Persona, bool) {
	before := c.count()
	obj, ok := c.object(item, path)
	if !ok {
		return analysis.Persona{}, false
	}
	persona := analysis.Persona{
		ID:           c.str(obj, "id", path, true),
		Name:         c.str(obj, "name", path, true),
		Role:         c.str(obj, "role", path, false),
		Goals:        c.stringList(obj, "goals", path),
		Frustrations: c.stringList(obj, "frustrations", path),
		ChunkNumbers: c.intList(obj, "chunkNumbers", path),
	}
	return persona, c.count() == before
}

func repairPersonas(doc map[string]any) {
	items, ok := coerceList(doc, personasKey, false)
	if !ok {
		return
	}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, _ := stringify(obj["id"]); id != "" {
			obj["id"] = id
		} else {
			obj["id"] = "persona-" + strconv.Itoa(i+1)
		}
		if _, ok := obj["role"].(string); !ok && obj["role"] == nil {
			obj["role"] = ""
		}
		for _, key := range []string{"goals", "frustrations"} {
			if list, ok := asList(obj[key]); ok {
				obj[key] = list
			} else if obj[key] == nil {
				obj[key] = []any{}
			}
		}
		if list, ok := asList(obj["chunkNumbers"]); ok {
			numbers := make([]any, 0, len(list))
			for _, value := range list {
				if n, ok := looseInt(value); ok {
					numbers = append(numbers, n)
				}
			}
			obj["chunkNumbers"] = numbers
		} else if obj["chunkNumbers"] == nil {
			obj["chunkNumbers"] = []any{}
		}
	}
}

func fallbackPersonas(doc map[string]any) ([]analysis.Persona, error) {
	items, ok := doc[personasKey].([]any)
	if !ok {
		return nil, errNoPersonaList
	}
	out := make([]analysis.Persona, 0, len(items))
	for i, item := range items {
		var c checker
		if persona, ok := decodePersona(&c, item, index(personasKey, i)); ok {
			out = append(out, persona)
		}
	}
	return out, nil
}
