package llmschema

import (
	"maps"
	"slices"
)

// AliasTable maps field-name variants observed in model output to their
// canonical names. Version is bumped whenever a mapping is added or changed
// so logs can tell which table repaired a response.
type AliasTable struct {
	Version int
	Fields  map[string]string
}

// Apply coalesces aliases in every object of doc, recursively. When both the
// alias and the canonical field are present the canonical value is kept and
// the alias is dropped; when several aliases of one field are present the
// lexically first wins. It returns the number of fields renamed.
func (t AliasTable) Apply(doc map[string]any) int {
	if len(t.Fields) == 0 {
		return 0
	}
	return t.apply(doc)
}

func (t AliasTable) apply(value any) int {
	renamed := 0
	switch v := value.(type) {
	case map[string]any:
		for _, alias := range slices.Sorted(maps.Keys(t.Fields)) {
			canonical := t.Fields[alias]
			aliased, ok := v[alias]
			if !ok {
				continue
			}
			delete(v, alias)
			if _, exists := v[canonical]; exists {
				continue
			}
			v[canonical] = aliased
			renamed++
		}
		for _, child := range v {
			renamed += t.apply(child)
		}
	case []any:
		for _, child := range v {
			renamed += t.apply(child)
		}
	}
	return renamed
}
