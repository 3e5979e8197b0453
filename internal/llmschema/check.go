package llmschema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"sift/internal/analysis"
)

// checker accumulates issues while walking a decoded document.
type checker struct {
	issues []Issue
}

func (c *checker) add(path, format string, args ...any) {
	c.issues = append(c.issues, Issue{Path: path, Problem: fmt.Sprintf(format, args...)})
}

func (c *checker) count() int { return len(c.issues) }

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func (c *checker) object(value any, path string) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		c.add(path, "expected object, got %s", typeName(value))
	}
	return obj, ok
}

func (c *checker) list(obj map[string]any, key, path string) ([]any, bool) {
	value, ok := obj[key]
	if !ok {
		c.add(join(path, key), "missing")
		return nil, false
	}
	items, ok := value.([]any)
	if !ok {
		c.add(join(path, key), "expected array, got %s", typeName(value))
	}
	return items, ok
}

func (c *checker) str(obj map[string]any, key, path string, nonEmpty bool) string {
	value, ok := obj[key]
	if !ok {
		c.add(join(path, key), "missing")
		return ""
	}
	text, ok := value.(string)
	if !ok {
		c.add(join(path, key), "expected string, got %s", typeName(value))
		return ""
	}
	text = strings.TrimSpace(text)
	if nonEmpty && text == "" {
		c.add(join(path, key), "must not be empty")
	}
	return text
}

func (c *checker) integer(obj map[string]any, key, path string) int {
	value, ok := obj[key]
	if !ok {
		c.add(join(path, key), "missing")
		return 0
	}
	n, ok := exactInt(value)
	if !ok {
		c.add(join(path, key), "expected integer, got %s", typeName(value))
	}
	return n
}

func (c *checker) stringList(obj map[string]any, key, path string) []string {
	items, ok := c.list(obj, key, path)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		text, ok := item.(string)
		if !ok {
			c.add(index(join(path, key), i), "expected string, got %s", typeName(item))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func (c *checker) intList(obj map[string]any, key, path string) []int {
	items, ok := c.list(obj, key, path)
	if !ok {
		return nil
	}
	out := make([]int, 0, len(items))
	for i, item := range items {
		n, ok := exactInt(item)
		if !ok {
			c.add(index(join(path, key), i), "expected integer, got %s", typeName(item))
			continue
		}
		out = append(out, n)
	}
	return out
}

// categories validates a non-empty set of canonical category names.
// Duplicates collapse to one entry.
func (c *checker) categories(obj map[string]any, path string) []analysis.Category {
	items, ok := c.list(obj, "categories", path)
	if !ok {
		return nil
	}
	if len(items) == 0 {
		c.add(join(path, "categories"), "must not be empty")
		return nil
	}
	seen := make(map[analysis.Category]struct{}, len(items))
	out := make([]analysis.Category, 0, len(items))
	for i, item := range items {
		name, _ := item.(string)
		category, ok := analysis.ParseCategory(name)
		if !ok {
			c.add(index(join(path, "categories"), i), "unknown category %v", item)
			continue
		}
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	return out
}

// exactInt accepts only integral numbers.
func exactInt(value any) (int, bool) {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), true
		}
		if f, err := v.Float64(); err == nil {
			return floatInt(f)
		}
	case float64:
		return floatInt(v)
	case int:
		return v, true
	}
	return 0, false
}

// floatInt converts whole numbers that fit in an int; 1e30 or 2.5 do not.
func floatInt(f float64) (int, bool) {
	if f != math.Trunc(f) || f < float64(math.MinInt) || f >= -float64(math.MinInt) {
		return 0, false
	}
	return int(f), true
}

// looseInt also accepts numeric strings ("2", " 7 "). Used only by repair.
func looseInt(value any) (int, bool) {
	if n, ok := exactInt(value); ok {
		return n, true
	}
	if text, ok := value.(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(text))
		return n, err == nil
	}
	return 0, false
}

var foldedCategories = func() map[string]analysis.Category {
	out := make(map[string]analysis.Category)
	for _, category := range analysis.AllCategories() {
		out[foldName(string(category))] = category
	}
	return out
}()

// normalizeCategory maps loose spellings ("pain point", "pain_point",
// "PAINPOINT") onto the canonical category.
func normalizeCategory(value any) (analysis.Category, bool) {
	text, ok := value.(string)
	if !ok {
		return "", false
	}
	category, ok := foldedCategories[foldName(text)]
	return category, ok
}

func foldName(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// stringify renders scalar ids as strings. Objects and arrays are rejected.
func stringify(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	}
	return "", false
}

// asList coerces a scalar into a one-element list; nil stays nil.
func asList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case nil:
		return nil, false
	case map[string]any:
		return nil, false
	default:
		return []any{v}, true
	}
}

// coerceList rewrites doc[key] so that a lone object becomes a one-element
// list. An absent or null value becomes an empty list only when optional.
func coerceList(doc map[string]any, key string, optional bool) ([]any, bool) {
	switch v := doc[key].(type) {
	case []any:
		return v, true
	case map[string]any:
		items := []any{v}
		doc[key] = items
		return items, true
	case nil:
		if !optional {
			return nil, false
		}
		items := []any{}
		doc[key] = items
		return items, true
	default:
		return nil, false
	}
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number, float64, int:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}
