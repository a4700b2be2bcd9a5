package results

import (
	"fmt"
	"strconv"
)

// Selector is one step of an extraction path: either an object key or an
// array index.
type Selector struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path is an ordered list of selectors applied to a decoded response
// document. It is an explicit, typed descriptor interpreted by a small
// walker; no reflection or dynamic attribute access is involved.
type Path []Selector

// P builds a path from string keys and int indices.
// P("routes", 0, "legs", 0, "distance", "value") selects the first leg's
// distance in meters.
func P(selectors ...any) Path {
	path := make(Path, 0, len(selectors))
	for _, s := range selectors {
		switch v := s.(type) {
		case string:
			path = append(path, Selector{Key: v})
		case int:
			path = append(path, Selector{Index: v, IsIndex: true})
		default:
			panic(fmt.Sprintf("path selector must be string or int, got %T", s))
		}
	}
	return path
}

// String renders the path in dotted form for diagnostics.
func (p Path) String() string {
	out := ""
	for i, s := range p {
		if s.IsIndex {
			out += "[" + strconv.Itoa(s.Index) + "]"
			continue
		}
		if i > 0 {
			out += "."
		}
		out += s.Key
	}
	return out
}

// Walk applies the path to a decoded JSON document. The second return is
// false when any step does not apply (missing key, index out of range, or a
// scalar where a container was expected).
func (p Path) Walk(doc any) (any, bool) {
	current := doc
	for _, sel := range p {
		if sel.IsIndex {
			arr, ok := current.([]any)
			if !ok || sel.Index < 0 || sel.Index >= len(arr) {
				return nil, false
			}
			current = arr[sel.Index]
			continue
		}
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[sel.Key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
