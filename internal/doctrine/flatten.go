package doctrine

import (
	"encoding/json"
	"fmt"
	"sort"
)

// StringAtom is one string leaf of an artifact tree, addressed by its
// dotted path.
type StringAtom struct {
	Path  string
	Value string
}

// Flatten walks any JSON-shaped value and collects every string leaf in
// deterministic (sorted-key) order. Numbers and booleans carry no prose
// and are skipped.
func Flatten(tree interface{}) []StringAtom {
	var atoms []StringAtom
	walk(normalize(tree), "", func(path, value string) {
		atoms = append(atoms, StringAtom{Path: path, Value: value})
	})
	return atoms
}

// normalize converts typed artifacts into the generic JSON shape so the
// guard sees exactly what a persisted payload would contain.
func normalize(tree interface{}) interface{} {
	switch tree.(type) {
	case map[string]interface{}, []interface{}, string, nil:
		return tree
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Sprintf("%v", tree)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Sprintf("%v", tree)
	}
	return generic
}

func walk(node interface{}, path string, emit func(path, value string)) {
	switch v := node.(type) {
	case string:
		emit(path, v)
	case []interface{}:
		for i, item := range v {
			walk(item, fmt.Sprintf("%s[%d]", path, i), emit)
		}
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			walk(v[k], child, emit)
		}
	}
}
