package i18n

import (
	"fmt"
	"sort"
	"strings"

	"github.com/and161185/slushbook/internal/model"
)

// Separator joins nested keys in flat bundles.
const Separator = "."

// Flatten turns a nested map into dot-joined keys. Empty sub-maps are kept as leaves
// so that Unflatten can restore them.
func Flatten(nested map[string]any) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", nested)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + Separator + k
		}
		if sub, ok := asMap(v); ok && len(sub) > 0 {
			flattenInto(out, key, sub)
			continue
		}
		out[key] = v
	}
}

// Unflatten rebuilds the nested map. A key that is both a leaf and a prefix of another
// key is a conflict.
func Unflatten(flat map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := make(map[string]any)
	for _, k := range keys {
		parts := strings.Split(k, Separator)
		node := root
		for i, p := range parts[:len(parts)-1] {
			next, exists := node[p]
			if !exists {
				m := make(map[string]any)
				node[p] = m
				node = m
				continue
			}
			m, ok := next.(map[string]any)
			if !ok || len(m) == 0 {
				return nil, fmt.Errorf("unflatten: key %q conflicts with leaf %q", k, strings.Join(parts[:i+1], Separator))
			}
			node = m
		}
		last := parts[len(parts)-1]
		if _, exists := node[last]; exists {
			return nil, fmt.Errorf("unflatten: key %q conflicts with nested keys", k)
		}
		node[last] = flat[k]
	}
	return root, nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

// PairEntry is one row of a master/target comparison.
type PairEntry struct {
	Key    string `json:"key"`
	Master string `json:"master"`
	Target string `json:"target"`
}

// PairMaps lists keys(master) in lexicographic order with the master and target values.
// Missing target values are the empty string.
func PairMaps(master, target map[string]any) []PairEntry {
	fm, ft := Flatten(master), Flatten(target)
	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]PairEntry, 0, len(keys))
	for _, k := range keys {
		e := PairEntry{Key: k, Master: stringify(fm[k])}
		if v, ok := ft[k]; ok {
			e.Target = stringify(v)
		}
		out = append(out, e)
	}
	return out
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	if m, ok := asMap(v); ok && len(m) == 0 {
		return ""
	}
	return fmt.Sprint(v)
}

// Bundles holds one nested UI-locale bundle per language.
type Bundles map[model.Lang]map[string]any

// Pair compares the master language bundle against the target language bundle.
func (b Bundles) Pair(master, target model.Lang) []PairEntry {
	return PairMaps(b[master], b[target])
}
