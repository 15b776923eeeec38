package annotate

import (
	"sort"

	"github.com/muenster-imaging/tabblesync/errors"
)

// Normalized is the output of Normalize: exactly one of FlatPairs and
// Namespaced is populated, governed by the directory the hierarchy was
// normalized against.
type Normalized struct {
	Mode Mode

	// Tags are flat OMERO tag names, from NoNamespace entries whose key
	// carries the reserved marker. Duplicates collapsed, order preserved.
	Tags []string

	// FlatPairs holds key/value pairs in flat mode, deduplicated by exact
	// pair equality, insertion order preserved.
	FlatPairs []Pair

	// Namespaced holds key/value pairs in namespace-aware mode, grouped by
	// resolved namespace, deduplicated per (namespace, key, value).
	Namespaced NamespacedPairs
}

// Normalize reshapes a raw hierarchy into the three annotation forms.
// singleTags enables flat tag extraction from the NoNamespace bucket.
//
// Namespaces that resolve to nothing in namespace-aware mode are dropped
// silently; that mirrors the resolver contract. A reserved-marker key in a
// key/value position is a data-integrity error: it means a bare Tabbles tag
// is misfiled under a parent, and the upstream data needs fixing rather
// than a silent coercion here.
func Normalize(h Hierarchy, directory []string, singleTags bool) (*Normalized, error) {
	out := &Normalized{
		Mode:       ModeFor(directory),
		Namespaced: make(NamespacedPairs),
	}
	seenTags := make(map[string]bool)
	seenPairs := make(map[Pair]bool)

	for _, namespace := range h.Namespaces() {
		keyValues := h[namespace]

		if namespace == NoNamespace {
			if !singleTags {
				continue
			}
			for _, key := range sortedKeys(keyValues) {
				// Only genuine single Tabbles tags have a "system" parent
				// starting with the marker.
				if !hasMarker(key) {
					continue
				}
				for _, value := range keyValues[key] {
					if !seenTags[value] {
						seenTags[value] = true
						out.Tags = append(out.Tags, value)
					}
				}
			}
			continue
		}

		switch out.Mode {
		case FlatMode:
			for _, key := range sortedKeys(keyValues) {
				if hasMarker(key) {
					return nil, errors.NewDataIntegrityError(
						"problem with %s:%s:%v", namespace, key, keyValues[key])
				}
				for _, value := range keyValues[key] {
					p := Pair{Key: key, Value: value}
					// The same pair can exist under several namespaces;
					// it must not be appended twice.
					if !seenPairs[p] {
						seenPairs[p] = true
						out.FlatPairs = append(out.FlatPairs, p)
					}
				}
			}

		case NamespaceAware:
			resolved := Resolve(namespace, directory)
			if resolved == "" {
				// Unmappable namespace: drop its entries.
				continue
			}
			for _, key := range sortedKeys(keyValues) {
				for _, value := range keyValues[key] {
					out.Namespaced.Add(resolved, key, value)
				}
			}
		}
	}

	if len(out.Namespaced) == 0 {
		out.Namespaced = nil
	}
	return out, nil
}

func hasMarker(s string) bool {
	return len(s) > 0 && s[:1] == Marker
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
