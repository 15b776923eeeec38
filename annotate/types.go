// Package annotate holds the annotation data model and the shape
// normalization from a raw Tabbles tag hierarchy into the forms OMERO
// understands: flat tags, flat key/value pairs, and namespaced key/value
// pairs.
//
// A Tabbles hierarchy is three levels deep: a value tag on the file, its
// parent tag (the key), and the parent's parent (the namespace). Tags
// without a grandparent land in the NoNamespace bucket; Tabbles-internal
// tags carry the reserved "_" marker prefix (e.g. "_workspace:root").
package annotate

import "sort"

// Marker prefixes Tabbles-internal ("system") tag names.
const Marker = "_"

// DefaultNamespace is OMERO's client map-annotation namespace. It receives
// all key/value pairs in flat mode, and pairs whose raw namespace is a
// reserved system tag in namespace-aware mode.
const DefaultNamespace = "openmicroscopy.org/omero/client/mapAnnotation"

// NoNamespace designates hierarchy entries whose key tag has no parent.
// Only these are candidates for flat OMERO tags.
const NoNamespace = ""

// Hierarchy is the raw three-level tag hierarchy extracted from Tabbles:
// namespace name (or NoNamespace) -> key -> ordered values.
type Hierarchy map[string]map[string][]string

// Add appends value under (namespace, key), creating buckets as needed.
func (h Hierarchy) Add(namespace, key, value string) {
	keys, ok := h[namespace]
	if !ok {
		keys = make(map[string][]string)
		h[namespace] = keys
	}
	keys[key] = append(keys[key], value)
}

// Namespaces returns the hierarchy's namespace names in sorted order,
// NoNamespace first. Sorted iteration keeps normalization deterministic.
func (h Hierarchy) Namespaces() []string {
	names := make([]string, 0, len(h))
	for ns := range h {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Pair is one key/value annotation entry.
type Pair struct {
	Key   string
	Value string
}

// NamespacedPairs maps resolved namespace -> key -> ordered values.
// Populated only in namespace-aware mode.
type NamespacedPairs map[string]map[string][]string

// Add appends value under (namespace, key) unless the exact
// (namespace, key, value) triple is already present.
func (n NamespacedPairs) Add(namespace, key, value string) bool {
	keys, ok := n[namespace]
	if !ok {
		keys = make(map[string][]string)
		n[namespace] = keys
	}
	for _, v := range keys[key] {
		if v == value {
			return false
		}
	}
	keys[key] = append(keys[key], value)
	return true
}

// Pairs flattens one namespace's entries into an ordered pair list,
// keys sorted, values in insertion order.
func (n NamespacedPairs) Pairs(namespace string) []Pair {
	return FlattenPairs(n[namespace])
}

// FlattenPairs converts a key -> values map into an ordered pair list,
// keys sorted, values in insertion order.
func FlattenPairs(keyValues map[string][]string) []Pair {
	if len(keyValues) == 0 {
		return nil
	}
	keys := make([]string, 0, len(keyValues))
	for k := range keyValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []Pair
	for _, k := range keys {
		for _, v := range keyValues[k] {
			pairs = append(pairs, Pair{Key: k, Value: v})
		}
	}
	return pairs
}

// CountPairs returns the number of (key, value) entries in a
// key -> values map.
func CountPairs(keyValues map[string][]string) int {
	n := 0
	for _, values := range keyValues {
		n += len(values)
	}
	return n
}

// Mode selects the annotation regime for a whole run. It is derived once
// from the namespace directory and threaded explicitly; the engine never
// re-checks directory emptiness.
type Mode int

const (
	// FlatMode: no namespace directory; all pairs go to DefaultNamespace.
	FlatMode Mode = iota
	// NamespaceAware: a directory of recognized namespaces exists; pairs
	// are grouped under resolved namespaces.
	NamespaceAware
)

// ModeFor returns the mode implied by the namespace directory.
func ModeFor(directory []string) Mode {
	if len(directory) > 0 {
		return NamespaceAware
	}
	return FlatMode
}

func (m Mode) String() string {
	if m == NamespaceAware {
		return "namespace-aware"
	}
	return "flat"
}
