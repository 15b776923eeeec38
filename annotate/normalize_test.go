package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muenster-imaging/tabblesync/errors"
)

func sampleHierarchy() Hierarchy {
	h := make(Hierarchy)
	h.Add("01_Bio", "species", "mouse")
	h.Add(NoNamespace, "_workspace", "untagged")
	return h
}

func TestNormalizeFlatMode(t *testing.T) {
	n, err := Normalize(sampleHierarchy(), nil, true)
	require.NoError(t, err)

	assert.Equal(t, FlatMode, n.Mode)
	assert.Equal(t, []string{"untagged"}, n.Tags)
	assert.Equal(t, []Pair{{Key: "species", Value: "mouse"}}, n.FlatPairs)
	assert.Nil(t, n.Namespaced, "flat mode must never populate namespaced pairs")
}

func TestNormalizeNamespaceAware(t *testing.T) {
	n, err := Normalize(sampleHierarchy(), []string{"Biosample info"}, true)
	require.NoError(t, err)

	assert.Equal(t, NamespaceAware, n.Mode)
	assert.Equal(t, []string{"untagged"}, n.Tags)
	assert.Nil(t, n.FlatPairs, "namespace-aware mode must never populate flat pairs")
	assert.Equal(t, NamespacedPairs{
		"Biosample info": {"species": {"mouse"}},
	}, n.Namespaced)
}

func TestNormalizeSingleTagsDisabled(t *testing.T) {
	n, err := Normalize(sampleHierarchy(), nil, false)
	require.NoError(t, err)
	assert.Empty(t, n.Tags)
	assert.Equal(t, []Pair{{Key: "species", Value: "mouse"}}, n.FlatPairs)
}

func TestNormalizeNoneBucketNeverNamespaced(t *testing.T) {
	h := make(Hierarchy)
	h.Add(NoNamespace, "_workspace", "untagged")
	h.Add(NoNamespace, "orphan", "value")

	n, err := Normalize(h, []string{"Biosample info"}, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"untagged"}, n.Tags, "non-marker keys in the none bucket are ignored")
	assert.Nil(t, n.Namespaced)
}

func TestNormalizeFlatPairDedup(t *testing.T) {
	// The same (key, value) pair under two namespaces appears once.
	h := make(Hierarchy)
	h.Add("01_Bio", "species", "mouse")
	h.Add("02_Extra", "species", "mouse")
	h.Add("02_Extra", "species", "rat")

	n, err := Normalize(h, nil, false)
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{Key: "species", Value: "mouse"},
		{Key: "species", Value: "rat"},
	}, n.FlatPairs)
}

func TestNormalizeNamespacedDedup(t *testing.T) {
	// Two raw namespaces resolving to the same target must not duplicate
	// (namespace, key, value) triples.
	h := make(Hierarchy)
	h.Add("01_Biosample", "species", "mouse")
	h.Add("04_biosample", "species", "mouse")

	n, err := Normalize(h, []string{"Biosample info"}, false)
	require.NoError(t, err)

	assert.Equal(t, NamespacedPairs{
		"Biosample info": {"species": {"mouse"}},
	}, n.Namespaced)
}

func TestNormalizeUnmappableNamespaceDropped(t *testing.T) {
	h := make(Hierarchy)
	h.Add("01_Plasmid", "backbone", "pUC19")
	h.Add("02_Organism", "species", "mouse")

	n, err := Normalize(h, []string{"Organism"}, false)
	require.NoError(t, err)

	assert.Equal(t, NamespacedPairs{
		"Organism": {"species": {"mouse"}},
	}, n.Namespaced, "entries of unmappable namespaces are dropped")
}

func TestNormalizeSystemNamespaceGoesToDefault(t *testing.T) {
	h := make(Hierarchy)
	h.Add("_workspace jens", "stain", "DAPI")

	n, err := Normalize(h, []string{"Organism"}, false)
	require.NoError(t, err)

	assert.Equal(t, NamespacedPairs{
		DefaultNamespace: {"stain": {"DAPI"}},
	}, n.Namespaced)
}

func TestNormalizeMarkerKeyInFlatModeFails(t *testing.T) {
	h := make(Hierarchy)
	h.Add("01_Bio", "_species", "mouse")

	_, err := Normalize(h, nil, true)
	require.Error(t, err)
	assert.True(t, errors.IsDataIntegrityError(err))
}

func TestNormalizeTagDedup(t *testing.T) {
	h := make(Hierarchy)
	h.Add(NoNamespace, "_workspace", "untagged")
	h.Add(NoNamespace, "_workspace jens", "untagged")
	h.Add(NoNamespace, "_workspace jens", "draft")

	n, err := Normalize(h, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"untagged", "draft"}, n.Tags)
}

func TestNormalizeModeExclusivity(t *testing.T) {
	hierarchies := []Hierarchy{
		{},
		sampleHierarchy(),
		{"09_Misc": {"k": {"v1", "v2"}}},
		{NoNamespace: {"_w": {"t"}}, "01_Organism": {"species": {"rat"}}},
	}

	for _, h := range hierarchies {
		flat, err := Normalize(h, nil, true)
		require.NoError(t, err)
		assert.Nil(t, flat.Namespaced)

		aware, err := Normalize(h, []string{"Organism", "Misc"}, true)
		require.NoError(t, err)
		assert.Nil(t, aware.FlatPairs)
	}
}
