package run_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/omero"
	"github.com/muenster-imaging/tabblesync/omero/omerotest"
	"github.com/muenster-imaging/tabblesync/reconcile"
	"github.com/muenster-imaging/tabblesync/run"
)

// stubSource serves a fixed image list and delegates path lookups to the
// fake store.
type stubSource struct {
	images []omero.Image
	fake   *omerotest.Fake
}

func (s *stubSource) Images(_ context.Context, kind string, ids []int64) ([]omero.Image, error) {
	return s.images, nil
}

func (s *stubSource) SourcePath(ctx context.Context, image reconcile.ImageID) (string, error) {
	return s.fake.SourcePath(ctx, image)
}

// stubExtractor returns canned hierarchies per normalized path and counts
// queries.
type stubExtractor struct {
	hierarchies map[string]annotate.Hierarchy
	queries     int
}

func (s *stubExtractor) TagHierarchy(_ context.Context, path string) (annotate.Hierarchy, error) {
	s.queries++
	h, ok := s.hierarchies[path]
	if !ok {
		return make(annotate.Hierarchy), nil
	}
	return h, nil
}

func tagged(tag string) annotate.Hierarchy {
	h := make(annotate.Hierarchy)
	h.Add(annotate.NoNamespace, "_workspace", tag)
	return h
}

func newRunner(source run.ImageSource, extractor run.Extractor, fake *omerotest.Fake, directory []string) *run.Runner {
	log := zap.NewNop().Sugar()
	engine := reconcile.NewEngine(fake, directory, log)
	return run.NewRunner(source, extractor, engine, directory, log)
}

func TestRunAnnotatesImages(t *testing.T) {
	fake := omerotest.NewFake()
	fake.SetPath(1, "C;/data/a.tif")
	fake.SetPath(2, "C;/data/b.tif")

	extractor := &stubExtractor{hierarchies: map[string]annotate.Hierarchy{
		`C:\data\a.tif`: tagged("scanr"),
		`C:\data\b.tif`: tagged("confocal"),
	}}
	source := &stubSource{
		images: []omero.Image{{ID: 1, Name: "a.tif"}, {ID: 2, Name: "b.tif"}},
		fake:   fake,
	}

	runner := newRunner(source, extractor, fake, nil)
	totals, err := runner.Run(context.Background(), run.Params{
		DataType:          run.DataTypeDataset,
		IDs:               []int64{5},
		ProcessSingleTags: true,
		Policy:            reconcile.Append,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, totals.Total)
	assert.Equal(t, 2, totals.Annotated)
	assert.Equal(t, 2, totals.Tags)
	assert.Equal(t, []string{"scanr"}, fake.Tags(1))
	assert.Equal(t, []string{"confocal"}, fake.Tags(2))
}

func TestRunSharedPathQueriedOnce(t *testing.T) {
	// A multi-file fileset: consecutive images share one source path and
	// one extraction.
	fake := omerotest.NewFake()
	fake.SetPath(1, "C;/plate/run1.scanr")
	fake.SetPath(2, "C;/plate/run1.scanr")
	fake.SetPath(3, "C;/plate/run2.scanr")

	extractor := &stubExtractor{hierarchies: map[string]annotate.Hierarchy{
		`C:\plate\run1.scanr`: tagged("plate1"),
		`C:\plate\run2.scanr`: tagged("plate2"),
	}}
	source := &stubSource{
		images: []omero.Image{{ID: 1}, {ID: 2}, {ID: 3}},
		fake:   fake,
	}

	runner := newRunner(source, extractor, fake, nil)
	totals, err := runner.Run(context.Background(), run.Params{
		DataType:          run.DataTypeDataset,
		IDs:               []int64{5},
		ProcessSingleTags: true,
		Policy:            reconcile.Append,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, extractor.queries, "second image reuses the cached hierarchy")
	assert.Equal(t, 3, totals.Annotated)
	assert.Equal(t, []string{"plate1"}, fake.Tags(2))
}

func TestRunMissingSourcePath(t *testing.T) {
	// Image 2 has no recorded path: processed but unannotated, no error.
	fake := omerotest.NewFake()
	fake.SetPath(1, "C;/data/a.tif")

	extractor := &stubExtractor{hierarchies: map[string]annotate.Hierarchy{
		`C:\data\a.tif`: tagged("scanr"),
	}}
	source := &stubSource{
		images: []omero.Image{{ID: 1}, {ID: 2}},
		fake:   fake,
	}

	runner := newRunner(source, extractor, fake, nil)
	totals, err := runner.Run(context.Background(), run.Params{
		DataType:          run.DataTypeImage,
		IDs:               []int64{1, 2},
		ProcessSingleTags: true,
		Policy:            reconcile.Append,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, totals.Total)
	assert.Equal(t, 1, totals.Annotated)
	assert.Empty(t, fake.Tags(2))
}

func TestRunNetRemovalTotals(t *testing.T) {
	// Overwrite deletes a stale recognized namespace holding more pairs than
	// the run writes elsewhere: the run's pair total goes negative.
	directory := []string{"Organism", "Antibody"}
	fake := omerotest.NewFake()
	fake.SetPath(1, "C;/data/a.tif")
	ctx := context.Background()
	require.NoError(t, fake.WriteKeyValueAnnotation(ctx, 1, "Organism",
		[]annotate.Pair{{Key: "species", Value: "rat"}, {Key: "strain", Value: "wistar"}}))

	h := make(annotate.Hierarchy)
	h.Add("05_Antibody", "clone", "ab-1")

	extractor := &stubExtractor{hierarchies: map[string]annotate.Hierarchy{
		`C:\data\a.tif`: h,
	}}
	source := &stubSource{images: []omero.Image{{ID: 1}}, fake: fake}

	runner := newRunner(source, extractor, fake, directory)
	totals, err := runner.Run(ctx, run.Params{
		DataType: run.DataTypeImage,
		IDs:      []int64{1},
		Policy:   reconcile.Overwrite,
	})
	require.NoError(t, err)

	assert.Equal(t, -1, totals.Pairs, "one pair written, two stale pairs removed")
	assert.Equal(t, 1, totals.Annotated)
	assert.Empty(t, fake.Pairs(1, "Organism"))
	assert.Equal(t, []annotate.Pair{{Key: "clone", Value: "ab-1"}}, fake.Pairs(1, "Antibody"))
}

func TestRunValidatesParams(t *testing.T) {
	fake := omerotest.NewFake()
	runner := newRunner(&stubSource{fake: fake}, &stubExtractor{}, fake, nil)

	_, err := runner.Run(context.Background(), run.Params{DataType: "Screen", IDs: []int64{1}})
	assert.Error(t, err)

	_, err = runner.Run(context.Background(), run.Params{DataType: run.DataTypeImage})
	assert.Error(t, err, "empty id list is rejected")
}

func TestSummaryVariants(t *testing.T) {
	tests := []struct {
		name   string
		totals run.Totals
		want   string
	}{
		{
			"both appended",
			run.Totals{Annotated: 3, Total: 4, Pairs: 5, Tags: 2},
			"Annotated 3/4 images. Appended 5 total Key-Value pairs and 2 total Tags.",
		},
		{
			"pairs removed",
			run.Totals{Annotated: 1, Total: 2, Pairs: -3, Tags: 1},
			"Annotated 1/2 images. Removed 3 total Key-Value pairs and appended 1 total Tags.",
		},
		{
			"tags removed",
			run.Totals{Annotated: 1, Total: 1, Pairs: 2, Tags: -4},
			"Annotated 1/1 images. Appended 2 total Key-Value pairs and removed 4 total Tags.",
		},
		{
			"both removed",
			run.Totals{Annotated: 2, Total: 2, Pairs: -1, Tags: -1},
			"Annotated 2/2 images. Removed 1 total Key-Value pairs and removed 1 total Tags.",
		},
		{
			"zero counts read as appended",
			run.Totals{Annotated: 0, Total: 3, Pairs: 0, Tags: 0},
			"Annotated 0/3 images. Appended 0 total Key-Value pairs and 0 total Tags.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.totals.Summary(); got != tt.want {
				t.Errorf("Summary() = %q, want %q", got, tt.want)
			}
		})
	}
}
