// Package run orchestrates a sync run: enumerate target images, extract
// each image's Tabbles hierarchy, normalize it and reconcile it against the
// annotation store, then accumulate run totals.
package run

import (
	"context"

	"go.uber.org/zap"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/errors"
	"github.com/muenster-imaging/tabblesync/omero"
	"github.com/muenster-imaging/tabblesync/reconcile"
	"github.com/muenster-imaging/tabblesync/tabbles"
)

// Valid data type selectors.
const (
	DataTypeProject = "Project"
	DataTypeDataset = "Dataset"
	DataTypeImage   = "Image"
)

// Params is the validated run configuration surface.
type Params struct {
	DataType          string
	IDs               []int64
	ProcessSingleTags bool
	Policy            reconcile.Policy
}

// Validate rejects unusable parameters before any core logic runs.
func (p Params) Validate() error {
	switch p.DataType {
	case DataTypeProject, DataTypeDataset, DataTypeImage:
	default:
		return errors.NewConfigurationError("unknown data type %q (want Project, Dataset or Image)", p.DataType)
	}
	if len(p.IDs) == 0 {
		return errors.NewConfigurationError("at least one id is required")
	}
	return nil
}

// ImageSource enumerates target images and resolves their source paths.
// Implemented by the OMERO client.
type ImageSource interface {
	Images(ctx context.Context, kind string, ids []int64) ([]omero.Image, error)
	SourcePath(ctx context.Context, image reconcile.ImageID) (string, error)
}

// Extractor produces the raw tag hierarchy for a source path. Implemented
// by the Tabbles client.
type Extractor interface {
	TagHierarchy(ctx context.Context, path string) (annotate.Hierarchy, error)
}

// Runner drives the per-image sync lifecycle sequentially: one hierarchy,
// one annotation snapshot, one reconciliation per image. Nothing is shared
// across images except the single-entry extraction cache.
type Runner struct {
	source    ImageSource
	extractor Extractor
	engine    *reconcile.Engine
	directory []string
	log       *zap.SugaredLogger
}

// NewRunner wires a runner. directory is the namespace directory the engine
// was built with.
func NewRunner(source ImageSource, extractor Extractor, engine *reconcile.Engine, directory []string, log *zap.SugaredLogger) *Runner {
	return &Runner{
		source:    source,
		extractor: extractor,
		engine:    engine,
		directory: directory,
		log:       log,
	}
}

// Run processes every addressed image and returns the accumulated totals.
// Configuration and data-integrity errors abort the whole run; no partial
// summary is produced. Images already reconciled keep their annotations.
func (r *Runner) Run(ctx context.Context, params Params) (*Totals, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	images, err := r.source.Images(ctx, params.DataType, params.IDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate images")
	}

	totals := &Totals{Total: len(images)}
	r.log.Infow("Starting sync run",
		"images", totals.Total,
		"policy", params.Policy.String(),
		"mode", annotate.ModeFor(r.directory).String(),
	)

	// Single-entry extraction cache: consecutive images sharing a fileset
	// (HCS plates, container formats) reuse the previous query result.
	var lastPath string
	var cached annotate.Hierarchy

	for _, img := range images {
		r.log.Infow("Processing image", "image", img.ID, "name", img.Name)

		raw, err := r.source.SourcePath(ctx, img.ID)
		if err != nil {
			// Treated like a missing path: the image stays processed but
			// unannotated.
			r.log.Warnw("Failed to resolve source path", "image", img.ID, "error", err)
			raw = ""
		}

		var hierarchy annotate.Hierarchy
		switch path := tabbles.NormalizePath(raw); {
		case raw == "":
			hierarchy = make(annotate.Hierarchy)
			lastPath, cached = "", nil

		case path == lastPath:
			r.log.Debugw("Reusing hierarchy from previous image", "path", path)
			hierarchy = cached

		default:
			hierarchy, err = r.extractor.TagHierarchy(ctx, path)
			if err != nil {
				return nil, errors.Wrapf(err, "extraction failed for image %d", img.ID)
			}
			lastPath, cached = path, hierarchy
		}

		normalized, err := annotate.Normalize(hierarchy, r.directory, params.ProcessSingleTags)
		if err != nil {
			return nil, errors.Wrapf(err, "normalization failed for image %d", img.ID)
		}

		res, err := r.engine.Reconcile(ctx, img.ID, params.Policy, normalized)
		if err != nil {
			return nil, errors.Wrapf(err, "reconciliation failed for image %d", img.ID)
		}

		totals.Pairs += res.PairsAdded
		totals.Tags += res.TagsAdded
		if !res.Zero() {
			totals.Annotated++
			r.log.Infow("Annotated image", "image", img.ID,
				"pairs", res.PairsAdded, "tags", res.TagsAdded)
		}
	}

	r.log.Infow("Sync run finished",
		"annotated", totals.Annotated,
		"total", totals.Total,
		"pairs", totals.Pairs,
		"tags", totals.Tags,
	)
	return totals, nil
}
