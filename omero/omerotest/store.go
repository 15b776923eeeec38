// Package omerotest provides an in-memory annotation store fake for tests.
package omerotest

import (
	"context"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/errors"
	"github.com/muenster-imaging/tabblesync/reconcile"
)

// kvAnnotation mirrors one stored map annotation: a namespace plus an
// ordered pair list. An image may hold several annotations with the same
// namespace; ListAnnotations merges them, like the real store does.
type kvAnnotation struct {
	namespace string
	pairs     []annotate.Pair
}

// Fake is an in-memory reconcile.Store. It also records source paths per
// image for orchestrator tests. Not safe for concurrent use; reconciliation
// is sequential by design.
type Fake struct {
	nextTagID  reconcile.TagID
	tagsByName map[string]reconcile.TagID
	tagNames   map[reconcile.TagID]string
	links      map[reconcile.ImageID][]reconcile.TagID
	kv         map[reconcile.ImageID][]kvAnnotation
	paths      map[reconcile.ImageID]string

	// Failure injection for store-operation failure tests.
	FailDeletes bool
	FailUnlink  bool
}

// NewFake returns an empty fake store.
func NewFake() *Fake {
	return &Fake{
		tagsByName: make(map[string]reconcile.TagID),
		tagNames:   make(map[reconcile.TagID]string),
		links:      make(map[reconcile.ImageID][]reconcile.TagID),
		kv:         make(map[reconcile.ImageID][]kvAnnotation),
		paths:      make(map[reconcile.ImageID]string),
	}
}

var _ reconcile.Store = (*Fake)(nil)

// ListAnnotations returns a merged snapshot of the image's annotations.
func (f *Fake) ListAnnotations(_ context.Context, image reconcile.ImageID) (*reconcile.Annotations, error) {
	out := &reconcile.Annotations{
		KeyValues: make(map[string]map[string][]string),
	}
	for _, id := range f.links[image] {
		out.Tags = append(out.Tags, f.tagNames[id])
	}
	for _, ann := range f.kv[image] {
		keys := out.KeyValues[ann.namespace]
		if keys == nil {
			keys = make(map[string][]string)
			out.KeyValues[ann.namespace] = keys
		}
		for _, p := range ann.pairs {
			keys[p.Key] = append(keys[p.Key], p.Value)
		}
	}
	return out, nil
}

// CreateOrReuseTag returns the id of an existing tag with the given name or
// creates a new tag entity.
func (f *Fake) CreateOrReuseTag(_ context.Context, name string) (reconcile.TagID, error) {
	if id, ok := f.tagsByName[name]; ok {
		return id, nil
	}
	f.nextTagID++
	f.tagsByName[name] = f.nextTagID
	f.tagNames[f.nextTagID] = name
	return f.nextTagID, nil
}

// Link attaches a tag to an image.
func (f *Fake) Link(_ context.Context, image reconcile.ImageID, tag reconcile.TagID) error {
	if _, ok := f.tagNames[tag]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "tag %d", tag)
	}
	f.links[image] = append(f.links[image], tag)
	return nil
}

// UnlinkAllTags removes every tag link from the image.
func (f *Fake) UnlinkAllTags(_ context.Context, image reconcile.ImageID) (int, error) {
	if f.FailUnlink {
		return 0, errors.New("injected unlink failure")
	}
	n := len(f.links[image])
	delete(f.links, image)
	return n, nil
}

// DeleteKeyValueAnnotations removes all annotations with the namespace.
func (f *Fake) DeleteKeyValueAnnotations(_ context.Context, image reconcile.ImageID, namespace string) error {
	if f.FailDeletes {
		return errors.New("injected delete failure")
	}
	kept := f.kv[image][:0]
	for _, ann := range f.kv[image] {
		if ann.namespace != namespace {
			kept = append(kept, ann)
		}
	}
	f.kv[image] = kept
	return nil
}

// WriteKeyValueAnnotation stores one annotation under the namespace.
func (f *Fake) WriteKeyValueAnnotation(_ context.Context, image reconcile.ImageID, namespace string, pairs []annotate.Pair) error {
	copied := append([]annotate.Pair(nil), pairs...)
	f.kv[image] = append(f.kv[image], kvAnnotation{namespace: namespace, pairs: copied})
	return nil
}

// SetPath records the image's on-disk source path.
func (f *Fake) SetPath(image reconcile.ImageID, path string) {
	f.paths[image] = path
}

// SourcePath returns the recorded source path, "" when none.
func (f *Fake) SourcePath(_ context.Context, image reconcile.ImageID) (string, error) {
	return f.paths[image], nil
}

// Tags returns the names currently linked to the image, in link order.
func (f *Fake) Tags(image reconcile.ImageID) []string {
	var names []string
	for _, id := range f.links[image] {
		names = append(names, f.tagNames[id])
	}
	return names
}

// TagCount returns how many distinct tag entities exist in the store.
func (f *Fake) TagCount() int {
	return len(f.tagsByName)
}

// Pairs returns the merged key/value pairs stored under the namespace.
func (f *Fake) Pairs(image reconcile.ImageID, namespace string) []annotate.Pair {
	var pairs []annotate.Pair
	for _, ann := range f.kv[image] {
		if ann.namespace == namespace {
			pairs = append(pairs, ann.pairs...)
		}
	}
	return pairs
}

// AnnotationCount returns how many separate key/value annotations the image
// holds under the namespace.
func (f *Fake) AnnotationCount(image reconcile.ImageID, namespace string) int {
	n := 0
	for _, ann := range f.kv[image] {
		if ann.namespace == namespace {
			n++
		}
	}
	return n
}
