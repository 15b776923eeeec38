// Package reconcile computes and applies annotation deltas against an
// annotation store, under an Overwrite or Append policy.
package reconcile

import (
	"context"
	"strings"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/errors"
)

// ImageID identifies an image in the annotation store.
type ImageID int64

// TagID identifies a tag annotation entity in the annotation store.
type TagID int64

// Annotations is a point-in-time snapshot of one image's annotations:
// linked tag names plus key/value pairs partitioned by namespace. The
// engine reads it once per image and never mutates it; every decision
// references the snapshot, not the live store, so delete/create ordering
// stays deterministic within one image's reconciliation.
type Annotations struct {
	Tags      []string
	KeyValues map[string]map[string][]string
}

// HasTag reports whether name is among the linked tags.
func (a *Annotations) HasTag(name string) bool {
	for _, t := range a.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// Store is the annotation store adapter the engine drives. Implemented by
// the OMERO web API client; tests use the in-memory fake in
// omero/omerotest.
type Store interface {
	// ListAnnotations returns the image's current annotation snapshot.
	ListAnnotations(ctx context.Context, image ImageID) (*Annotations, error)

	// CreateOrReuseTag returns the id of the tag entity with the given
	// name, creating it only if no tag of that name exists anywhere in
	// the store.
	CreateOrReuseTag(ctx context.Context, name string) (TagID, error)

	// Link attaches a tag entity to an image.
	Link(ctx context.Context, image ImageID, tag TagID) error

	// UnlinkAllTags removes every tag link from the image and returns how
	// many links were removed. The tag entities themselves survive.
	UnlinkAllTags(ctx context.Context, image ImageID) (int, error)

	// DeleteKeyValueAnnotations removes all key/value annotations with the
	// given namespace from the image.
	DeleteKeyValueAnnotations(ctx context.Context, image ImageID, namespace string) error

	// WriteKeyValueAnnotation creates one key/value annotation holding
	// pairs under the given namespace and links it to the image.
	WriteKeyValueAnnotation(ctx context.Context, image ImageID, namespace string, pairs []annotate.Pair) error
}

// Policy decides what happens to annotations already on an image.
type Policy int

const (
	// Overwrite replaces existing annotations with the new data; tags and
	// superseded namespaces are deleted first.
	Overwrite Policy = iota
	// Append only adds what is missing and never deletes.
	Append
)

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "overwrite":
		return Overwrite, nil
	case "append":
		return Append, nil
	default:
		return Overwrite, errors.NewConfigurationError("unknown policy %q (want overwrite or append)", s)
	}
}

func (p Policy) String() string {
	if p == Append {
		return "Append"
	}
	return "Overwrite"
}

// Result carries one image's net annotation deltas. Negative values mean
// net removals exceeded additions.
type Result struct {
	PairsAdded int
	TagsAdded  int
}

// Zero reports whether the reconciliation changed nothing on balance.
func (r Result) Zero() bool {
	return r.PairsAdded == 0 && r.TagsAdded == 0
}

// Add accumulates another result into this one.
func (r *Result) Add(other Result) {
	r.PairsAdded += other.PairsAdded
	r.TagsAdded += other.TagsAdded
}
