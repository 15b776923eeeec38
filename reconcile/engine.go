package reconcile

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/errors"
)

// Engine reconciles normalized Tabbles data with an image's existing
// annotations. The namespace directory is fixed at construction; it selects
// the annotation regime for the whole run.
//
// Net-count semantics: PairsAdded is the signed delta, pairs written minus
// pairs that previously existed under namespaces that were superseded or
// deleted, computed per namespace and summed. TagsAdded is links created
// minus links removed. Failed store deletes count as zero effect.
type Engine struct {
	store     Store
	directory []string
	mode      annotate.Mode
	log       *zap.SugaredLogger
}

// NewEngine creates a reconciliation engine. directory is the ordered list
// of recognized namespaces; empty means flat mode.
func NewEngine(store Store, directory []string, log *zap.SugaredLogger) *Engine {
	return &Engine{
		store:     store,
		directory: directory,
		mode:      annotate.ModeFor(directory),
		log:       log,
	}
}

// Mode returns the annotation regime the engine operates in.
func (e *Engine) Mode() annotate.Mode {
	return e.mode
}

// Reconcile applies one image's normalized data under the given policy and
// returns the net deltas.
//
// A mismatch between the engine's mode and the normalized data's shape is a
// configuration error: the run was wired against the wrong directory and no
// per-image recovery makes sense. Individual store delete/link failures are
// logged and skipped.
func (e *Engine) Reconcile(ctx context.Context, image ImageID, policy Policy, n *annotate.Normalized) (Result, error) {
	if len(n.Namespaced) > 0 && e.mode != annotate.NamespaceAware {
		return Result{}, errors.AssertionFailedf(
			"namespaced data supplied but engine runs in %s mode", e.mode)
	}
	if len(n.FlatPairs) > 0 && e.mode != annotate.FlatMode {
		return Result{}, errors.AssertionFailedf(
			"flat pair data supplied but engine runs in %s mode", e.mode)
	}

	// One snapshot per image, before any delete/create is issued.
	existing, err := e.store.ListAnnotations(ctx, image)
	if err != nil {
		return Result{}, errors.Wrapf(err, "failed to list annotations for image %d", image)
	}

	switch policy {
	case Overwrite:
		return e.overwrite(ctx, image, n, existing), nil
	case Append:
		return e.append(ctx, image, n, existing), nil
	default:
		return Result{}, errors.AssertionFailedf("unknown policy %d", policy)
	}
}

func (e *Engine) overwrite(ctx context.Context, image ImageID, n *annotate.Normalized, existing *Annotations) Result {
	var res Result

	if len(n.Tags) > 0 {
		removed, err := e.store.UnlinkAllTags(ctx, image)
		if err != nil {
			e.log.Warnw("Failed to unlink tags, continuing", "image", image, "error", err)
			removed = 0
		}
		linked := 0
		for _, name := range n.Tags {
			id, err := e.store.CreateOrReuseTag(ctx, name)
			if err != nil {
				e.log.Warnw("Failed to create tag, skipping", "image", image, "tag", name, "error", err)
				continue
			}
			if err := e.store.Link(ctx, image, id); err != nil {
				e.log.Warnw("Failed to link tag, skipping", "image", image, "tag", name, "error", err)
				continue
			}
			linked++
		}
		res.TagsAdded = linked - removed
	}

	if len(n.FlatPairs) > 0 {
		res.PairsAdded += e.overwriteFlat(ctx, image, n.FlatPairs, existing)
	}

	if len(n.Namespaced) > 0 {
		res.PairsAdded += e.overwriteNamespaced(ctx, image, n.Namespaced, existing)
	}

	return res
}

// overwriteFlat unions the new pairs with the existing default-namespace
// pairs, new ones first so a consumer reading "first match" sees new data
// win, then replaces the old annotation with one holding the union.
// Returns the count of strictly new pairs.
func (e *Engine) overwriteFlat(ctx context.Context, image ImageID, newPairs []annotate.Pair, existing *Annotations) int {
	existingPairs := annotate.FlattenPairs(existing.KeyValues[annotate.DefaultNamespace])

	inNew := make(map[annotate.Pair]bool, len(newPairs))
	for _, p := range newPairs {
		inNew[p] = true
	}

	combined := make([]annotate.Pair, 0, len(newPairs)+len(existingPairs))
	combined = append(combined, newPairs...)
	added := len(newPairs)
	for _, p := range existingPairs {
		if inNew[p] {
			added-- // pair was already stored; not strictly new
			continue
		}
		combined = append(combined, p)
	}

	e.deleteNamespace(ctx, image, annotate.DefaultNamespace)
	if err := e.store.WriteKeyValueAnnotation(ctx, image, annotate.DefaultNamespace, combined); err != nil {
		e.log.Warnw("Failed to write key/value annotation", "image", image, "error", err)
		return 0
	}
	return added
}

// overwriteNamespaced deletes directory-recognized namespaces that vanished
// from the new data, fully supersedes namespaces present in the new data,
// and returns pairs written minus pairs deleted.
func (e *Engine) overwriteNamespaced(ctx context.Context, image ImageID, newPairs annotate.NamespacedPairs, existing *Annotations) int {
	deleted := 0
	written := 0

	for _, ns := range sortedNamespaces(existing.KeyValues) {
		if _, stillWanted := newPairs[ns]; stillWanted {
			continue
		}
		if !e.recognized(ns) {
			continue
		}
		if e.deleteNamespace(ctx, image, ns) {
			deleted += annotate.CountPairs(existing.KeyValues[ns])
		}
	}

	for _, ns := range sortedNamespaces(newPairs) {
		if old, ok := existing.KeyValues[ns]; ok {
			if e.deleteNamespace(ctx, image, ns) {
				deleted += annotate.CountPairs(old)
			}
		}
		pairs := newPairs.Pairs(ns)
		if err := e.store.WriteKeyValueAnnotation(ctx, image, ns, pairs); err != nil {
			e.log.Warnw("Failed to write key/value annotation", "image", image, "namespace", ns, "error", err)
			continue
		}
		written += len(pairs)
	}

	return written - deleted
}

func (e *Engine) append(ctx context.Context, image ImageID, n *annotate.Normalized, existing *Annotations) Result {
	var res Result

	for _, name := range n.Tags {
		if existing.HasTag(name) {
			continue
		}
		id, err := e.store.CreateOrReuseTag(ctx, name)
		if err != nil {
			e.log.Warnw("Failed to create tag, skipping", "image", image, "tag", name, "error", err)
			continue
		}
		if err := e.store.Link(ctx, image, id); err != nil {
			e.log.Warnw("Failed to link tag, skipping", "image", image, "tag", name, "error", err)
			continue
		}
		res.TagsAdded++
	}

	if len(n.FlatPairs) > 0 {
		res.PairsAdded += e.appendFlat(ctx, image, n.FlatPairs, existing)
	}

	if len(n.Namespaced) > 0 {
		res.PairsAdded += e.appendNamespaced(ctx, image, n.Namespaced, existing)
	}

	return res
}

// appendFlat adds new pairs missing from the default namespace and writes
// the full combined set back once. Returns the count of appended pairs.
func (e *Engine) appendFlat(ctx context.Context, image ImageID, newPairs []annotate.Pair, existing *Annotations) int {
	updated := annotate.FlattenPairs(existing.KeyValues[annotate.DefaultNamespace])

	present := make(map[annotate.Pair]bool, len(updated))
	for _, p := range updated {
		present[p] = true
	}

	appended := 0
	for _, p := range newPairs {
		if present[p] {
			continue
		}
		present[p] = true
		updated = append(updated, p)
		appended++
	}

	e.deleteNamespace(ctx, image, annotate.DefaultNamespace)
	if err := e.store.WriteKeyValueAnnotation(ctx, image, annotate.DefaultNamespace, updated); err != nil {
		e.log.Warnw("Failed to write key/value annotation", "image", image, "error", err)
		return 0
	}
	return appended
}

// appendNamespaced merges new triples into an in-memory copy of the
// snapshot, then rewrites only the namespaces that gained pairs.
// Namespaces absent from the new data are left untouched.
func (e *Engine) appendNamespaced(ctx context.Context, image ImageID, newPairs annotate.NamespacedPairs, existing *Annotations) int {
	merged := copyKeyValues(existing.KeyValues)
	touched := make(map[string]bool)
	appended := 0

	for _, ns := range sortedNamespaces(newPairs) {
		for _, p := range newPairs.Pairs(ns) {
			if containsValue(merged[ns][p.Key], p.Value) {
				continue
			}
			if merged[ns] == nil {
				merged[ns] = make(map[string][]string)
			}
			merged[ns][p.Key] = append(merged[ns][p.Key], p.Value)
			touched[ns] = true
			appended++
		}
	}

	for _, ns := range sortedNamespaces(newPairs) {
		if !touched[ns] {
			continue
		}
		e.deleteNamespace(ctx, image, ns)
		if err := e.store.WriteKeyValueAnnotation(ctx, image, ns, annotate.FlattenPairs(merged[ns])); err != nil {
			e.log.Warnw("Failed to write key/value annotation", "image", image, "namespace", ns, "error", err)
		}
	}

	return appended
}

// deleteNamespace removes one namespace's annotations, logging instead of
// failing: a failed delete risks one namespace's worth of stale data, not
// the whole image.
func (e *Engine) deleteNamespace(ctx context.Context, image ImageID, namespace string) bool {
	if err := e.store.DeleteKeyValueAnnotations(ctx, image, namespace); err != nil {
		e.log.Warnw("Failed to delete key/value annotations, continuing",
			"image", image, "namespace", namespace, "error", err)
		return false
	}
	return true
}

func (e *Engine) recognized(namespace string) bool {
	for _, ns := range e.directory {
		if ns == namespace {
			return true
		}
	}
	return false
}

func sortedNamespaces(m map[string]map[string][]string) []string {
	names := make([]string, 0, len(m))
	for ns := range m {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

func containsValue(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func copyKeyValues(kv map[string]map[string][]string) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(kv))
	for ns, keys := range kv {
		outKeys := make(map[string][]string, len(keys))
		for k, values := range keys {
			outKeys[k] = append([]string(nil), values...)
		}
		out[ns] = outKeys
	}
	return out
}
