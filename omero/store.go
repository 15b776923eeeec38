package omero

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/errors"
	"github.com/muenster-imaging/tabblesync/reconcile"
)

// webclientAnnotation is one entry of /webclient/api/annotations/.
type webclientAnnotation struct {
	ID        int64       `json:"id"`
	Ns        string      `json:"ns"`
	TextValue string      `json:"textValue"`
	Values    [][2]string `json:"values"`
}

type annotationsResponse struct {
	Annotations []webclientAnnotation `json:"annotations"`
}

var _ reconcile.Store = (*Client)(nil)

// ListAnnotations reads the image's tag and map annotations in one
// snapshot. Multiple map annotations sharing a namespace are merged.
func (c *Client) ListAnnotations(ctx context.Context, image reconcile.ImageID) (*reconcile.Annotations, error) {
	out := &reconcile.Annotations{
		KeyValues: make(map[string]map[string][]string),
	}

	tags, err := c.annotations(ctx, "tag", image)
	if err != nil {
		return nil, err
	}
	for _, ann := range tags {
		out.Tags = append(out.Tags, ann.TextValue)
	}

	maps, err := c.annotations(ctx, "map", image)
	if err != nil {
		return nil, err
	}
	for _, ann := range maps {
		keys := out.KeyValues[ann.Ns]
		if keys == nil {
			keys = make(map[string][]string)
			out.KeyValues[ann.Ns] = keys
		}
		for _, kv := range ann.Values {
			keys[kv[0]] = append(keys[kv[0]], kv[1])
		}
	}

	return out, nil
}

// CreateOrReuseTag returns the id of the tag with the given name, creating
// the tag entity only when no tag of that name exists anywhere in OMERO.
func (c *Client) CreateOrReuseTag(ctx context.Context, name string) (reconcile.TagID, error) {
	if c.tagDirectory == nil {
		if err := c.loadTagDirectory(ctx); err != nil {
			return 0, err
		}
	}
	if id, ok := c.tagDirectory[name]; ok {
		return reconcile.TagID(id), nil
	}

	form := url.Values{"tag": {name}}
	var created struct {
		ID int64 `json:"id"`
	}
	if err := c.postForm(ctx, "/webclient/annotate_tags/", form, &created); err != nil {
		return 0, errors.Wrapf(err, "failed to create tag %q", name)
	}
	c.log.Debugw("Created new tag", "tag", name, "id", created.ID)
	c.tagDirectory[name] = created.ID
	return reconcile.TagID(created.ID), nil
}

// Link attaches an existing tag annotation to an image.
func (c *Client) Link(ctx context.Context, image reconcile.ImageID, tag reconcile.TagID) error {
	form := url.Values{
		"image": {strconv.FormatInt(int64(image), 10)},
		"tags":  {strconv.FormatInt(int64(tag), 10)},
	}
	if err := c.postForm(ctx, "/webclient/annotate_tags/", form, nil); err != nil {
		return errors.Wrapf(err, "failed to link tag %d to image %d", tag, image)
	}
	return nil
}

// UnlinkAllTags removes every tag link from the image, leaving the tag
// entities themselves in place. Returns the number of removed links.
func (c *Client) UnlinkAllTags(ctx context.Context, image reconcile.ImageID) (int, error) {
	tags, err := c.annotations(ctx, "tag", image)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, ann := range tags {
		form := url.Values{
			"parent": {fmt.Sprintf("image-%d", image)},
			"tag":    {strconv.FormatInt(ann.ID, 10)},
		}
		if err := c.postForm(ctx, "/webclient/action/remove/", form, nil); err != nil {
			return removed, errors.Wrapf(err, "failed to unlink tag %d from image %d", ann.ID, image)
		}
		c.log.Debugw("Unlinked tag", "image", image, "tag", ann.TextValue)
		removed++
	}
	return removed, nil
}

// DeleteKeyValueAnnotations removes all map annotations with the given
// namespace from the image.
func (c *Client) DeleteKeyValueAnnotations(ctx context.Context, image reconcile.ImageID, namespace string) error {
	maps, err := c.annotations(ctx, "map", image)
	if err != nil {
		return err
	}

	for _, ann := range maps {
		if ann.Ns != namespace {
			continue
		}
		form := url.Values{
			"parent": {fmt.Sprintf("image-%d", image)},
			"ann":    {strconv.FormatInt(ann.ID, 10)},
		}
		if err := c.postForm(ctx, "/webclient/action/delete/", form, nil); err != nil {
			return errors.Wrapf(err, "failed to delete map annotation %d", ann.ID)
		}
	}
	return nil
}

// WriteKeyValueAnnotation creates one map annotation holding pairs under
// the namespace and links it to the image.
func (c *Client) WriteKeyValueAnnotation(ctx context.Context, image reconcile.ImageID, namespace string, pairs []annotate.Pair) error {
	values := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		values = append(values, [2]string{p.Key, p.Value})
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "failed to encode map annotation")
	}

	form := url.Values{
		"image":         {strconv.FormatInt(int64(image), 10)},
		"ns":            {namespace},
		"mapAnnotation": {string(encoded)},
	}
	if err := c.postForm(ctx, "/webclient/annotate_map/", form, nil); err != nil {
		return errors.Wrapf(err, "failed to write map annotation on image %d", image)
	}
	return nil
}

// annotations fetches one annotation kind for an image; image 0 lists the
// whole store (used for the tag directory).
func (c *Client) annotations(ctx context.Context, kind string, image reconcile.ImageID) ([]webclientAnnotation, error) {
	query := url.Values{"type": {kind}}
	if image != 0 {
		query.Set("image", strconv.FormatInt(int64(image), 10))
	}
	var resp annotationsResponse
	if err := c.getJSON(ctx, "/webclient/api/annotations/", query, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to list %s annotations", kind)
	}
	return resp.Annotations, nil
}

// loadTagDirectory fetches every tag annotation in the store once, keeping
// the first id per name like the metadata service does.
func (c *Client) loadTagDirectory(ctx context.Context) error {
	tags, err := c.annotations(ctx, "tag", 0)
	if err != nil {
		return errors.Wrap(err, "failed to load tag directory")
	}
	c.tagDirectory = make(map[string]int64, len(tags))
	for _, ann := range tags {
		if _, ok := c.tagDirectory[ann.TextValue]; !ok {
			c.tagDirectory[ann.TextValue] = ann.ID
		}
	}
	c.log.Debugw("Loaded tag directory", "tags", len(c.tagDirectory))
	return nil
}
