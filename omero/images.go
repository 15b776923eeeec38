package omero

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/muenster-imaging/tabblesync/errors"
	"github.com/muenster-imaging/tabblesync/reconcile"
)

// Image is one enumerated target image.
type Image struct {
	ID   reconcile.ImageID
	Name string
}

// jsonAPIObject is one entry of the OMERO JSON API's data lists.
type jsonAPIObject struct {
	ID   int64  `json:"@id"`
	Name string `json:"Name"`
}

type jsonAPIResponse struct {
	Data []jsonAPIObject `json:"data"`
}

// Images enumerates the images addressed by kind ("Project", "Dataset" or
// "Image") and ids, flattening containers in id order.
func (c *Client) Images(ctx context.Context, kind string, ids []int64) ([]Image, error) {
	var images []Image

	switch kind {
	case "Image":
		for _, id := range ids {
			img, err := c.image(ctx, id)
			if err != nil {
				return nil, err
			}
			images = append(images, img)
		}

	case "Dataset":
		for _, id := range ids {
			children, err := c.datasetImages(ctx, id)
			if err != nil {
				return nil, err
			}
			images = append(images, children...)
		}

	case "Project":
		for _, id := range ids {
			var datasets jsonAPIResponse
			path := fmt.Sprintf("/api/v0/m/projects/%d/datasets/", id)
			if err := c.getJSON(ctx, path, nil, &datasets); err != nil {
				return nil, errors.Wrapf(err, "failed to list datasets of project %d", id)
			}
			for _, ds := range datasets.Data {
				children, err := c.datasetImages(ctx, ds.ID)
				if err != nil {
					return nil, err
				}
				images = append(images, children...)
			}
		}

	default:
		return nil, errors.NewConfigurationError("unknown data type %q (want Project, Dataset or Image)", kind)
	}

	return images, nil
}

func (c *Client) image(ctx context.Context, id int64) (Image, error) {
	var resp struct {
		Data jsonAPIObject `json:"data"`
	}
	path := fmt.Sprintf("/api/v0/m/images/%d/", id)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return Image{}, errors.Wrapf(err, "failed to fetch image %d", id)
	}
	return Image{ID: reconcile.ImageID(resp.Data.ID), Name: resp.Data.Name}, nil
}

func (c *Client) datasetImages(ctx context.Context, id int64) ([]Image, error) {
	var resp jsonAPIResponse
	path := fmt.Sprintf("/api/v0/m/datasets/%d/images/", id)
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, errors.Wrapf(err, "failed to list images of dataset %d", id)
	}
	images := make([]Image, 0, len(resp.Data))
	for _, obj := range resp.Data {
		images = append(images, Image{ID: reconcile.ImageID(obj.ID), Name: obj.Name})
	}
	return images, nil
}

// SourcePath returns the client-side import path of the image's fileset.
// Filesets with several files (HCS plates, container formats) report the
// first path; Tabbles tags apply to the whole fileset. Images without an
// imported fileset yield "".
func (c *Client) SourcePath(ctx context.Context, image reconcile.ImageID) (string, error) {
	var resp struct {
		Data []struct {
			ClientPath string `json:"clientPath"`
		} `json:"data"`
	}
	query := url.Values{"image": {strconv.FormatInt(int64(image), 10)}}
	if err := c.getJSON(ctx, "/webclient/api/filesets/", query, &resp); err != nil {
		return "", errors.Wrapf(err, "failed to fetch fileset paths for image %d", image)
	}
	if len(resp.Data) == 0 {
		return "", nil
	}
	return resp.Data[0].ClientPath, nil
}
