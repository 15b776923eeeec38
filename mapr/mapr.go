// Package mapr discovers the OMERO.mapr namespace directory.
//
// omero-web keeps its settings in a grid config.xml; the
// "omero.web.mapr.config" property holds a JSON list of mapr menu entries,
// each defining the namespaces it indexes. The presence of that directory
// flips the whole run into namespace-aware mode.
package mapr

import (
	"encoding/json"
	"encoding/xml"
	"os"
	"strings"

	"github.com/muenster-imaging/tabblesync/errors"
)

const configProperty = "omero.web.mapr.config"

type gridConfig struct {
	Properties []struct {
		Property []property `xml:"property"`
	} `xml:"properties"`
}

type property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type maprEntry struct {
	Config struct {
		Ns []string `json:"ns"`
	} `json:"config"`
}

// Namespaces reads the recognized mapr namespaces from the omero-web config
// at path, in definition order. An empty path means mapr is not expected;
// the result is nil and the run operates namespace-unaware. A non-empty
// path that cannot be read or parsed is a configuration error: the caller
// asked for directory-aware mode and did not get it.
func Namespaces(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "cannot read omero-web config %s: %v", path, err)
	}
	return parse(raw, path)
}

func parse(raw []byte, path string) ([]string, error) {
	var cfg gridConfig
	if err := xml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "malformed omero-web config %s: %v", path, err)
	}

	var value string
	for _, props := range cfg.Properties {
		for _, p := range props.Property {
			if p.Name == configProperty {
				value = p.Value
			}
		}
	}
	if value == "" {
		// mapr not configured on this system
		return nil, nil
	}

	// Older deployments store the Python literal form; the only difference
	// that matters here is the boolean casing.
	value = strings.ReplaceAll(value, "True", "true")
	value = strings.ReplaceAll(value, "False", "false")
	value = strings.ReplaceAll(value, "'", `"`)

	var entries []maprEntry
	if err := json.Unmarshal([]byte(value), &entries); err != nil {
		return nil, errors.Wrapf(errors.ErrConfiguration, "malformed %s in %s: %v", configProperty, path, err)
	}

	var namespaces []string
	for _, e := range entries {
		// skip entries that define no namespace at all
		if len(e.Config.Ns) > 0 && e.Config.Ns[0] != "" {
			namespaces = append(namespaces, e.Config.Ns[0])
		}
	}
	return namespaces, nil
}
