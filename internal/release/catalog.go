package release

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// Catalog is a YAML list of phars and where to find their releases:
//
//	phars:
//	  phpunit:
//	    github: sebastianbergmann/phpunit
//	  phpab:
//	    releases:
//	      - version: 1.29.0
//	        url: https://example.org/phpab-1.29.0.phar
//	        sha256: 0f3c...
//
// The signature URL defaults to the phar URL with ".asc" appended.
type Catalog struct {
	Phars map[string]CatalogEntry `yaml:"phars"`

	github *GitHubSource
}

// CatalogEntry describes one phar in the catalog.
type CatalogEntry struct {
	GitHub   string           `yaml:"github,omitempty"`
	Releases []CatalogRelease `yaml:"releases,omitempty"`
}

// CatalogRelease is a release listed inline in the catalog.
type CatalogRelease struct {
	Version   string `yaml:"version"`
	URL       string `yaml:"url"`
	Signature string `yaml:"signature,omitempty"`
	Bundle    string `yaml:"bundle,omitempty"`
	SHA256    string `yaml:"sha256,omitempty"`
}

// ParseCatalog decodes a catalog document and validates its versions.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for name, entry := range c.Phars {
		for i, rel := range entry.Releases {
			if _, err := version.Parse(rel.Version); err != nil {
				return nil, fmt.Errorf("parse catalog: %s release %d: %w", name, i, err)
			}
			if rel.URL == "" {
				return nil, fmt.Errorf("parse catalog: %s %s: url is required", name, rel.Version)
			}
		}
	}
	return &c, nil
}

// LoadCatalog reads a catalog file. A missing file yields an empty catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Catalog{}, nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// WithGitHub lets the catalog answer for entries with a github repository
// and for names of the form owner/repo.
func (c *Catalog) WithGitHub(g *GitHubSource) *Catalog {
	c.github = g
	return c
}

// Names lists the phars in the catalog, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Phars))
	for name := range c.Phars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Releases implements Source.
func (c *Catalog) Releases(ctx context.Context, name string) ([]Release, error) {
	entry, ok := c.Phars[name]
	if !ok {
		if c.github != nil && strings.Count(name, "/") == 1 {
			return c.github.Releases(ctx, name)
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownPhar, name)
	}

	releases := make([]Release, 0, len(entry.Releases))
	for _, rel := range entry.Releases {
		v, err := version.Parse(rel.Version)
		if err != nil {
			return nil, err
		}
		sig := rel.Signature
		if sig == "" {
			sig = rel.URL + ".asc"
		}
		releases = append(releases, Release{
			Name:         name,
			Version:      v,
			URL:          rel.URL,
			SignatureURL: sig,
			BundleURL:    rel.Bundle,
			Hash:         strings.ToLower(rel.SHA256),
		})
	}

	if entry.GitHub != "" && c.github != nil {
		remote, err := c.github.Releases(ctx, entry.GitHub)
		if err != nil {
			return nil, err
		}
		for _, rel := range remote {
			rel.Name = name
			releases = append(releases, rel)
		}
	}

	return releases, nil
}
