// Package release finds the concrete release of a phar that satisfies a
// version constraint.
//
// Releases come from a Source: a local YAML catalog, the GitHub releases of
// a repository, or both. Resolver picks the highest matching version.
package release

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// ErrReleaseNotFound is returned when no release satisfies a constraint.
var ErrReleaseNotFound = errors.New("release not found")

// ErrUnknownPhar is returned by sources that do not know a phar at all.
var ErrUnknownPhar = fmt.Errorf("%w: unknown phar", ErrReleaseNotFound)

// Release is one published version of a phar.
type Release struct {
	Name         string
	Version      version.Version
	URL          string
	SignatureURL string
	BundleURL    string // optional Sigstore bundle
	Hash         string // optional expected SHA-256, hex
}

func (r Release) String() string {
	return r.Name + "@" + r.Version.String()
}

// Source lists the known releases of a phar.
type Source interface {
	Releases(ctx context.Context, name string) ([]Release, error)
}

// Resolver selects releases from a Source.
type Resolver struct {
	source Source
}

// NewResolver creates a resolver over source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the highest release of name that satisfies c.
// Pre-releases are only considered for exact constraints.
func (r *Resolver) Resolve(ctx context.Context, name string, c version.Constraint) (Release, error) {
	releases, err := r.source.Releases(ctx, name)
	if err != nil {
		return Release{}, fmt.Errorf("list releases of %s: %w", name, err)
	}

	best, ok := Select(releases, c)
	if !ok {
		return Release{}, fmt.Errorf("%w: %s %s", ErrReleaseNotFound, name, c)
	}
	return best, nil
}

// Select returns the highest release satisfying c.
func Select(releases []Release, c version.Constraint) (Release, bool) {
	allowPre := c.Kind() == version.KindExact

	candidates := make([]Release, 0, len(releases))
	for _, rel := range releases {
		if rel.Version.IsPreRelease() && !allowPre {
			continue
		}
		if c.IsSatisfiedBy(rel.Version) {
			candidates = append(candidates, rel)
		}
	}
	if len(candidates) == 0 {
		return Release{}, false
	}

	return slices.MaxFunc(candidates, func(a, b Release) int {
		return a.Version.Compare(b.Version)
	}), true
}
