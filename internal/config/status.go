package config

import (
	"context"
	"os"
	"path/filepath"
)

// PharStatus is the state of a declared phar on disk.
type PharStatus int

const (
	// StatusInstalled: the location exists and the registry records this
	// name and version there.
	StatusInstalled PharStatus = iota

	// StatusMissing: nothing exists at the location.
	StatusMissing

	// StatusPartial: a file exists at the location, but the registry does not
	// record the declared version there. Usually an interrupted install.
	StatusPartial
)

// String returns the string representation of a PharStatus.
func (s PharStatus) String() string {
	switch s {
	case StatusInstalled:
		return "installed"
	case StatusMissing:
		return "missing"
	case StatusPartial:
		return "partial"
	default:
		return "unknown"
	}
}

// Symbol returns the visual symbol for a PharStatus.
func (s PharStatus) Symbol() string {
	switch s {
	case StatusInstalled:
		return "✓"
	case StatusMissing:
		return "✗"
	default:
		return "?"
	}
}

// PharWithStatus pairs a declared entry with its detected status.
type PharWithStatus struct {
	Phar        InstalledPhar
	Destination string
	Status      PharStatus
}

// UsageLookup answers which phar the registry records at a destination.
type UsageLookup interface {
	InstalledAt(destination string) (name, version string, ok bool)
}

// StatusDetector compares declared entries against the filesystem and the
// registry.
type StatusDetector struct {
	usages UsageLookup
}

// NewStatusDetector creates a StatusDetector.
func NewStatusDetector(usages UsageLookup) *StatusDetector {
	return &StatusDetector{usages: usages}
}

// DetectStatus resolves each location against baseDir and classifies it.
// It stops early when ctx is cancelled.
func (d *StatusDetector) DetectStatus(ctx context.Context, baseDir string, phars []InstalledPhar) ([]PharWithStatus, error) {
	results := make([]PharWithStatus, 0, len(phars))

	for _, p := range phars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dest := ResolveLocation(baseDir, p.Location)
		result := PharWithStatus{Phar: p, Destination: dest}

		if _, err := os.Lstat(dest); err != nil {
			result.Status = StatusMissing
		} else if name, ver, ok := d.usages.InstalledAt(dest); ok && name == p.Name && ver == p.Version.String() {
			result.Status = StatusInstalled
		} else {
			result.Status = StatusPartial
		}

		results = append(results, result)
	}

	return results, nil
}

// ResolveLocation makes a declared location absolute relative to baseDir.
func ResolveLocation(baseDir, location string) string {
	if filepath.IsAbs(location) {
		return filepath.Clean(location)
	}
	return filepath.Join(baseDir, location)
}
