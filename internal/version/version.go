// Package version models semantic versions and the constraints pharm uses to
// select and pin releases.
//
// Constraints are a closed set of variants (see Kind). Every variant can test
// a Version and render a canonical string; two constraints are considered the
// same request iff their canonical strings match.
package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid version")

// InvalidVersionError is returned when a string is not a semantic version.
type InvalidVersionError struct {
	Value string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %q", e.Value)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

var versionRegex = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?(?:-([0-9A-Za-z\-.]+))?(?:\+([0-9A-Za-z\-.]+))?$`)

// Version is an immutable semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	PreRelease string
	Build      string
}

// Parse parses "1", "1.2", "1.2.3", with an optional leading "v", pre-release
// suffix and build metadata. Missing minor/patch components default to zero.
func Parse(s string) (Version, error) {
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, &InvalidVersionError{Value: s}
	}

	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, &InvalidVersionError{Value: s}
	}
	if m[2] != "" {
		if v.Minor, err = strconv.Atoi(m[2]); err != nil {
			return Version{}, &InvalidVersionError{Value: s}
		}
	}
	if m[3] != "" {
		if v.Patch, err = strconv.Atoi(m[3]); err != nil {
			return Version{}, &InvalidVersionError{Value: s}
		}
	}
	v.PreRelease = m[4]
	v.Build = m[5]

	// Compare orders every version x/mod/semver rejects as equal, so
	// "1.0.0-01" and "1.0.0-a..b" are refused here.
	check := v.semverString()
	if v.Build != "" {
		check += "+" + v.Build
	}
	if !semver.IsValid(check) {
		return Version{}, &InvalidVersionError{Value: s}
	}

	return v, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the canonical form major.minor.patch[-pre][+build].
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// semverString is the x/mod/semver form used for precedence comparison.
func (v Version) semverString() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.PreRelease != "" {
		s += "-" + v.PreRelease
	}
	return s
}

// Compare returns -1, 0 or 1 by semantic precedence. Pre-releases order below
// their release and build metadata is ignored.
func (v Version) Compare(other Version) int {
	return semver.Compare(v.semverString(), other.semverString())
}

// Equal reports whether both versions have the same canonical string.
func (v Version) Equal(other Version) bool {
	return v.String() == other.String()
}

// IsPreRelease reports whether the version carries a pre-release suffix.
func (v Version) IsPreRelease() bool {
	return v.PreRelease != ""
}
