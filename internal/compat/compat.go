// Package compat checks a phar's declared requirements against the
// environment it is about to run in.
package compat

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/platform"
)

// Dimension names the requirement a violation belongs to.
type Dimension string

const (
	DimensionRuntime    Dimension = "runtime"
	DimensionExtensions Dimension = "extensions"
	DimensionOS         Dimension = "os"
)

// Violation is one unmet requirement.
type Violation struct {
	Dimension Dimension
	Message   string
}

// Result is the outcome of a compatibility check.
type Result struct {
	violations []Violation
}

// IsCompatible reports whether every requirement is met.
func (r Result) IsCompatible() bool {
	return len(r.violations) == 0
}

// Violations returns the unmet requirements in check order.
func (r Result) Violations() []Violation {
	out := make([]Violation, len(r.violations))
	copy(out, r.violations)
	return out
}

// String renders one "- message" line per violation.
func (r Result) String() string {
	lines := make([]string, len(r.violations))
	for i, v := range r.violations {
		lines[i] = "- " + v.Message
	}
	return strings.Join(lines, "\n")
}

// Check evaluates manifest against env. Requirements the manifest does not
// declare are satisfied. A nil manifest is always compatible.
func Check(manifest *phar.Manifest, env platform.Environment) Result {
	var r Result
	if manifest == nil {
		return r
	}

	if c := manifest.RuntimeConstraint; c != nil {
		switch {
		case !env.HasRuntime():
			r.add(DimensionRuntime, fmt.Sprintf("PHP %s is required, but no PHP runtime was found", c))
		case !c.IsSatisfiedBy(env.Runtime.Version):
			r.add(DimensionRuntime, fmt.Sprintf("PHP %s is required, but %s is installed", c, env.Runtime.Version))
		}
	}

	var missing []string
	for _, ext := range manifest.Extensions {
		if !env.Runtime.HasExtension(ext) {
			missing = append(missing, ext)
		}
	}
	switch len(missing) {
	case 0:
	case 1:
		r.add(DimensionExtensions, fmt.Sprintf("Extension %s is required, but not loaded", missing[0]))
	default:
		r.add(DimensionExtensions, fmt.Sprintf("Extensions %s are required, but not loaded", strings.Join(missing, ", ")))
	}

	if family := manifest.OSFamily; family != "" && !env.IsOSFamily(family) {
		r.add(DimensionOS, fmt.Sprintf("Operating system family %s is required, but this is %s", family, env.Info.OSFamily))
	}

	return r
}

func (r *Result) add(d Dimension, msg string) {
	r.violations = append(r.violations, Violation{Dimension: d, Message: msg})
}
