package version

import (
	"fmt"
	"strings"
)

// Kind identifies a constraint variant.
type Kind int

const (
	// KindAny is satisfied by every version. It is the zero value.
	KindAny Kind = iota
	// KindExact is satisfied by exactly one version.
	KindExact
	// KindGreaterOrEqual is satisfied by versions at or above a bound.
	KindGreaterOrEqual
	// KindSpecificMajor is satisfied by versions sharing a major number.
	KindSpecificMajor
	// KindSpecificMajorMinor is satisfied by versions sharing major and minor.
	KindSpecificMajorMinor
	// KindAnd is satisfied when every child is.
	KindAnd
	// KindOr is satisfied when any child is.
	KindOr
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindExact:
		return "exact"
	case KindGreaterOrEqual:
		return "greater-or-equal"
	case KindSpecificMajor:
		return "specific-major"
	case KindSpecificMajorMinor:
		return "specific-major-minor"
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "unknown"
	}
}

// AnyString is the canonical rendering of the Any constraint.
const AnyString = "*"

// Constraint is an immutable predicate over versions. The zero value is Any.
type Constraint struct {
	kind     Kind
	label    string
	bound    Version
	major    int
	minor    int
	children []Constraint
}

// Any returns the constraint satisfied by every version.
func Any() Constraint {
	return Constraint{kind: KindAny}
}

// Exact returns a constraint satisfied only by v.
func Exact(v Version) Constraint {
	return Constraint{kind: KindExact, bound: v}
}

// GreaterOrEqual returns a constraint satisfied by versions >= v.
// An empty label renders as ">=v".
func GreaterOrEqual(label string, v Version) Constraint {
	return Constraint{kind: KindGreaterOrEqual, label: label, bound: v}
}

// SpecificMajor returns a constraint satisfied by versions with the given
// major number. An empty label renders as "major.*".
func SpecificMajor(label string, major int) Constraint {
	return Constraint{kind: KindSpecificMajor, label: label, major: major}
}

// SpecificMajorMinor returns a constraint satisfied by versions with the given
// major and minor numbers. An empty label renders as "major.minor.*".
func SpecificMajorMinor(label string, major, minor int) Constraint {
	return Constraint{kind: KindSpecificMajorMinor, label: label, major: major, minor: minor}
}

// And groups children that must all be satisfied.
func And(label string, children ...Constraint) Constraint {
	return Constraint{kind: KindAnd, label: label, children: append([]Constraint(nil), children...)}
}

// Or groups children of which at least one must be satisfied.
func Or(label string, children ...Constraint) Constraint {
	return Constraint{kind: KindOr, label: label, children: append([]Constraint(nil), children...)}
}

// Caret pins to v: at least v, same major. It renders as "^v".
func Caret(v Version) Constraint {
	return And(
		"^"+v.String(),
		GreaterOrEqual("", v),
		SpecificMajor("", v.Major),
	)
}

// Kind returns the constraint's variant.
func (c Constraint) Kind() Kind {
	return c.kind
}

// IsAny reports whether c is the Any constraint.
func (c Constraint) IsAny() bool {
	return c.kind == KindAny
}

// Bound returns the version of an Exact or GreaterOrEqual constraint.
func (c Constraint) Bound() Version {
	return c.bound
}

// Children returns a copy of the children of an And/Or group.
func (c Constraint) Children() []Constraint {
	return append([]Constraint(nil), c.children...)
}

// IsSatisfiedBy reports whether v satisfies the constraint.
func (c Constraint) IsSatisfiedBy(v Version) bool {
	switch c.kind {
	case KindAny:
		return true
	case KindExact:
		return v.Equal(c.bound)
	case KindGreaterOrEqual:
		return v.Compare(c.bound) >= 0
	case KindSpecificMajor:
		return v.Major == c.major
	case KindSpecificMajorMinor:
		return v.Major == c.major && v.Minor == c.minor
	case KindAnd:
		for _, child := range c.children {
			if !child.IsSatisfiedBy(v) {
				return false
			}
		}
		return true
	case KindOr:
		for _, child := range c.children {
			if child.IsSatisfiedBy(v) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// String returns the canonical form. It depends only on the structure of the
// constraint and is used for equality.
func (c Constraint) String() string {
	if c.label != "" {
		return c.label
	}

	switch c.kind {
	case KindAny:
		return AnyString
	case KindExact:
		return c.bound.String()
	case KindGreaterOrEqual:
		return ">=" + c.bound.String()
	case KindSpecificMajor:
		return fmt.Sprintf("%d.*", c.major)
	case KindSpecificMajorMinor:
		return fmt.Sprintf("%d.%d.*", c.major, c.minor)
	case KindAnd:
		return joinChildren(c.children, ",")
	case KindOr:
		return joinChildren(c.children, " || ")
	default:
		return ""
	}
}

func joinChildren(children []Constraint, sep string) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		parts = append(parts, child.String())
	}
	return strings.Join(parts, sep)
}

// Equal reports whether both constraints render the same canonical string.
func Equal(a, b Constraint) bool {
	return a.String() == b.String()
}
