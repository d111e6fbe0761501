package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidConstraint is the sentinel error wrapped by InvalidConstraintError.
var ErrInvalidConstraint = errors.New("invalid version constraint")

// InvalidConstraintError is returned when a constraint string cannot be parsed.
type InvalidConstraintError struct {
	Value  string
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid version constraint %q", e.Value)
	}
	return fmt.Sprintf("invalid version constraint %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConstraint so callers can use errors.Is.
func (e *InvalidConstraintError) Unwrap() error { return ErrInvalidConstraint }

var (
	wildcardMajorRegex      = regexp.MustCompile(`^v?(\d+)\.\*$`)
	wildcardMajorMinorRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.\*$`)
	tildeRegex              = regexp.MustCompile(`^v?(\d+)\.(\d+)(\.\d+)?(?:-[0-9A-Za-z\-.]+)?$`)
)

// ParseConstraint parses a constraint string.
//
// Supported forms:
//
//	1.2.3        exactly 1.2.3
//	>=1.2        1.2.0 or later
//	^1.2.3       >=1.2.3 within major 1
//	~1.2         >=1.2.0 within major 1
//	~1.2.3       >=1.2.3 within 1.2
//	1.* / 1.2.*  wildcard major / major.minor
//	a b, a,b     all of a and b
//	a || b       either a or b
//
// Whitespace between an operator and its version is ignored.
//
// An empty string or "*" matches any version.
func ParseConstraint(s string) (Constraint, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == AnyString {
		return Any(), nil
	}

	if strings.Contains(s, "||") {
		parts := strings.Split(s, "||")
		children := make([]Constraint, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				return Constraint{}, &InvalidConstraintError{Value: s, Reason: "empty alternative"}
			}
			child, err := ParseConstraint(part)
			if err != nil {
				return Constraint{}, err
			}
			children = append(children, child)
		}
		return Or(s, children...), nil
	}

	fields := joinOperators(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	}))
	if len(fields) == 1 {
		return parseSingle(fields[0])
	}
	if len(fields) > 1 {
		children := make([]Constraint, 0, len(fields))
		for _, field := range fields {
			child, err := parseSingle(field)
			if err != nil {
				return Constraint{}, err
			}
			children = append(children, child)
		}
		return And(s, children...), nil
	}

	return parseSingle(s)
}

// joinOperators glues a bare operator field onto the version that follows
// it, so ">= 1.0" reads the same as ">=1.0".
func joinOperators(fields []string) []string {
	out := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if (f == ">=" || f == "^" || f == "~") && i+1 < len(fields) {
			f += fields[i+1]
			i++
		}
		out = append(out, f)
	}
	return out
}

// MustParseConstraint is like ParseConstraint but panics on error.
func MustParseConstraint(s string) Constraint {
	c, err := ParseConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseSingle(s string) (Constraint, error) {
	switch {
	case s == AnyString:
		return Any(), nil

	case strings.HasPrefix(s, "^"):
		v, err := Parse(s[1:])
		if err != nil {
			return Constraint{}, &InvalidConstraintError{Value: s, Reason: err.Error()}
		}
		return And(s, GreaterOrEqual("", v), SpecificMajor("", v.Major)), nil

	case strings.HasPrefix(s, "~"):
		rest := s[1:]
		m := tildeRegex.FindStringSubmatch(rest)
		if m == nil {
			return Constraint{}, &InvalidConstraintError{Value: s, Reason: "tilde requires major.minor"}
		}
		v, err := Parse(rest)
		if err != nil {
			return Constraint{}, &InvalidConstraintError{Value: s, Reason: err.Error()}
		}
		if m[3] == "" {
			return And(s, GreaterOrEqual("", v), SpecificMajor("", v.Major)), nil
		}
		return And(s, GreaterOrEqual("", v), SpecificMajorMinor("", v.Major, v.Minor)), nil

	case strings.HasPrefix(s, ">="):
		v, err := Parse(s[2:])
		if err != nil {
			return Constraint{}, &InvalidConstraintError{Value: s, Reason: err.Error()}
		}
		return GreaterOrEqual(s, v), nil
	}

	if m := wildcardMajorRegex.FindStringSubmatch(s); m != nil {
		major, _ := strconv.Atoi(m[1])
		return SpecificMajor(s, major), nil
	}
	if m := wildcardMajorMinorRegex.FindStringSubmatch(s); m != nil {
		major, _ := strconv.Atoi(m[1])
		minor, _ := strconv.Atoi(m[2])
		return SpecificMajorMinor(s, major, minor), nil
	}

	v, err := Parse(s)
	if err != nil {
		return Constraint{}, &InvalidConstraintError{Value: s, Reason: err.Error()}
	}
	return Exact(v), nil
}
