package version

import (
	"errors"
	"testing"
)

func TestParseConstraint(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantKind  Kind
		wantStr   string
		satisfied []string
		rejected  []string
	}{
		{
			name:      "empty_is_any",
			input:     "",
			wantKind:  KindAny,
			wantStr:   "*",
			satisfied: []string{"0.0.1", "99.0.0"},
		},
		{
			name:      "star",
			input:     "*",
			wantKind:  KindAny,
			wantStr:   "*",
			satisfied: []string{"1.0.0"},
		},
		{
			name:      "exact",
			input:     "9.6.13",
			wantKind:  KindExact,
			wantStr:   "9.6.13",
			satisfied: []string{"9.6.13"},
			rejected:  []string{"9.6.14"},
		},
		{
			name:      "caret",
			input:     "^9.6",
			wantKind:  KindAnd,
			wantStr:   "^9.6",
			satisfied: []string{"9.6.0", "9.99.1"},
			rejected:  []string{"9.5.9", "10.0.0"},
		},
		{
			name:      "tilde_minor",
			input:     "~1.2",
			wantKind:  KindAnd,
			wantStr:   "~1.2",
			satisfied: []string{"1.2.0", "1.9.0"},
			rejected:  []string{"1.1.0", "2.0.0"},
		},
		{
			name:      "tilde_patch",
			input:     "~1.2.3",
			wantKind:  KindAnd,
			wantStr:   "~1.2.3",
			satisfied: []string{"1.2.3", "1.2.9"},
			rejected:  []string{"1.3.0", "1.2.2"},
		},
		{
			name:      "greater_or_equal",
			input:     ">=7.3",
			wantKind:  KindGreaterOrEqual,
			wantStr:   ">=7.3",
			satisfied: []string{"7.3.0", "8.2.1"},
			rejected:  []string{"7.2.34"},
		},
		{
			name:      "wildcard_major",
			input:     "3.*",
			wantKind:  KindSpecificMajor,
			wantStr:   "3.*",
			satisfied: []string{"3.0.0", "3.8.1"},
			rejected:  []string{"4.0.0"},
		},
		{
			name:      "wildcard_minor",
			input:     "3.8.*",
			wantKind:  KindSpecificMajorMinor,
			wantStr:   "3.8.*",
			satisfied: []string{"3.8.5"},
			rejected:  []string{"3.9.0"},
		},
		{
			name:      "or",
			input:     "^7.3 || ^8.0",
			wantKind:  KindOr,
			wantStr:   "^7.3 || ^8.0",
			satisfied: []string{"7.4.0", "8.3.1"},
			rejected:  []string{"7.2.0", "9.0.0"},
		},
		{
			name:      "and_space",
			input:     ">=1.2 1.*",
			wantKind:  KindAnd,
			wantStr:   ">=1.2 1.*",
			satisfied: []string{"1.2.0"},
			rejected:  []string{"1.1.0", "2.0.0"},
		},
		{
			name:      "and_comma",
			input:     ">=1.2,1.*",
			wantKind:  KindAnd,
			wantStr:   ">=1.2,1.*",
			satisfied: []string{"1.5.0"},
			rejected:  []string{"2.5.0"},
		},
		{
			name:      "greater_or_equal_spaced",
			input:     ">= 1.0",
			wantKind:  KindGreaterOrEqual,
			wantStr:   ">=1.0",
			satisfied: []string{"1.0.0", "3.2.1"},
			rejected:  []string{"0.9.9"},
		},
		{
			name:      "caret_spaced",
			input:     "^ 2.1",
			wantKind:  KindAnd,
			wantStr:   "^2.1",
			satisfied: []string{"2.1.0", "2.9.0"},
			rejected:  []string{"2.0.9", "3.0.0"},
		},
		{
			name:      "tilde_spaced",
			input:     "~ 1.2.3",
			wantKind:  KindAnd,
			wantStr:   "~1.2.3",
			satisfied: []string{"1.2.3", "1.2.9"},
			rejected:  []string{"1.3.0"},
		},
		{
			name:      "and_spaced_operators",
			input:     ">= 1.2, 1.*",
			wantKind:  KindAnd,
			wantStr:   ">= 1.2, 1.*",
			satisfied: []string{"1.2.0", "1.9.0"},
			rejected:  []string{"1.1.0", "2.0.0"},
		},
		{
			name:      "or_spaced_operators",
			input:     "^ 7.3 || >= 8.1",
			wantKind:  KindOr,
			wantStr:   "^ 7.3 || >= 8.1",
			satisfied: []string{"7.4.0", "8.1.0", "9.0.0"},
			rejected:  []string{"7.2.0", "8.0.5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseConstraint(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", c.Kind(), tt.wantKind)
			}
			if c.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", c.String(), tt.wantStr)
			}
			for _, s := range tt.satisfied {
				if !c.IsSatisfiedBy(MustParse(s)) {
					t.Errorf("%q should be satisfied by %s", tt.input, s)
				}
			}
			for _, s := range tt.rejected {
				if c.IsSatisfiedBy(MustParse(s)) {
					t.Errorf("%q should not be satisfied by %s", tt.input, s)
				}
			}
		})
	}
}

func TestParseConstraintErrors(t *testing.T) {
	inputs := []string{"^", "~1", ">=x", "1.2.x", "^1 ||", "foo", ">= ", ">= x"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseConstraint(input)
			if err == nil {
				t.Fatalf("expected error for %q", input)
			}
			if !errors.Is(err, ErrInvalidConstraint) {
				t.Errorf("error should wrap ErrInvalidConstraint, got %v", err)
			}
		})
	}
}

func TestParsedCaretMatchesPinnedCaret(t *testing.T) {
	parsed := MustParseConstraint("^2.3.1")
	pinned := Caret(MustParse("2.3.1"))

	if !Equal(parsed, pinned) {
		t.Errorf("parsed %q and pinned %q should be the same request", parsed, pinned)
	}
}
