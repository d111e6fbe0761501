package main

import (
	"testing"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

func TestFormatPharOptions(t *testing.T) {
	tests := []struct {
		name     string
		phar     config.InstalledPhar
		expected string
	}{
		{
			name:     "any version",
			phar:     config.InstalledPhar{Name: "phpunit", Constraint: version.Any()},
			expected: "(*)",
		},
		{
			name: "constraint and location",
			phar: config.InstalledPhar{
				Name:       "phpunit",
				Constraint: version.MustParseConstraint("^10.5"),
				Location:   "./tools/phpunit",
			},
			expected: "(^10.5, ./tools/phpunit)",
		},
		{
			name: "copy",
			phar: config.InstalledPhar{
				Name:       "phpstan",
				Constraint: version.MustParseConstraint("1.10.0"),
				Location:   "/opt/bin/phpstan",
				Copy:       true,
			},
			expected: "(1.10.0, /opt/bin/phpstan, copy)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatPharOptions(tt.phar); got != tt.expected {
				t.Errorf("formatPharOptions() = %q, want %q", got, tt.expected)
			}
		})
	}
}
