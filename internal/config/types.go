package config

import (
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// Config is the parsed content of pharm.lua.
type Config struct {
	Phars []InstalledPhar
}

// InstalledPhar is one declared phar. Values are replaced, never mutated,
// once stored in a Config.
type InstalledPhar struct {
	Name       string
	Version    version.Version
	Constraint version.Constraint
	Location   string
	Copy       bool
}

// Key identifies the entry by name and version.
func (p InstalledPhar) Key() string {
	return p.Name + "@" + p.Version.String()
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every entry and rejects duplicates.
func (c *Config) Validate() error {
	if len(c.Phars) > MaxPharCount {
		return &ValidationError{
			Field:   luaFieldPhars,
			Message: fmt.Sprintf("too many phars (%d > %d)", len(c.Phars), MaxPharCount),
		}
	}

	seen := make(map[string]bool, len(c.Phars))
	for i, p := range c.Phars {
		field := fmt.Sprintf("%s[%d]", luaFieldPhars, i+1)
		if err := p.Validate(); err != nil {
			return &ValidationError{Field: field, Message: err.Error()}
		}
		if seen[p.Key()] {
			return &ValidationError{Field: field, Message: fmt.Sprintf("duplicate entry %s", p.Key())}
		}
		seen[p.Key()] = true
	}
	return nil
}

// Validate checks a single entry.
func (p InstalledPhar) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: luaFieldName, Message: "must not be empty"}
	}
	if strings.ContainsAny(p.Name, "\x00\n\r") {
		return &ValidationError{Field: luaFieldName, Message: "contains control characters"}
	}
	if strings.TrimSpace(p.Location) == "" {
		return &ValidationError{Field: luaFieldLocation, Message: "must not be empty"}
	}
	if strings.ContainsRune(p.Location, 0) {
		return &ValidationError{Field: luaFieldLocation, Message: "contains null byte"}
	}
	return nil
}
