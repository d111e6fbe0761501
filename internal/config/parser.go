package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/pharm/internal/platform"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// EnvironmentProvider supplies the snapshot injected as the platform table.
type EnvironmentProvider interface {
	Environment(ctx context.Context) (platform.Environment, error)
}

// Parser evaluates pharm.lua in a sandboxed VM.
type Parser struct {
	env EnvironmentProvider
}

// NewParser creates a parser. A nil provider injects an empty environment,
// so platform conditionals see an unknown host without a PHP runtime.
func NewParser(env EnvironmentProvider) *Parser {
	return &Parser{env: env}
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// ParseFile reads and parses the file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s exceeds %d bytes", path, MaxConfigSize),
		}
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	env := platform.Environment{Info: platform.Info{OSFamily: platform.OSFamilyUnknown}}
	if p.env != nil {
		detected, err := p.env.Environment(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		env = detected
	}

	ctx, cancel := context.WithTimeout(ctx, ParseTimeout)
	defer cancel()

	L := newSandboxedVM(ctx)
	defer L.Close()

	if err := platform.InjectPlatformTable(L, env); err != nil {
		return nil, fmt.Errorf("inject platform table: %w", err)
	}

	if err := L.DoString(luaCode); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &ParseError{Message: "config evaluation timed out", Detail: err.Error()}
		}
		return nil, &ParseError{Message: "Lua syntax error", Detail: err.Error()}
	}

	return extractConfig(L)
}

// extractConfig reads the global "pharm" table.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal(luaGlobalPharm)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'pharm' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}

	cfg := &Config{}
	pharsVal := root.(*lua.LTable).RawGetString(luaFieldPhars)
	switch pharsVal.Type() {
	case lua.LTNil:
	case lua.LTTable:
		phars, err := extractPhars(pharsVal.(*lua.LTable))
		if err != nil {
			return nil, err
		}
		cfg.Phars = phars
	default:
		return nil, &ParseError{
			Message: "invalid 'phars' field",
			Detail:  fmt.Sprintf("expected table, got %s", pharsVal.Type()),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}
	return cfg, nil
}

// extractPhars reads the array entries in index order. Nil holes left by
// platform conditionals are skipped and non-integer keys are ignored.
func extractPhars(table *lua.LTable) ([]InstalledPhar, error) {
	type item struct {
		index int
		value lua.LValue
	}
	var items []item
	table.ForEach(func(key, value lua.LValue) {
		n, ok := key.(lua.LNumber)
		if !ok || value.Type() == lua.LTNil || float64(n) != float64(int(n)) {
			return
		}
		items = append(items, item{index: int(n), value: value})
	})
	slices.SortFunc(items, func(a, b item) int { return a.index - b.index })

	phars := make([]InstalledPhar, 0, len(items))
	for _, it := range items {
		entry, ok := it.value.(*lua.LTable)
		if !ok {
			return nil, &ParseError{
				Message: "invalid phar entry",
				Detail:  fmt.Sprintf("phars[%d]: expected table, got %s", it.index, it.value.Type()),
			}
		}
		p, err := extractPhar(entry)
		if err != nil {
			return nil, &ParseError{
				Message: "invalid phar entry",
				Detail:  fmt.Sprintf("phars[%d]: %v", it.index, err),
			}
		}
		phars = append(phars, p)
	}

	return phars, nil
}

func extractPhar(table *lua.LTable) (InstalledPhar, error) {
	var p InstalledPhar

	name, err := stringField(table, luaFieldName, true)
	if err != nil {
		return p, err
	}
	p.Name = name

	rawVersion, err := stringField(table, luaFieldVersion, true)
	if err != nil {
		return p, err
	}
	if p.Version, err = version.Parse(rawVersion); err != nil {
		return p, err
	}

	rawConstraint, err := stringField(table, luaFieldConstraint, false)
	if err != nil {
		return p, err
	}
	if rawConstraint == "" {
		p.Constraint = version.Caret(p.Version)
	} else if p.Constraint, err = version.ParseConstraint(rawConstraint); err != nil {
		return p, err
	}

	if p.Location, err = stringField(table, luaFieldLocation, true); err != nil {
		return p, err
	}

	switch v := table.RawGetString(luaFieldCopy).(type) {
	case *lua.LNilType:
	case lua.LBool:
		p.Copy = bool(v)
	default:
		return p, fmt.Errorf("%s: expected boolean, got %s", luaFieldCopy, v.Type())
	}

	return p, nil
}

func stringField(table *lua.LTable, field string, required bool) (string, error) {
	switch v := table.RawGetString(field).(type) {
	case lua.LString:
		return string(v), nil
	case *lua.LNilType:
		if required {
			return "", fmt.Errorf("%s: required", field)
		}
		return "", nil
	default:
		return "", fmt.Errorf("%s: expected string, got %s", field, v.Type())
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
