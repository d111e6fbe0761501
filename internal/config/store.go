package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// Store holds the declared phars of one project and writes them back to
// pharm.lua.
type Store struct {
	path      string
	generator *Generator
	phars     []InstalledPhar
	logger    Logger
}

// NewStore creates an empty store that will be saved to path.
func NewStore(path string) *Store {
	return &Store{
		path:      path,
		generator: NewGenerator(),
		logger:    noopLogger{},
	}
}

// Open parses path with parser. A missing file yields an empty store.
func Open(ctx context.Context, path string, parser *Parser) (*Store, error) {
	s := NewStore(path)

	cfg, err := parser.ParseFile(ctx, path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	s.phars = cfg.Phars
	return s, nil
}

// SetLogger sets the logger used for debug output.
func (s *Store) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	s.logger = logger
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// Phars returns a copy of the declared entries in file order.
func (s *Store) Phars() []InstalledPhar {
	return append([]InstalledPhar(nil), s.phars...)
}

// HasConfiguredPhar reports whether name at v is declared.
func (s *Store) HasConfiguredPhar(name string, v version.Version) bool {
	_, ok := s.GetConfiguredPhar(name, v)
	return ok
}

// GetConfiguredPhar returns the entry for name at v.
func (s *Store) GetConfiguredPhar(name string, v version.Version) (InstalledPhar, bool) {
	for _, p := range s.phars {
		if p.Name == name && p.Version.Equal(v) {
			return p, true
		}
	}
	return InstalledPhar{}, false
}

// Find returns the declared entry for name regardless of version.
func (s *Store) Find(name string) (InstalledPhar, bool) {
	for _, p := range s.phars {
		if p.Name == name {
			return p, true
		}
	}
	return InstalledPhar{}, false
}

// AddPhar declares p. An entry with the same name and version is replaced in
// place; entries of the same name at other versions are dropped.
func (s *Store) AddPhar(p InstalledPhar) {
	out := make([]InstalledPhar, 0, len(s.phars)+1)
	replaced := false
	for _, existing := range s.phars {
		if existing.Name != p.Name {
			out = append(out, existing)
			continue
		}
		if existing.Version.Equal(p.Version) && !replaced {
			out = append(out, p)
			replaced = true
			continue
		}
		s.logger.Debug("dropping superseded entry", "name", existing.Name, "version", existing.Version.String())
	}
	if !replaced {
		out = append(out, p)
	}
	s.phars = out
}

// RemovePhar removes every entry named name and reports whether one existed.
func (s *Store) RemovePhar(name string) bool {
	out := s.phars[:0:0]
	for _, p := range s.phars {
		if p.Name != name {
			out = append(out, p)
		}
	}
	removed := len(out) != len(s.phars)
	s.phars = out
	return removed
}

// Save validates and writes the file atomically.
func (s *Store) Save() error {
	cfg := &Config{Phars: s.phars}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	content, err := s.generator.Generate(cfg)
	if err != nil {
		return fmt.Errorf("generate config: %w", err)
	}

	if err := writeFileAtomic(s.path, []byte(content), 0644); err != nil {
		return err
	}
	s.logger.Debug("config saved", "path", s.path, "phars", len(s.phars))
	return nil
}

// writeFileAtomic writes data to a temp file beside path, syncs it, renames
// it into place and syncs the directory.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename config file: %w", err)
	}
	success = true

	if d, err := os.Open(dir); err == nil {
		d.Sync()
		d.Close()
	}
	return nil
}
