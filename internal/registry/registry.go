// Package registry records which stored phars are installed where.
//
// The registry is a JSON document in the state directory. Each stored phar
// (identified by content hash) lists the destinations it was installed to.
// A destination belongs to at most one phar; a phar without destinations may
// be garbage collected.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// FileName is the registry document name inside the state directory.
const FileName = "registry.json"

const schemaVersion = 1

// Usage is one installed destination.
type Usage struct {
	Destination string `json:"destination"`
	Copy        bool   `json:"copy"`
}

// Entry is a stored phar and its usages.
type Entry struct {
	Name    string  `json:"name"`
	Version string  `json:"version"`
	Hash    string  `json:"hash"`
	File    string  `json:"file"`
	Signer  string  `json:"signer,omitempty"`
	Usages  []Usage `json:"usages"`
}

// Artifact rebuilds the artifact reference of a stored phar. The manifest
// is not part of the registry.
func (e Entry) Artifact() (*phar.Artifact, error) {
	v, err := version.Parse(e.Version)
	if err != nil {
		return nil, fmt.Errorf("registry entry %s: %w", e.Name, err)
	}
	return &phar.Artifact{
		Name:    e.Name,
		Version: v,
		File:    e.File,
		Hash:    phar.Hash(e.Hash),
		Signer:  e.Signer,
	}, nil
}

type document struct {
	Version int     `json:"version"`
	Phars   []Entry `json:"phars"`
}

// Registry is the in-memory registry bound to its file.
type Registry struct {
	path  string
	phars []Entry
}

// New creates an empty registry that saves to path.
func New(path string) *Registry {
	return &Registry{path: path}
}

// Load reads the registry at path. A missing file yields an empty registry.
func Load(path string) (*Registry, error) {
	r := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	if doc.Version > schemaVersion {
		return nil, fmt.Errorf("registry %s has unsupported version %d", path, doc.Version)
	}
	r.phars = doc.Phars
	return r, nil
}

// Path returns the registry file path.
func (r *Registry) Path() string { return r.path }

// Save writes the registry atomically.
func (r *Registry) Save() error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	phars := r.phars
	if phars == nil {
		phars = []Entry{}
	}
	data, err := json.MarshalIndent(document{Version: schemaVersion, Phars: phars}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registry: %w", err)
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temporary registry file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename registry file: %w", err)
	}

	if df, err := os.Open(dir); err == nil {
		syncErr := df.Sync()
		df.Close()
		if syncErr != nil {
			return fmt.Errorf("sync directory: %w", syncErr)
		}
	}
	return nil
}

// AddPhar records a stored phar. Recording the same hash again refreshes
// its metadata and keeps its usages.
func (r *Registry) AddPhar(a *phar.Artifact) {
	if i := r.indexOf(a.Hash); i >= 0 {
		e := &r.phars[i]
		e.Name, e.Version, e.File = a.Name, a.Version.String(), a.File
		if a.Signer != "" {
			e.Signer = a.Signer
		}
		return
	}
	r.phars = append(r.phars, Entry{
		Name:    a.Name,
		Version: a.Version.String(),
		Hash:    a.Hash.String(),
		File:    a.File,
		Signer:  a.Signer,
		Usages:  []Usage{},
	})
}

// AddUsage records that a was installed to destination. The destination is
// taken away from any other phar that held it.
func (r *Registry) AddUsage(a *phar.Artifact, destination string, makeCopy bool) {
	dest := cleanPath(destination)
	r.AddPhar(a)

	for i := range r.phars {
		if phar.Hash(r.phars[i].Hash).Equal(a.Hash) {
			continue
		}
		r.phars[i].Usages = withoutDestination(r.phars[i].Usages, dest)
	}

	e := &r.phars[r.indexOf(a.Hash)]
	for i := range e.Usages {
		if e.Usages[i].Destination == dest {
			e.Usages[i].Copy = makeCopy
			return
		}
	}
	e.Usages = append(e.Usages, Usage{Destination: dest, Copy: makeCopy})
}

// RemoveUsage forgets that a is installed at destination.
func (r *Registry) RemoveUsage(a *phar.Artifact, destination string) {
	if i := r.indexOf(a.Hash); i >= 0 {
		r.phars[i].Usages = withoutDestination(r.phars[i].Usages, cleanPath(destination))
	}
}

// HasUsages reports whether a is installed anywhere.
func (r *Registry) HasUsages(a *phar.Artifact) bool {
	i := r.indexOf(a.Hash)
	return i >= 0 && len(r.phars[i].Usages) > 0
}

// UsageOf returns the phar installed at destination.
func (r *Registry) UsageOf(destination string) (Entry, Usage, bool) {
	dest := cleanPath(destination)
	for _, e := range r.phars {
		for _, u := range e.Usages {
			if u.Destination == dest {
				return cloneEntry(e), u, true
			}
		}
	}
	return Entry{}, Usage{}, false
}

// InstalledAt reports the name and version of the phar recorded at
// destination.
func (r *Registry) InstalledAt(destination string) (name, version string, ok bool) {
	e, _, ok := r.UsageOf(destination)
	if !ok {
		return "", "", false
	}
	return e.Name, e.Version, true
}

// Unused returns the phars that no destination uses.
func (r *Registry) Unused() []Entry {
	var out []Entry
	for _, e := range r.phars {
		if len(e.Usages) == 0 {
			out = append(out, cloneEntry(e))
		}
	}
	return out
}

// RemovePhar drops a stored phar and its usages.
func (r *Registry) RemovePhar(a *phar.Artifact) {
	if i := r.indexOf(a.Hash); i >= 0 {
		r.phars = append(r.phars[:i], r.phars[i+1:]...)
	}
}

// Phars returns all entries sorted by name then version.
func (r *Registry) Phars() []Entry {
	out := make([]Entry, 0, len(r.phars))
	for _, e := range r.phars {
		out = append(out, cloneEntry(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		vi, erri := version.Parse(out[i].Version)
		vj, errj := version.Parse(out[j].Version)
		if erri != nil || errj != nil {
			return out[i].Version < out[j].Version
		}
		return vi.Compare(vj) < 0
	})
	return out
}

// FindByHash looks up a stored phar by content hash.
func (r *Registry) FindByHash(h phar.Hash) (Entry, bool) {
	if i := r.indexOf(h); i >= 0 {
		return cloneEntry(r.phars[i]), true
	}
	return Entry{}, false
}

// FindByNameVersion looks up a stored phar by name and version.
func (r *Registry) FindByNameVersion(name string, v version.Version) (Entry, bool) {
	for _, e := range r.phars {
		if e.Name == name && e.Version == v.String() {
			return cloneEntry(e), true
		}
	}
	return Entry{}, false
}

// KnownSigners lists the fingerprints that signed stored versions of name.
func (r *Registry) KnownSigners(name string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range r.phars {
		if e.Name != name || e.Signer == "" {
			continue
		}
		fpr := strings.ToUpper(e.Signer)
		if !seen[fpr] {
			seen[fpr] = true
			out = append(out, fpr)
		}
	}
	return out
}

func (r *Registry) indexOf(h phar.Hash) int {
	for i := range r.phars {
		if h.Equal(phar.Hash(r.phars[i].Hash)) {
			return i
		}
	}
	return -1
}

func withoutDestination(usages []Usage, dest string) []Usage {
	out := usages[:0]
	for _, u := range usages {
		if u.Destination != dest {
			out = append(out, u)
		}
	}
	return out
}

func cloneEntry(e Entry) Entry {
	e.Usages = append([]Usage{}, e.Usages...)
	return e
}

func cleanPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
