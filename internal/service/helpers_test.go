package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/platform"
	"github.com/ZebulonRouseFrantzich/pharm/internal/registry"
	"github.com/ZebulonRouseFrantzich/pharm/internal/release"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

var errBoom = errors.New("boom")

var fixedTime = time.Date(2025, 1, 16, 14, 30, 22, 0, time.UTC)

type fakeArtifacts struct {
	artifact *phar.Artifact
	err      error
	calls    int
}

func (f *fakeArtifacts) ArtifactFromRelease(ctx context.Context, rel release.Release) (*phar.Artifact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.artifact, nil
}

type fakeReleases struct {
	rel       release.Release
	err       error
	requested version.Constraint
}

func (f *fakeReleases) Resolve(ctx context.Context, name string, c version.Constraint) (release.Release, error) {
	f.requested = c
	return f.rel, f.err
}

type fakeEnv struct {
	env   platform.Environment
	calls int
}

func (f *fakeEnv) Environment(context.Context) (platform.Environment, error) {
	f.calls++
	return f.env, nil
}

type failingInstaller struct {
	installErr   error
	uninstallErr error
	installs     int
}

func (f *failingInstaller) Install(src, dest string, makeCopy bool) error {
	f.installs++
	return f.installErr
}

func (f *failingInstaller) Uninstall(dest string) error {
	return f.uninstallErr
}

// failingRegistry is a real registry whose Save can be made to fail.
type failingRegistry struct {
	*registry.Registry
	saveErr error
}

func (f *failingRegistry) Save() error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Registry.Save()
}

// failingConfig is a real config store whose Save can be made to fail.
type failingConfig struct {
	*config.Store
	saveErr error
	saves   int
}

func (f *failingConfig) Save() error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save()
}

type fixture struct {
	projectDir string
	stateDir   string
	journalDir string
	artifact   *phar.Artifact
	artifacts  *fakeArtifacts
	env        *fakeEnv
	registry   *failingRegistry
	config     *failingConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	f := &fixture{
		projectDir: filepath.Join(root, "project"),
		stateDir:   filepath.Join(root, "state"),
	}
	f.journalDir = filepath.Join(f.stateDir, "txn")

	stored := filepath.Join(f.stateDir, "phars", "phpunit-2.3.1.phar")
	if err := os.MkdirAll(filepath.Dir(stored), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stored, []byte("<?php __HALT_COMPILER();"), 0644); err != nil {
		t.Fatal(err)
	}

	f.artifact = &phar.Artifact{
		Name:    "phpunit",
		Version: version.MustParse("2.3.1"),
		File:    stored,
		Hash:    phar.HashContent([]byte("<?php __HALT_COMPILER();")),
		Signer:  "ABCDEF0123456789",
	}
	f.artifacts = &fakeArtifacts{artifact: f.artifact}
	f.env = &fakeEnv{env: platform.Environment{
		Info: platform.Info{OS: "linux", OSFamily: platform.OSFamilyLinux},
		Runtime: &platform.Runtime{
			Version:    version.MustParse("8.2.0"),
			Extensions: []string{"mbstring"},
		},
	}}
	f.registry = &failingRegistry{Registry: registry.New(filepath.Join(f.stateDir, registry.FileName))}
	f.config = &failingConfig{Store: config.NewStore(filepath.Join(f.projectDir, config.FileName))}
	return f
}

func (f *fixture) installService(installer Installer, opts ...Option) *InstallService {
	opts = append([]Option{WithJournalDir(f.journalDir), WithClock(FixedClock(fixedTime))}, opts...)
	return NewInstallService(f.artifacts, f.env, installer, f.registry, f.config, f.projectDir, opts...)
}

func (f *fixture) dest() string {
	return filepath.Join(f.projectDir, "tools", "phpunit")
}

func journalFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
