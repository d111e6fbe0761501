// Package testutil provides utilities for testing pharm in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated directories created by SetupTestEnv.
type Env struct {
	Home       string // PHARM_HOME: registry, keyring, phar store
	ConfigDir  string // XDG_CONFIG_HOME: pharm/config.toml lives below it
	ProjectDir string // a project directory for pharm.lua
}

// SetupTestEnv points every pharm path at a fresh temp directory so tests
// never touch the user's state, settings or GitHub credentials.
//
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := Env{
		Home:       filepath.Join(tmpDir, "home"),
		ConfigDir:  filepath.Join(tmpDir, "config"),
		ProjectDir: filepath.Join(tmpDir, "project"),
	}

	t.Setenv("PHARM_HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", env.ConfigDir)

	for _, name := range []string{
		"PHARM_KEYSERVER",
		"PHARM_CATALOG",
		"PHARM_PHP",
		"PHARM_GITHUB_TOKEN",
		"GITHUB_TOKEN",
		"PHARM_SIGSTORE_TRUSTED_ROOT",
		"PHARM_SIGSTORE_ISSUER",
		"PHARM_SIGSTORE_IDENTITY",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	for _, dir := range []string{env.Home, env.ConfigDir, env.ProjectDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	return env
}
