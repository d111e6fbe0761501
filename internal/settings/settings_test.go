package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ZebulonRouseFrantzich/pharm/internal/testutil"
	"github.com/ZebulonRouseFrantzich/pharm/internal/trust"
)

func writeSettings(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	s, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.Home != env.Home {
		t.Errorf("Home = %q, want %q", s.Home, env.Home)
	}
	if diff := cmp.Diff([]string{trust.DefaultKeyserver}, s.Keyservers); diff != "" {
		t.Errorf("Keyservers mismatch (-want +got):\n%s", diff)
	}
	if s.Catalog != filepath.Join(env.Home, "catalog.yaml") {
		t.Errorf("Catalog = %q", s.Catalog)
	}
	if s.PHP != "php" {
		t.Errorf("PHP = %q, want php", s.PHP)
	}
	if s.Sigstore.Enabled() {
		t.Error("Sigstore enabled without a trusted root")
	}
	if s.Sigstore.Issuer != trust.DefaultSigstoreIssuer {
		t.Errorf("Sigstore.Issuer = %q", s.Sigstore.Issuer)
	}
	if s.File != "" {
		t.Errorf("File = %q, want empty", s.File)
	}
	if s.RegistryPath() != filepath.Join(env.Home, "registry.json") {
		t.Errorf("RegistryPath() = %q", s.RegistryPath())
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	env := testutil.SetupTestEnv(t)
	path := filepath.Join(env.ConfigDir, AppName, FileName)
	writeSettings(t, path, `
keyserver = ["https://keys.example.test", "https://keyserver.ubuntu.com"]
php = "/usr/bin/php8.2"
github_token = "from-file"

[sigstore]
trusted_root = "/etc/pharm/trusted_root.json"
identity = "^https://github.com/phpstan/"
`)
	t.Setenv("PHARM_PHP", "/opt/php/bin/php")

	s, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.File != path {
		t.Errorf("File = %q, want %q", s.File, path)
	}
	if len(s.Keyservers) != 2 || s.Keyservers[0] != "https://keys.example.test" {
		t.Errorf("Keyservers = %v", s.Keyservers)
	}
	if s.PHP != "/opt/php/bin/php" {
		t.Errorf("PHP = %q, environment should win", s.PHP)
	}
	if s.GitHubToken != "from-file" {
		t.Errorf("GitHubToken = %q", s.GitHubToken)
	}
	if !s.Sigstore.Enabled() || s.Sigstore.Identity != "^https://github.com/phpstan/" {
		t.Errorf("Sigstore = %+v", s.Sigstore)
	}

	t.Setenv("GITHUB_TOKEN", "from-env")
	s, err = Load(LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.GitHubToken != "from-env" {
		t.Errorf("GitHubToken = %q, want GITHUB_TOKEN value", s.GitHubToken)
	}
}

func TestLoad_KeyserverListFromEnvironment(t *testing.T) {
	testutil.SetupTestEnv(t)
	t.Setenv("PHARM_KEYSERVER", "https://a.test, https://b.test")

	s, err := Load(LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"https://a.test", "https://b.test"}, s.Keyservers); diff != "" {
		t.Errorf("Keyservers mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	if _, err := Load(LoadOptions{ConfigFile: filepath.Join(env.ConfigDir, "missing.toml")}); err == nil {
		t.Error("expected error for missing explicit settings file")
	}

	bad := filepath.Join(env.ConfigDir, "bad.toml")
	writeSettings(t, bad, "home = [")
	if _, err := Load(LoadOptions{ConfigFile: bad}); err == nil {
		t.Error("expected error for invalid TOML")
	}

	custom := filepath.Join(env.ConfigDir, "custom.toml")
	writeSettings(t, custom, `home = "/srv/pharm"`)
	t.Setenv("PHARM_HOME", "")
	os.Unsetenv("PHARM_HOME")
	s, err := Load(LoadOptions{ConfigFile: custom})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Home != "/srv/pharm" || s.PharDir() != "/srv/pharm/phars" {
		t.Errorf("Home = %q, PharDir = %q", s.Home, s.PharDir())
	}
}
