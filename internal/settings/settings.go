// Package settings loads pharm's user settings from
// $XDG_CONFIG_HOME/pharm/config.toml and PHARM_* environment variables.
// Environment variables take precedence over the file.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ZebulonRouseFrantzich/pharm/internal/trust"
)

const (
	// AppName is the directory name used under the config directory.
	AppName = "pharm"
	// FileName is the settings file inside the config directory.
	FileName = "config.toml"

	envPrefix = "PHARM"
)

// Settings are the resolved user settings.
type Settings struct {
	Home        string   `mapstructure:"home"`
	Keyservers  []string `mapstructure:"keyserver"`
	Catalog     string   `mapstructure:"catalog"`
	PHP         string   `mapstructure:"php"`
	GitHubToken string   `mapstructure:"github_token"`
	Sigstore    Sigstore `mapstructure:"sigstore"`

	// File is the settings file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// Sigstore configures verification of Sigstore bundles. Bundles are only
// checked when TrustedRoot is set.
type Sigstore struct {
	TrustedRoot string `mapstructure:"trusted_root"`
	Issuer      string `mapstructure:"issuer"`
	Identity    string `mapstructure:"identity"`
}

// Enabled reports whether Sigstore verification is configured.
func (s Sigstore) Enabled() bool {
	return s.TrustedRoot != ""
}

// LoadOptions overrides where settings are read from.
type LoadOptions struct {
	// ConfigFile is read instead of the default location and must exist.
	ConfigFile string
}

// ConfigDir returns $XDG_CONFIG_HOME/pharm, defaulting to ~/.config/pharm.
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", AppName), nil
}

// Load resolves settings.
func Load(opts LoadOptions) (*Settings, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	v.SetDefault("home", filepath.Join(home, "."+AppName))
	v.SetDefault("keyserver", []string{trust.DefaultKeyserver})
	v.SetDefault("catalog", "")
	v.SetDefault("php", "php")
	v.SetDefault("github_token", "")
	v.SetDefault("sigstore.trusted_root", "")
	v.SetDefault("sigstore.issuer", trust.DefaultSigstoreIssuer)
	v.SetDefault("sigstore.identity", "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github_token", "PHARM_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("bind github_token: %w", err)
	}

	path := opts.ConfigFile
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, FileName)
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")
	file := path
	if err := v.ReadInConfig(); err != nil {
		if opts.ConfigFile != "" || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
		file = ""
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	s.File = file

	if s.Catalog == "" {
		s.Catalog = filepath.Join(s.Home, "catalog.yaml")
	}
	s.Keyservers = splitList(s.Keyservers)
	return &s, nil
}

// splitList accepts both TOML arrays and comma-separated environment values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// PharDir is the local phar store.
func (s *Settings) PharDir() string { return filepath.Join(s.Home, "phars") }

// KeyringDir holds imported public keys.
func (s *Settings) KeyringDir() string { return filepath.Join(s.Home, "keys") }

// RegistryPath is the install registry.
func (s *Settings) RegistryPath() string { return filepath.Join(s.Home, "registry.json") }

// JournalDir holds journals of unfinished operations and the state lock.
func (s *Settings) JournalDir() string { return filepath.Join(s.Home, "txn") }
