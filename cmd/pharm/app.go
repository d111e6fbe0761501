package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/download"
	"github.com/ZebulonRouseFrantzich/pharm/internal/git"
	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/platform"
	"github.com/ZebulonRouseFrantzich/pharm/internal/registry"
	"github.com/ZebulonRouseFrantzich/pharm/internal/release"
	"github.com/ZebulonRouseFrantzich/pharm/internal/service"
	"github.com/ZebulonRouseFrantzich/pharm/internal/settings"
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
	"github.com/ZebulonRouseFrantzich/pharm/internal/trust"
)

// app holds what every command needs: settings, the project directory and
// the terminal.
type app struct {
	settings   *settings.Settings
	projectDir string
	logger     logAdapter
	env        *platform.EnvironmentDetector

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(cmd *cobra.Command) (*app, error) {
	s, err := settings.Load(settings.LoadOptions{ConfigFile: settingsFile})
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if homeDir != "" {
		s.Home = homeDir
	}

	dir := projectDir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return nil, fmt.Errorf("resolve project directory: %w", err)
	}

	a := &app{
		settings:   s,
		projectDir: dir,
		logger:     newLogger(cmd.ErrOrStderr(), verbose),
		env:        platform.NewEnvironmentDetector(platform.NewDetector(), platform.NewPHPProber(s.PHP)),
		in:         cmd.InOrStdin(),
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
	}
	if s.File != "" {
		a.logger.Debug("settings loaded", "file", s.File)
	}
	a.logger.Debug("paths", "home", s.Home, "project", dir)
	return a, nil
}

func (a *app) configPath() string {
	return filepath.Join(a.projectDir, config.FileName)
}

func (a *app) openConfig(ctx context.Context) (*config.Store, error) {
	store, err := config.Open(ctx, a.configPath(), config.NewParser(a.env))
	if err != nil {
		return nil, err
	}
	store.SetLogger(a.logger)
	return store, nil
}

func (a *app) openRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(a.settings.RegistryPath())
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return reg, nil
}

// lock serialises mutating commands over the shared state in the home
// directory.
func (a *app) lock(ctx context.Context) (*transaction.Lock, error) {
	l, err := transaction.AcquireLock(ctx, a.settings.Home)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", a.settings.Home, err)
	}
	return l, nil
}

// input answers trust questions. --yes and --no win; without a terminal on
// stdin every question is declined.
func (a *app) input() trust.Input {
	switch {
	case assumeYes:
		return trust.AutoInput(true)
	case assumeNo:
		return trust.AutoInput(false)
	case !isTerminal(a.in):
		a.logger.Debug("stdin is not a terminal, declining key imports")
		return trust.AutoInput(false)
	}
	return trust.NewConsoleInput(a.in, a.errOut)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// releaseResolver combines the local catalog with GitHub releases.
func (a *app) releaseResolver() (*release.Resolver, error) {
	catalog, err := release.LoadCatalog(a.settings.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	var opts []release.GitHubOption
	if a.settings.GitHubToken != "" {
		opts = append(opts, release.WithToken(a.settings.GitHubToken))
	}
	return release.NewResolver(catalog.WithGitHub(release.NewGitHubSource(opts...))), nil
}

// artifactResolver wires downloads, OpenPGP verification and, when
// configured, Sigstore bundle verification.
func (a *app) artifactResolver(reg *registry.Registry) *phar.ArtifactResolver {
	fetcher := download.New()

	keyring := trust.NewKeyring(a.settings.KeyringDir())
	keys := trust.NewKeyService(
		keyring,
		trust.NewKeyserverDownloader(fetcher, a.settings.Keyservers...),
		keyring,
		consoleOutput{w: a.errOut},
		a.input(),
	)
	keys.SetLogger(a.logger)

	opts := []phar.ResolverOption{phar.WithSignerHistory(reg)}
	if sig := a.settings.Sigstore; sig.Enabled() {
		opts = append(opts, phar.WithBundleVerifier(trust.NewSigstoreVerifier(sig.TrustedRoot, sig.Issuer, sig.Identity)))
	}

	return phar.NewArtifactResolver(a.settings.PharDir(), fetcher, trust.NewSignatureVerifier(keyring, keys), opts...)
}

func (a *app) serviceOptions() []service.Option {
	return []service.Option{
		service.WithJournalDir(a.settings.JournalDir()),
		service.WithLogger(a.logger),
	}
}

func (a *app) installService(reg *registry.Registry, cfg *config.Store) (*service.InstallService, error) {
	releases, err := a.releaseResolver()
	if err != nil {
		return nil, err
	}
	opts := append(a.serviceOptions(), service.WithReleaseResolver(releases))
	return service.NewInstallService(a.artifactResolver(reg), a.env, phar.NewInstaller(), reg, cfg, a.projectDir, opts...), nil
}

func (a *app) removeService(reg *registry.Registry, cfg *config.Store) *service.RemoveService {
	return service.NewRemoveService(phar.NewInstaller(), reg, cfg, a.projectDir, a.serviceOptions()...)
}

func (a *app) listService(reg *registry.Registry, cfg *config.Store) *service.ListService {
	return service.NewListService(cfg, reg, a.projectDir, a.serviceOptions()...)
}

// ignore adds linked destinations to the .gitignore of the repository
// holding the project. Failures are only logged.
func (a *app) ignore(ctx context.Context, linked []string) {
	if len(linked) == 0 {
		return
	}

	repo, err := git.Open(ctx, a.projectDir)
	if errors.Is(err, git.ErrNotAGitRepo) {
		return
	}
	if err != nil {
		a.logger.Warn("cannot update .gitignore", "error", err)
		return
	}

	added, err := repo.Ignore(ctx, linked...)
	if err != nil {
		a.logger.Warn("cannot update .gitignore", "error", err)
		return
	}
	for _, entry := range added {
		fmt.Fprintf(a.out, "%s Ignored %s %s\n", SuccessStyle.Render("✓"), entry, SubtitleStyle.Render("(.gitignore)"))
	}
}
