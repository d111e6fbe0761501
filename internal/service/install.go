package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/compat"
	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/release"
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// InstallService installs resolved releases and keeps the registry and the
// declared config in step with the filesystem.
type InstallService struct {
	artifacts  ArtifactResolver
	releases   ReleaseResolver
	env        EnvironmentProvider
	installer  Installer
	registry   Registry
	config     DeclaredConfig
	projectDir string
	journalDir string
	clock      Clock
	logger     Logger
}

// Option configures the orchestrators.
type Option func(*options)

type options struct {
	releases   ReleaseResolver
	journalDir string
	clock      Clock
	logger     Logger
}

// WithReleaseResolver enables InstallRequest.
func WithReleaseResolver(r ReleaseResolver) Option {
	return func(o *options) { o.releases = r }
}

// WithJournalDir keeps a journal of each operation in dir until it
// completes.
func WithJournalDir(dir string) Option {
	return func(o *options) { o.journalDir = dir }
}

// WithClock overrides the clock used for journal timestamps.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the progress logger.
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{clock: RealClock{}, logger: noopLogger{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewInstallService creates an InstallService. Declared locations are
// written relative to projectDir when the destination lies inside it.
func NewInstallService(
	artifacts ArtifactResolver,
	env EnvironmentProvider,
	installer Installer,
	reg Registry,
	cfg DeclaredConfig,
	projectDir string,
	opts ...Option,
) *InstallService {
	o := buildOptions(opts)
	return &InstallService{
		artifacts:  artifacts,
		releases:   o.releases,
		env:        env,
		installer:  installer,
		registry:   reg,
		config:     cfg,
		projectDir: projectDir,
		journalDir: o.journalDir,
		clock:      o.clock,
		logger:     o.logger,
	}
}

// InstallResult describes a completed install.
type InstallResult struct {
	Artifact    *phar.Artifact
	Destination string
	Constraint  version.Constraint // as persisted in the config
	ConfigSaved bool               // false when the config already matched
}

// InstallRequest resolves name against constraint and installs the result.
func (s *InstallService) InstallRequest(ctx context.Context, name, constraint, destination string, makeCopy bool) (*InstallResult, error) {
	if s.releases == nil {
		return nil, fmt.Errorf("%w: no release source configured", ErrResolution)
	}

	c, err := version.ParseConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolution, err)
	}

	rel, err := s.releases.Resolve(ctx, name, c)
	if err != nil {
		return nil, wrapResolution(name, err)
	}
	s.logger.Debug("release selected", "release", rel.String(), "constraint", c.String())

	return s.Execute(ctx, rel, c, destination, makeCopy)
}

// Restore installs the exact version declared for p at its declared
// location. The declared constraint is passed through unchanged, so a
// project that already matches its config is not rewritten.
func (s *InstallService) Restore(ctx context.Context, p config.InstalledPhar) (*InstallResult, error) {
	if s.releases == nil {
		return nil, fmt.Errorf("%w: no release source configured", ErrResolution)
	}

	rel, err := s.releases.Resolve(ctx, p.Name, version.Exact(p.Version))
	if err != nil {
		return nil, wrapResolution(p.Name, err)
	}

	dest := config.ResolveLocation(s.projectDir, p.Location)
	return s.Execute(ctx, rel, p.Constraint, dest, p.Copy)
}

// Execute installs rel at destination.
//
// Resolution, compatibility and the filesystem install fail fast without
// touching the registry or the config. A failure while recording the usage
// or updating the config leaves the phar installed; the journal kept for
// the operation reports which steps completed.
func (s *InstallService) Execute(ctx context.Context, rel release.Release, requested version.Constraint, destination string, makeCopy bool) (*InstallResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dest, err := filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve destination %s: %w", ErrFilesystemInstall, destination, err)
	}

	// 1. Resolve the artifact.
	artifact, err := s.artifacts.ArtifactFromRelease(ctx, rel)
	if err != nil {
		return nil, wrapResolution(rel.String(), err)
	}

	// 2. Check compatibility when the phar declares requirements.
	if artifact.HasManifest() {
		env, err := s.env.Environment(ctx)
		if err != nil {
			return nil, fmt.Errorf("detect environment: %w", err)
		}
		if result := compat.Check(artifact.Manifest, env); !result.IsCompatible() {
			return nil, &EnvironmentIncompatibleError{
				Name:    artifact.Name,
				Version: artifact.Version.String(),
				Result:  result,
			}
		}
	} else {
		s.logger.Debug("phar has no manifest, skipping compatibility check", "phar", artifact.Name)
	}

	j := newJournal(s.journalDir, s.clock, s.logger, transaction.OperationInstall, artifact.Name, dest,
		transaction.StepInstall, transaction.StepRegister, transaction.StepConfigure)
	j.txn.PharVersion = artifact.Version.String()
	if err := j.begin(); err != nil {
		return nil, fmt.Errorf("save journal: %w", err)
	}

	// 3. Install to the filesystem.
	if err := s.installer.Install(artifact.File, dest, makeCopy); err != nil {
		j.discard()
		return nil, fmt.Errorf("%w: %w", ErrFilesystemInstall, err)
	}
	j.complete(transaction.StepInstall)
	s.logger.Info("phar installed", "phar", artifact.Name, "version", artifact.Version.String(), "destination", dest, "copy", makeCopy)

	// 4. Record the usage.
	s.registry.AddUsage(artifact, dest, makeCopy)
	if err := s.registry.Save(); err != nil {
		j.fail(transaction.StepRegister, err)
		return nil, fmt.Errorf("%w: %w", ErrRegistryWrite, err)
	}
	j.complete(transaction.StepRegister)

	result := &InstallResult{Artifact: artifact, Destination: dest}

	// 5. Leave the config alone when the same request is already declared.
	if existing, ok := s.config.GetConfiguredPhar(artifact.Name, artifact.Version); ok &&
		existing.Constraint.String() == requested.String() {
		result.Constraint = existing.Constraint
		j.complete(transaction.StepConfigure)
		j.discard()
		return result, nil
	}

	// 6. Persist the constraint, pinning "any" to the installed major.
	persisted := requested
	if requested.IsAny() {
		persisted = version.Caret(artifact.Version)
	}
	s.config.AddPhar(config.InstalledPhar{
		Name:       artifact.Name,
		Version:    artifact.Version,
		Constraint: persisted,
		Location:   s.location(dest),
		Copy:       makeCopy,
	})
	if err := s.config.Save(); err != nil {
		j.fail(transaction.StepConfigure, err)
		return nil, fmt.Errorf("%w: %w", ErrConfigWrite, err)
	}
	j.complete(transaction.StepConfigure)
	j.discard()

	result.Constraint = persisted
	result.ConfigSaved = true
	return result, nil
}

// location renders dest the way it is declared in pharm.lua.
func (s *InstallService) location(dest string) string {
	if s.projectDir == "" {
		return dest
	}
	base, err := filepath.Abs(s.projectDir)
	if err != nil {
		return dest
	}
	rel, err := filepath.Rel(base, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return dest
	}
	return "." + string(filepath.Separator) + rel
}
