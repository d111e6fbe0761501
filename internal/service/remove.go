package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/registry"
	"github.com/ZebulonRouseFrantzich/pharm/internal/transaction"
)

// RemoveService uninstalls declared phars and reclaims unused stored phars.
type RemoveService struct {
	installer  Installer
	registry   Registry
	config     DeclaredConfig
	projectDir string
	journalDir string
	clock      Clock
	logger     Logger
}

// NewRemoveService creates a RemoveService. Declared locations are resolved
// against projectDir.
func NewRemoveService(installer Installer, reg Registry, cfg DeclaredConfig, projectDir string, opts ...Option) *RemoveService {
	o := buildOptions(opts)
	return &RemoveService{
		installer:  installer,
		registry:   reg,
		config:     cfg,
		projectDir: projectDir,
		journalDir: o.journalDir,
		clock:      o.clock,
		logger:     o.logger,
	}
}

// RemoveResult describes a removed phar.
type RemoveResult struct {
	Phar        config.InstalledPhar
	Destination string
	// Unused is set when the stored phar has no usages left and may be purged.
	Unused bool
}

// Remove uninstalls the declared phar called name and drops it from the
// registry and the config.
func (s *RemoveService) Remove(ctx context.Context, name string) (*RemoveResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	declared, ok := s.config.Find(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotConfigured)
	}
	dest := config.ResolveLocation(s.projectDir, declared.Location)
	result := &RemoveResult{Phar: declared, Destination: dest}

	j := newJournal(s.journalDir, s.clock, s.logger, transaction.OperationRemove, name, dest,
		transaction.StepUninstall, transaction.StepUnregister, transaction.StepUnconfigure)
	j.txn.PharVersion = declared.Version.String()
	if err := j.begin(); err != nil {
		return nil, fmt.Errorf("save journal: %w", err)
	}

	entry, _, registered := s.registry.UsageOf(dest)

	if err := s.installer.Uninstall(dest); err != nil {
		j.discard()
		return nil, fmt.Errorf("%w: %w", ErrFilesystemInstall, err)
	}
	j.complete(transaction.StepUninstall)

	if registered {
		artifact, err := entry.Artifact()
		if err != nil {
			j.fail(transaction.StepUnregister, err)
			return nil, fmt.Errorf("%w: %w", ErrRegistryWrite, err)
		}
		s.registry.RemoveUsage(artifact, dest)
		if err := s.registry.Save(); err != nil {
			j.fail(transaction.StepUnregister, err)
			return nil, fmt.Errorf("%w: %w", ErrRegistryWrite, err)
		}
		result.Unused = !s.registry.HasUsages(artifact)
	} else {
		s.logger.Warn("destination was not registered", "phar", name, "destination", dest)
	}
	j.complete(transaction.StepUnregister)

	s.config.RemovePhar(name)
	if err := s.config.Save(); err != nil {
		j.fail(transaction.StepUnconfigure, err)
		return nil, fmt.Errorf("%w: %w", ErrConfigWrite, err)
	}
	j.complete(transaction.StepUnconfigure)
	j.discard()

	s.logger.Info("phar removed", "phar", name, "destination", dest, "unused", result.Unused)
	return result, nil
}

// Purge deletes the stored files of every phar without usages and drops
// them from the registry.
func (s *RemoveService) Purge(ctx context.Context) ([]registry.Entry, error) {
	unused := s.registry.Unused()
	if len(unused) == 0 {
		return nil, nil
	}

	j := newJournal(s.journalDir, s.clock, s.logger, transaction.OperationPurge, "", "",
		transaction.StepDelete, transaction.StepUnregister)
	if err := j.begin(); err != nil {
		return nil, fmt.Errorf("save journal: %w", err)
	}

	var purged []registry.Entry
	for _, e := range unused {
		if err := ctx.Err(); err != nil {
			j.fail(transaction.StepDelete, err)
			return purged, err
		}

		artifact, err := e.Artifact()
		if err != nil {
			s.logger.Warn("skipping unreadable registry entry", "phar", e.Name, "error", err)
			continue
		}
		if err := removeStoredFiles(e.File); err != nil {
			j.fail(transaction.StepDelete, err)
			return purged, fmt.Errorf("%w: %w", ErrFilesystemInstall, err)
		}
		s.registry.RemovePhar(artifact)
		purged = append(purged, e)
		s.logger.Debug("purged phar", "phar", e.Name, "version", e.Version, "file", e.File)
	}
	j.complete(transaction.StepDelete)

	if err := s.registry.Save(); err != nil {
		j.fail(transaction.StepUnregister, err)
		return nil, fmt.Errorf("%w: %w", ErrRegistryWrite, err)
	}
	j.complete(transaction.StepUnregister)
	j.discard()

	return purged, nil
}

// removeStoredFiles deletes a stored phar and the verification material kept
// beside it.
func removeStoredFiles(file string) error {
	for _, p := range []string{file, file + ".asc", file + ".sigstore.json"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
