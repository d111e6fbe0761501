// Package service orchestrates pharm's commands: installing a resolved
// release, removing a declared phar, purging unused phars and reporting
// status. Collaborators are injected as interfaces so each step can be
// tested in isolation.
package service

import (
	"context"

	"github.com/ZebulonRouseFrantzich/pharm/internal/config"
	"github.com/ZebulonRouseFrantzich/pharm/internal/phar"
	"github.com/ZebulonRouseFrantzich/pharm/internal/platform"
	"github.com/ZebulonRouseFrantzich/pharm/internal/registry"
	"github.com/ZebulonRouseFrantzich/pharm/internal/release"
	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// ArtifactResolver downloads and verifies the phar of a release.
type ArtifactResolver interface {
	ArtifactFromRelease(ctx context.Context, rel release.Release) (*phar.Artifact, error)
}

// ReleaseResolver selects the release satisfying a constraint.
type ReleaseResolver interface {
	Resolve(ctx context.Context, name string, c version.Constraint) (release.Release, error)
}

// EnvironmentProvider detects the host and PHP runtime.
type EnvironmentProvider interface {
	Environment(ctx context.Context) (platform.Environment, error)
}

// Installer places and removes phars at destinations.
type Installer interface {
	Install(src, dest string, makeCopy bool) error
	Uninstall(dest string) error
}

// Registry records which stored phar is installed where.
type Registry interface {
	AddUsage(a *phar.Artifact, destination string, makeCopy bool)
	RemoveUsage(a *phar.Artifact, destination string)
	HasUsages(a *phar.Artifact) bool
	UsageOf(destination string) (registry.Entry, registry.Usage, bool)
	InstalledAt(destination string) (name, version string, ok bool)
	Unused() []registry.Entry
	RemovePhar(a *phar.Artifact)
	Save() error
}

// DeclaredConfig is the project's pharm.lua.
type DeclaredConfig interface {
	HasConfiguredPhar(name string, v version.Version) bool
	GetConfiguredPhar(name string, v version.Version) (config.InstalledPhar, bool)
	AddPhar(p config.InstalledPhar)
	Find(name string) (config.InstalledPhar, bool)
	RemovePhar(name string) bool
	Phars() []config.InstalledPhar
	Save() error
}
