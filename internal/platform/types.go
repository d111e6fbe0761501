// Package platform detects the environment phars run in: the host operating
// system and distribution (via gopsutil) and the PHP runtime together with its
// loaded extensions.
//
// The resulting Environment is a plain snapshot. It is consumed by the
// compatibility checker and injected read-only into Lua configurations.
package platform

import (
	"context"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/version"
)

// OS family names as reported by PHP_OS_FAMILY. Manifests use the same values.
const (
	OSFamilyLinux   = "Linux"
	OSFamilyDarwin  = "Darwin"
	OSFamilyWindows = "Windows"
	OSFamilyBSD     = "BSD"
	OSFamilySolaris = "Solaris"
	OSFamilyUnknown = "Unknown"
)

// Linux distribution family constants.
const (
	DistroFamilyDebian  = "debian"
	DistroFamilyRHEL    = "rhel"
	DistroFamilyFedora  = "fedora"
	DistroFamilySUSE    = "suse"
	DistroFamilyArch    = "arch"
	DistroFamilyAlpine  = "alpine"
	DistroFamilyUnknown = "unknown"
)

// Info describes the host.
type Info struct {
	OS            string // GOOS, e.g. "linux"
	OSFamily      string // PHP_OS_FAMILY style, e.g. "Linux"
	Arch          string // normalized GOARCH
	Distro        string // distro ID (Linux only)
	DistroFamily  string // canonical distro family (Linux only)
	DistroVersion string // distro version (Linux only)
}

// Runtime describes the PHP interpreter phars will execute on.
type Runtime struct {
	Binary     string
	Version    version.Version
	Extensions []string // lower-cased extension names
}

// HasExtension reports whether the runtime has the named extension loaded.
func (r *Runtime) HasExtension(name string) bool {
	if r == nil {
		return false
	}
	want := normalizeExtension(name)
	for _, ext := range r.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Environment is a snapshot of host and runtime. Runtime is nil when no PHP
// interpreter could be found.
type Environment struct {
	Info    Info
	Runtime *Runtime
}

// HasRuntime reports whether a PHP runtime was detected.
func (e Environment) HasRuntime() bool {
	return e.Runtime != nil
}

// IsOSFamily reports whether the host belongs to the given OS family.
// Comparison is case-insensitive.
func (e Environment) IsOSFamily(family string) bool {
	return strings.EqualFold(e.Info.OSFamily, family)
}

// Detector is the interface for host detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// RuntimeProber locates and interrogates the PHP runtime.
type RuntimeProber interface {
	Probe(ctx context.Context) (*Runtime, error)
}
