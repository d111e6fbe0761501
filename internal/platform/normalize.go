package platform

import (
	"strings"
)

var distroFamilyMap = map[string]string{
	"debian":   DistroFamilyDebian,
	"ubuntu":   DistroFamilyDebian,
	"rhel":     DistroFamilyRHEL,
	"centos":   DistroFamilyRHEL,
	"rocky":    DistroFamilyRHEL,
	"fedora":   DistroFamilyFedora,
	"suse":     DistroFamilySUSE,
	"opensuse": DistroFamilySUSE,
	"arch":     DistroFamilyArch,
	"manjaro":  DistroFamilyArch,
	"alpine":   DistroFamilyAlpine,
}

// osFamily maps GOOS to the PHP_OS_FAMILY naming used by manifests.
func osFamily(goos string) string {
	switch goos {
	case "linux", "android":
		return OSFamilyLinux
	case "darwin", "ios":
		return OSFamilyDarwin
	case "windows":
		return OSFamilyWindows
	case "freebsd", "openbsd", "netbsd", "dragonfly":
		return OSFamilyBSD
	case "solaris", "illumos":
		return OSFamilySolaris
	default:
		return OSFamilyUnknown
	}
}

// normalizeArch folds the common aliases; anything else passes through.
func normalizeArch(arch string) string {
	switch arch {
	case "amd64", "x86_64":
		return "amd64"
	case "arm64", "aarch64":
		return "arm64"
	default:
		return arch
	}
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func mapDistroFamily(family string) string {
	if canonical, ok := distroFamilyMap[normalizeID(family)]; ok {
		return canonical
	}
	return DistroFamilyUnknown
}

// normalizeExtension lower-cases an extension name and strips an "ext-"
// prefix, so "ext-JSON" and "json" compare equal.
func normalizeExtension(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimPrefix(name, "ext-")
}
