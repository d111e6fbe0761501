package phar

import "github.com/ZebulonRouseFrantzich/pharm/internal/version"

// Artifact is a downloaded, verified phar in the local store.
type Artifact struct {
	Name     string
	Version  version.Version
	File     string // absolute path in the phar store
	Hash     Hash
	Signer   string // fingerprint of the signing key
	Manifest *Manifest
}

// HasManifest reports whether the phar embeds a phar.io manifest.
func (a *Artifact) HasManifest() bool {
	return a != nil && a.Manifest != nil
}
