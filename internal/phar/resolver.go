package phar

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/download"
	"github.com/ZebulonRouseFrantzich/pharm/internal/release"
	"github.com/ZebulonRouseFrantzich/pharm/internal/trust"
)

// Fetcher downloads a URL to a local file. *download.Downloader implements it.
type Fetcher interface {
	ToFile(ctx context.Context, url, destPath string) error
}

// SignatureVerifier checks a detached signature and returns the signer's
// fingerprint. *trust.SignatureVerifier implements it.
type SignatureVerifier interface {
	Verify(ctx context.Context, artifactPath, signaturePath string, knownFingerprints []string) (string, error)
}

// BundleVerifier checks a Sigstore bundle. *trust.SigstoreVerifier
// implements it.
type BundleVerifier interface {
	Verify(artifactPath, bundlePath string) error
}

// SignerHistory returns the fingerprints that signed earlier installs of a
// phar.
type SignerHistory interface {
	KnownSigners(name string) []string
}

// ArtifactResolver turns a release into a verified artifact in the local
// phar store.
type ArtifactResolver struct {
	storeDir   string
	fetcher    Fetcher
	signatures SignatureVerifier
	bundles    BundleVerifier
	history    SignerHistory
}

// ResolverOption configures an ArtifactResolver.
type ResolverOption func(*ArtifactResolver)

// WithBundleVerifier enables Sigstore checks for releases that publish a
// bundle.
func WithBundleVerifier(b BundleVerifier) ResolverOption {
	return func(r *ArtifactResolver) {
		r.bundles = b
	}
}

// WithSignerHistory supplies the signers of earlier installs so key changes
// are detected.
func WithSignerHistory(h SignerHistory) ResolverOption {
	return func(r *ArtifactResolver) {
		r.history = h
	}
}

// NewArtifactResolver creates a resolver storing phars in storeDir.
func NewArtifactResolver(storeDir string, fetcher Fetcher, signatures SignatureVerifier, opts ...ResolverOption) *ArtifactResolver {
	r := &ArtifactResolver{
		storeDir:   storeDir,
		fetcher:    fetcher,
		signatures: signatures,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StorePath returns where the phar of rel is kept.
func (r *ArtifactResolver) StorePath(rel release.Release) string {
	name := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(rel.Name)
	return filepath.Join(r.storeDir, fmt.Sprintf("%s-%s.phar", name, rel.Version))
}

// ArtifactFromRelease downloads (unless cached), verifies and inspects the
// phar of rel. A phar that fails verification never reaches the store.
func (r *ArtifactResolver) ArtifactFromRelease(ctx context.Context, rel release.Release) (*Artifact, error) {
	if rel.URL == "" {
		return nil, fmt.Errorf("release %s has no download url", rel)
	}
	if rel.SignatureURL == "" {
		return nil, &trust.VerificationFailedError{Reason: fmt.Sprintf("release %s is not signed", rel)}
	}

	path := r.StorePath(rel)
	sigPath := path + ".asc"

	cached := download.FileExists(path)
	candidate := path
	if !cached {
		candidate = path + ".download"
		if err := r.fetcher.ToFile(ctx, rel.URL, candidate); err != nil {
			return nil, fmt.Errorf("download %s: %w", rel, err)
		}
	}
	if !download.FileExists(sigPath) || !cached {
		if err := r.fetcher.ToFile(ctx, rel.SignatureURL, sigPath); err != nil {
			r.discard(candidate, cached)
			return nil, fmt.Errorf("download signature of %s: %w", rel, err)
		}
	}

	artifact, err := r.verify(ctx, rel, candidate, sigPath)
	if err != nil {
		r.discard(candidate, cached)
		if !cached {
			os.Remove(sigPath)
		}
		return nil, err
	}

	if !cached {
		if err := os.Rename(candidate, path); err != nil {
			os.Remove(candidate)
			return nil, fmt.Errorf("store %s: %w", rel, err)
		}
	}
	artifact.File = path

	return artifact, nil
}

func (r *ArtifactResolver) verify(ctx context.Context, rel release.Release, path, sigPath string) (*Artifact, error) {
	hash, err := HashFile(path)
	if err != nil {
		return nil, err
	}
	if rel.Hash != "" && !hash.Equal(Hash(rel.Hash)) {
		return nil, &trust.VerificationFailedError{
			Reason: fmt.Sprintf("hash mismatch for %s: got %s, want %s", rel, hash, rel.Hash),
		}
	}

	var known []string
	if r.history != nil {
		known = r.history.KnownSigners(rel.Name)
	}
	signer, err := r.signatures.Verify(ctx, path, sigPath, known)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", rel, err)
	}

	if rel.BundleURL != "" && r.bundles != nil {
		bundlePath := strings.TrimSuffix(path, ".download") + ".sigstore.json"
		if err := r.fetcher.ToFile(ctx, rel.BundleURL, bundlePath); err != nil {
			return nil, fmt.Errorf("download sigstore bundle of %s: %w", rel, err)
		}
		if err := r.bundles.Verify(path, bundlePath); err != nil {
			return nil, fmt.Errorf("verify %s: %w", rel, err)
		}
	}

	manifest, err := ReadManifest(path)
	if err != nil {
		if !errors.Is(err, ErrNoManifest) && !errors.Is(err, ErrNotPhar) {
			return nil, fmt.Errorf("read manifest of %s: %w", rel, err)
		}
		manifest = nil
	}

	return &Artifact{
		Name:     rel.Name,
		Version:  rel.Version,
		Hash:     hash,
		Signer:   signer,
		Manifest: manifest,
	}, nil
}

func (r *ArtifactResolver) discard(candidate string, cached bool) {
	if !cached {
		os.Remove(candidate)
	}
}
