package trust

import (
	"errors"
	"fmt"
	"os"

	"github.com/sigstore/sigstore-go/pkg/bundle"
	"github.com/sigstore/sigstore-go/pkg/root"
	"github.com/sigstore/sigstore-go/pkg/verify"
)

// DefaultSigstoreIssuer is the OIDC issuer of GitHub Actions workflow
// identities.
const DefaultSigstoreIssuer = "https://token.actions.githubusercontent.com"

// SigstoreVerifier checks a Sigstore bundle (.sigstore.json) against a
// trusted root and an expected signing identity.
type SigstoreVerifier struct {
	trustedRootPath string
	issuer          string
	identityRegex   string
}

// NewSigstoreVerifier creates a verifier. identityRegex matches the SAN of
// the signing certificate, e.g. "^https://github.com/owner/repo/".
func NewSigstoreVerifier(trustedRootPath, issuer, identityRegex string) *SigstoreVerifier {
	if issuer == "" {
		issuer = DefaultSigstoreIssuer
	}
	return &SigstoreVerifier{
		trustedRootPath: trustedRootPath,
		issuer:          issuer,
		identityRegex:   identityRegex,
	}
}

// Verify checks artifactPath against the bundle at bundlePath.
func (v *SigstoreVerifier) Verify(artifactPath, bundlePath string) error {
	if v.trustedRootPath == "" {
		return &VerificationFailedError{Reason: "sigstore", Err: errors.New("no trusted root configured")}
	}
	if v.identityRegex == "" {
		return &VerificationFailedError{Reason: "sigstore", Err: errors.New("no signing identity configured")}
	}

	b, err := bundle.LoadJSONFromPath(bundlePath)
	if err != nil {
		return &VerificationFailedError{Reason: "load sigstore bundle", Err: err}
	}

	trustedRoot, err := root.NewTrustedRootFromPath(v.trustedRootPath)
	if err != nil {
		return &VerificationFailedError{Reason: "load trusted root", Err: err}
	}

	verifier, err := verify.NewVerifier(trustedRoot,
		verify.WithSignedCertificateTimestamps(1),
		verify.WithTransparencyLog(1),
		verify.WithObserverTimestamps(1),
	)
	if err != nil {
		return &VerificationFailedError{Reason: "create sigstore verifier", Err: err}
	}

	identity, err := verify.NewShortCertificateIdentity(v.issuer, "", "", v.identityRegex)
	if err != nil {
		return &VerificationFailedError{Reason: "certificate identity", Err: err}
	}

	artifact, err := os.Open(artifactPath)
	if err != nil {
		return &VerificationFailedError{Reason: "open artifact", Err: err}
	}
	defer artifact.Close()

	policy := verify.NewPolicy(verify.WithArtifact(artifact), verify.WithCertificateIdentity(identity))
	if _, err := verifier.Verify(b, policy); err != nil {
		return &VerificationFailedError{Reason: "sigstore bundle", Err: fmt.Errorf("%s: %w", bundlePath, err)}
	}

	return nil
}
