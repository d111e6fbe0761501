package trust

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"        //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor"  //nolint:staticcheck
	"github.com/ProtonMail/go-crypto/openpgp/packet" //nolint:staticcheck
)

// KeyTrust is the part of KeyService the verifier needs.
type KeyTrust interface {
	ImportKey(ctx context.Context, keyID string, knownFingerprints []string) (ImportResult, error)
}

// SignatureVerifier checks detached OpenPGP signatures against the keyring,
// asking KeyTrust to establish trust in the issuer first.
type SignatureVerifier struct {
	keyring *Keyring
	keys    KeyTrust
}

// NewSignatureVerifier creates a verifier.
func NewSignatureVerifier(keyring *Keyring, keys KeyTrust) *SignatureVerifier {
	return &SignatureVerifier{keyring: keyring, keys: keys}
}

// Verify checks signaturePath against artifactPath and returns the
// fingerprint of the signing key.
func (v *SignatureVerifier) Verify(ctx context.Context, artifactPath, signaturePath string, knownFingerprints []string) (string, error) {
	sig, err := os.ReadFile(signaturePath)
	if err != nil {
		return "", &VerificationFailedError{Reason: "read signature", Err: err}
	}

	issuer, err := signatureIssuer(sig)
	if err != nil {
		return "", &VerificationFailedError{Reason: "parse signature", Err: err}
	}

	if _, err := v.keys.ImportKey(ctx, issuer, knownFingerprints); err != nil {
		var vfe *VerificationFailedError
		if errors.As(err, &vfe) {
			return "", err
		}
		return "", &VerificationFailedError{KeyID: issuer, Reason: "establish trust", Err: err}
	}

	keyring, err := v.keyring.Entities()
	if err != nil {
		return "", &VerificationFailedError{KeyID: issuer, Reason: "load keyring", Err: err}
	}

	signer, err := checkDetached(keyring, artifactPath, sig)
	if err != nil {
		return "", &VerificationFailedError{KeyID: issuer, Reason: "bad signature", Err: err}
	}

	return fingerprintOf(signer), nil
}

func checkDetached(keyring openpgp.EntityList, artifactPath string, sig []byte) (*openpgp.Entity, error) {
	artifact, err := os.Open(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer artifact.Close()

	// Try armored first
	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, artifact, bytes.NewReader(sig), nil)
	if err != nil {
		if _, serr := artifact.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		signer, err = openpgp.CheckDetachedSignature(keyring, artifact, bytes.NewReader(sig), nil)
	}
	if err != nil {
		return nil, err
	}
	return signer, nil
}

// signatureIssuer returns the issuer fingerprint, or the long key ID when
// the signature carries no fingerprint subpacket.
func signatureIssuer(sig []byte) (string, error) {
	var r io.Reader = bytes.NewReader(sig)
	if block, err := armor.Decode(bytes.NewReader(sig)); err == nil {
		r = block.Body
	}

	p, err := packet.Read(r)
	if err != nil {
		return "", fmt.Errorf("read signature packet: %w", err)
	}
	s, ok := p.(*packet.Signature)
	if !ok {
		return "", fmt.Errorf("not a signature packet: %T", p)
	}

	switch {
	case len(s.IssuerFingerprint) > 0:
		return strings.ToUpper(hex.EncodeToString(s.IssuerFingerprint)), nil
	case s.IssuerKeyId != nil:
		return fmt.Sprintf("%016X", *s.IssuerKeyId), nil
	default:
		return "", errors.New("signature has no issuer")
	}
}
