package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrVerificationFailed is wrapped by every trust failure.
var ErrVerificationFailed = errors.New("verification failed")

// ErrKeyNotFound is returned by key lookups that find nothing.
var ErrKeyNotFound = errors.New("key not found")

// VerificationFailedError explains why an artifact or key was rejected.
type VerificationFailedError struct {
	KeyID  string
	Reason string
	Err    error
}

func (e *VerificationFailedError) Error() string {
	msg := "verification failed"
	if e.KeyID != "" {
		msg += " for key " + e.KeyID
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrVerificationFailed) hold.
func (e *VerificationFailedError) Is(target error) bool {
	return target == ErrVerificationFailed
}

// Unwrap returns the underlying cause, if any.
func (e *VerificationFailedError) Unwrap() error { return e.Err }

// PublicKey is an OpenPGP public key, content-addressed by fingerprint.
type PublicKey struct {
	ID          string // key ID the key was requested by
	Fingerprint string // upper-case hex fingerprint of the primary key
	Info        string // human-readable summary shown before import
	KeyData     []byte // armored key material
}

// ImportResult describes a key present in the keyring after ImportKey.
type ImportResult struct {
	Fingerprint string
	KeyData     []byte
	Imported    bool // false when the key was already trusted
}

// KeyDownloader fetches a candidate key by ID or fingerprint.
type KeyDownloader interface {
	Download(ctx context.Context, keyID string) (*PublicKey, error)
}

// KeyImporter persists key material.
type KeyImporter interface {
	ImportKey(keyData []byte) (ImportResult, error)
}

// KeyStore looks up keys that were imported before.
type KeyStore interface {
	Get(keyID string) (*PublicKey, error)
}

// Input asks the user a yes/no question.
type Input interface {
	Confirm(prompt string) (bool, error)
}

// Output receives warnings. Delivery is fire-and-forget.
type Output interface {
	WriteWarning(message string)
}

// NormalizeKeyID upper-cases a key ID or fingerprint and strips spaces and a
// leading "0x".
func NormalizeKeyID(id string) string {
	id = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(id), " ", ""))
	return strings.TrimPrefix(id, "0X")
}

// matchesKeyID reports whether id (key ID or fingerprint) refers to fpr.
// 16-hex key IDs are the low 64 bits of a v4 fingerprint.
func matchesKeyID(fpr, id string) bool {
	fpr, id = NormalizeKeyID(fpr), NormalizeKeyID(id)
	if fpr == "" || id == "" {
		return false
	}
	return fpr == id || strings.HasSuffix(fpr, id)
}

func containsFingerprint(list []string, fpr string) bool {
	for _, known := range list {
		if NormalizeKeyID(known) == NormalizeKeyID(fpr) {
			return true
		}
	}
	return false
}

func describeKey(key *PublicKey) string {
	return fmt.Sprintf("%s\n\nFingerprint: %s", key.Info, key.Fingerprint)
}
