package trust

import (
	"context"
	"errors"
	"fmt"
)

// KeyState is a stage of a single key verification attempt.
type KeyState string

const (
	KeyStateStart     KeyState = "start"
	KeyStateLookup    KeyState = "lookup"
	KeyStateTrusted   KeyState = "trusted"
	KeyStateUnknown   KeyState = "unknown"
	KeyStateChanged   KeyState = "changed"
	KeyStateConfirmed KeyState = "confirmed"
	KeyStateDeclined  KeyState = "declined"
	KeyStateImported  KeyState = "imported"
	KeyStateRejected  KeyState = "rejected"
)

// ChangedKeyWarning is written when a phar is signed by a key it was not
// signed with before.
const ChangedKeyWarning = "This is NOT a key that has been used to sign a release of this phar before! " +
	"Make sure you trust the new key before importing it."

// KeyService drives the lookup / confirm / import flow for one key.
type KeyService struct {
	store      KeyStore
	downloader KeyDownloader
	importer   KeyImporter
	output     Output
	input      Input
	logger     Logger
}

// NewKeyService creates a KeyService. store may be nil, in which case every
// key is treated as unknown.
func NewKeyService(store KeyStore, downloader KeyDownloader, importer KeyImporter, output Output, input Input) *KeyService {
	return &KeyService{
		store:      store,
		downloader: downloader,
		importer:   importer,
		output:     output,
		input:      input,
		logger:     defaultLogger(),
	}
}

// SetLogger replaces the default no-op logger.
func (s *KeyService) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// ImportKey makes sure the key identified by keyID is trusted.
//
// knownFingerprints lists the keys that signed earlier releases of the same
// phar. An empty list means "no history". A stored key that is part of the
// history (or any stored key when there is no history) is trusted as-is.
// Otherwise the key is downloaded, a warning is written if it differs from
// what was stored or known before, and the user must confirm the import.
func (s *KeyService) ImportKey(ctx context.Context, keyID string, knownFingerprints []string) (ImportResult, error) {
	keyID = NormalizeKeyID(keyID)
	s.logger.Debug("key lookup", "key", keyID, "known", len(knownFingerprints))

	stored, err := s.lookup(keyID)
	if err != nil {
		return ImportResult{}, err
	}

	if stored != nil && (len(knownFingerprints) == 0 || containsFingerprint(knownFingerprints, stored.Fingerprint)) {
		s.logger.Debug("key trusted", "key", keyID, "fingerprint", stored.Fingerprint)
		return ImportResult{Fingerprint: stored.Fingerprint, KeyData: stored.KeyData}, nil
	}

	candidate, err := s.downloader.Download(ctx, keyID)
	if err != nil {
		return ImportResult{}, fmt.Errorf("download key %s: %w", keyID, err)
	}

	state := KeyStateUnknown
	if stored != nil && !containsFingerprint([]string{stored.Fingerprint}, candidate.Fingerprint) {
		state = KeyStateChanged
	}
	if len(knownFingerprints) > 0 && !containsFingerprint(knownFingerprints, candidate.Fingerprint) {
		state = KeyStateChanged
	}
	s.logger.Debug("key candidate", "key", keyID, "state", state, "fingerprint", candidate.Fingerprint)

	if state == KeyStateChanged {
		s.output.WriteWarning(ChangedKeyWarning)
	}

	confirmed, err := s.input.Confirm(fmt.Sprintf("%s\n\nImport this key?", describeKey(candidate)))
	if err != nil {
		return ImportResult{}, &VerificationFailedError{KeyID: keyID, Reason: "confirmation failed", Err: err}
	}
	if !confirmed {
		s.logger.Info("key import declined", "key", keyID)
		return ImportResult{}, &VerificationFailedError{KeyID: keyID, Reason: "user declined key import"}
	}

	result, err := s.importer.ImportKey(candidate.KeyData)
	if err != nil {
		return ImportResult{}, err
	}
	result.Imported = true
	s.logger.Info("key imported", "key", keyID, "fingerprint", result.Fingerprint)

	return result, nil
}

func (s *KeyService) lookup(keyID string) (*PublicKey, error) {
	if s.store == nil {
		return nil, nil
	}
	key, err := s.store.Get(keyID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("look up key %s: %w", keyID, err)
	}
	return key, nil
}
