package trust

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"        //nolint:staticcheck
	"github.com/ProtonMail/go-crypto/openpgp/armor"  //nolint:staticcheck
	"github.com/ProtonMail/go-crypto/openpgp/packet" //nolint:staticcheck
)

func newTestEntity(t *testing.T, name string) *openpgp.Entity {
	t.Helper()
	e, err := openpgp.NewEntity(name, "test", name+"@example.com", &packet.Config{Algorithm: packet.PubKeyAlgoEdDSA})
	if err != nil {
		t.Fatalf("failed to create entity: %v", err)
	}
	return e
}

func armoredPublicKey(t *testing.T, e *openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor: %v", err)
	}
	if err := e.Serialize(w); err != nil {
		t.Fatalf("serialize: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close armor: %v", err)
	}
	return buf.Bytes()
}

func testPublicKey(t *testing.T, e *openpgp.Entity) *PublicKey {
	t.Helper()
	key, err := ParsePublicKey(armoredPublicKey(t, e))
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	return key
}

// writeSignedFile writes content and a detached signature next to it.
func writeSignedFile(t *testing.T, dir string, signer *openpgp.Entity, content []byte, armored bool) (string, string) {
	t.Helper()
	artifact := filepath.Join(dir, "tool.phar")
	if err := os.WriteFile(artifact, content, 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	var sig bytes.Buffer
	var err error
	if armored {
		err = openpgp.ArmoredDetachSign(&sig, signer, bytes.NewReader(content), nil)
	} else {
		err = openpgp.DetachSign(&sig, signer, bytes.NewReader(content), nil)
	}
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	sigPath := artifact + ".asc"
	if err := os.WriteFile(sigPath, sig.Bytes(), 0644); err != nil {
		t.Fatalf("write signature: %v", err)
	}
	return artifact, sigPath
}

type fakeStore struct {
	keys map[string]*PublicKey
}

func (f *fakeStore) Get(keyID string) (*PublicKey, error) {
	for _, key := range f.keys {
		if matchesKeyID(key.Fingerprint, keyID) {
			return key, nil
		}
	}
	return nil, ErrKeyNotFound
}

type fakeDownloader struct {
	key   *PublicKey
	err   error
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, keyID string) (*PublicKey, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.key, nil
}

type fakeImporter struct {
	imported [][]byte
	err      error
}

func (f *fakeImporter) ImportKey(keyData []byte) (ImportResult, error) {
	if f.err != nil {
		return ImportResult{}, f.err
	}
	f.imported = append(f.imported, keyData)
	key, err := ParsePublicKey(keyData)
	if err != nil {
		return ImportResult{}, err
	}
	return ImportResult{Fingerprint: key.Fingerprint, KeyData: keyData}, nil
}

type fakeInput struct {
	answer  bool
	err     error
	prompts []string
}

func (f *fakeInput) Confirm(prompt string) (bool, error) {
	f.prompts = append(f.prompts, prompt)
	return f.answer, f.err
}

type fakeOutput struct {
	warnings []string
}

func (f *fakeOutput) WriteWarning(msg string) {
	f.warnings = append(f.warnings, msg)
}

var errBoom = errors.New("boom")
