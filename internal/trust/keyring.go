package trust

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"       //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/ProtonMail/go-crypto/openpgp/armor" //nolint:staticcheck
)

const keyFileExt = ".asc"

// Keyring is a directory of armored public keys, one file per key named
// <FINGERPRINT>.asc.
type Keyring struct {
	dir string
}

// NewKeyring returns a keyring rooted at dir. The directory is created on
// first import.
func NewKeyring(dir string) *Keyring {
	return &Keyring{dir: dir}
}

// Dir returns the keyring directory.
func (k *Keyring) Dir() string { return k.dir }

// Get finds a key by fingerprint, long key ID or subkey ID.
func (k *Keyring) Get(keyID string) (*PublicKey, error) {
	id := NormalizeKeyID(keyID)
	if id == "" {
		return nil, ErrKeyNotFound
	}

	keys, err := k.List()
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		entities, err := readEntities(key.KeyData)
		if err != nil {
			continue
		}
		for _, e := range entities {
			if entityMatches(e, id) {
				key.ID = id
				return key, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, id)
}

// List returns every key in the keyring, sorted by fingerprint.
func (k *Keyring) List() ([]*PublicKey, error) {
	entries, err := os.ReadDir(k.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read keyring dir: %w", err)
	}

	var keys []*PublicKey
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != keyFileExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(k.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read key %s: %w", entry.Name(), err)
		}
		key, err := ParsePublicKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse key %s: %w", entry.Name(), err)
		}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].Fingerprint < keys[j].Fingerprint })
	return keys, nil
}

// Entities loads the whole keyring for signature checks.
func (k *Keyring) Entities() (openpgp.EntityList, error) {
	keys, err := k.List()
	if err != nil {
		return nil, err
	}
	var list openpgp.EntityList
	for _, key := range keys {
		entities, err := readEntities(key.KeyData)
		if err != nil {
			return nil, err
		}
		list = append(list, entities...)
	}
	return list, nil
}

// ImportKey stores the public part of the first key in keyData.
func (k *Keyring) ImportKey(keyData []byte) (ImportResult, error) {
	entities, err := readEntities(keyData)
	if err != nil {
		return ImportResult{}, fmt.Errorf("parse key: %w", err)
	}
	entity := entities[0]

	var buf bytes.Buffer
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("armor key: %w", err)
	}
	if err := entity.Serialize(w); err != nil {
		return ImportResult{}, fmt.Errorf("serialize key: %w", err)
	}
	if err := w.Close(); err != nil {
		return ImportResult{}, fmt.Errorf("armor key: %w", err)
	}

	if err := os.MkdirAll(k.dir, 0700); err != nil {
		return ImportResult{}, fmt.Errorf("create keyring dir: %w", err)
	}

	fpr := fingerprintOf(entity)
	path := filepath.Join(k.dir, fpr+keyFileExt)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return ImportResult{}, fmt.Errorf("write key: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ImportResult{}, fmt.Errorf("write key: %w", err)
	}

	return ImportResult{Fingerprint: fpr, KeyData: buf.Bytes(), Imported: true}, nil
}

// ParsePublicKey reads an armored or binary public key and describes its
// primary key.
func ParsePublicKey(data []byte) (*PublicKey, error) {
	entities, err := readEntities(data)
	if err != nil {
		return nil, err
	}
	e := entities[0]

	return &PublicKey{
		ID:          keyIDOf(e),
		Fingerprint: fingerprintOf(e),
		Info:        entityInfo(e),
		KeyData:     data,
	}, nil
}

func readEntities(data []byte) (openpgp.EntityList, error) {
	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		entities, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("read key: no keys found")
	}
	return entities, nil
}

func fingerprintOf(e *openpgp.Entity) string {
	return strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint))
}

func keyIDOf(e *openpgp.Entity) string {
	return fmt.Sprintf("%016X", e.PrimaryKey.KeyId)
}

func entityMatches(e *openpgp.Entity, id string) bool {
	if matchesKeyID(fingerprintOf(e), id) {
		return true
	}
	for _, sub := range e.Subkeys {
		if sub.PublicKey == nil {
			continue
		}
		subFpr := strings.ToUpper(hex.EncodeToString(sub.PublicKey.Fingerprint))
		if matchesKeyID(subFpr, id) || fmt.Sprintf("%016X", sub.PublicKey.KeyId) == id {
			return true
		}
	}
	return false
}

func entityInfo(e *openpgp.Entity) string {
	names := make([]string, 0, len(e.Identities))
	for name := range e.Identities {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "UID: %s\n", name)
	}
	fmt.Fprintf(&b, "Key ID: %s\n", keyIDOf(e))
	fmt.Fprintf(&b, "Created: %s", e.PrimaryKey.CreationTime.UTC().Format("2006-01-02"))
	return b.String()
}
