package trust

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestKeyring_ImportAndGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys")
	keyring := NewKeyring(dir)
	entity := newTestEntity(t, "alice")
	want := testPublicKey(t, entity)

	result, err := keyring.ImportKey(armoredPublicKey(t, entity))
	if err != nil {
		t.Fatalf("ImportKey() error: %v", err)
	}
	if result.Fingerprint != want.Fingerprint {
		t.Errorf("Fingerprint = %s, want %s", result.Fingerprint, want.Fingerprint)
	}
	if !result.Imported {
		t.Error("Imported = false, want true")
	}

	if _, err := os.Stat(filepath.Join(dir, want.Fingerprint+".asc")); err != nil {
		t.Errorf("key file not written: %v", err)
	}

	lookups := []string{
		want.Fingerprint,
		strings.ToLower(want.Fingerprint),
		want.ID,
		"0x" + want.ID,
	}
	for _, id := range lookups {
		t.Run(id, func(t *testing.T) {
			got, err := keyring.Get(id)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", id, err)
			}
			if got.Fingerprint != want.Fingerprint {
				t.Errorf("Get(%q).Fingerprint = %s, want %s", id, got.Fingerprint, want.Fingerprint)
			}
		})
	}
}

func TestKeyring_GetSubkey(t *testing.T) {
	keyring := NewKeyring(t.TempDir())
	entity := newTestEntity(t, "alice")
	if len(entity.Subkeys) == 0 {
		t.Skip("entity has no subkeys")
	}
	if _, err := keyring.ImportKey(armoredPublicKey(t, entity)); err != nil {
		t.Fatalf("ImportKey() error: %v", err)
	}

	subID := entity.Subkeys[0].PublicKey.KeyIdString()
	got, err := keyring.Get(subID)
	if err != nil {
		t.Fatalf("Get(subkey) error: %v", err)
	}
	if got.Fingerprint != fingerprintOf(entity) {
		t.Errorf("Get(subkey) returned %s, want primary %s", got.Fingerprint, fingerprintOf(entity))
	}
}

func TestKeyring_GetMissing(t *testing.T) {
	keyring := NewKeyring(filepath.Join(t.TempDir(), "missing"))

	for _, id := range []string{"", "0123456789ABCDEF"} {
		if _, err := keyring.Get(id); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("Get(%q) error = %v, want ErrKeyNotFound", id, err)
		}
	}
}

func TestKeyring_List(t *testing.T) {
	keyring := NewKeyring(t.TempDir())
	for _, name := range []string{"alice", "bob"} {
		if _, err := keyring.ImportKey(armoredPublicKey(t, newTestEntity(t, name))); err != nil {
			t.Fatalf("ImportKey(%s) error: %v", name, err)
		}
	}
	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(keyring.Dir(), "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	keys, err := keyring.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List() returned %d keys, want 2", len(keys))
	}
	if keys[0].Fingerprint > keys[1].Fingerprint {
		t.Error("List() not sorted by fingerprint")
	}

	entities, err := keyring.Entities()
	if err != nil {
		t.Fatalf("Entities() error: %v", err)
	}
	if len(entities) != 2 {
		t.Errorf("Entities() returned %d, want 2", len(entities))
	}
}

func TestKeyring_ImportInvalid(t *testing.T) {
	keyring := NewKeyring(t.TempDir())
	if _, err := keyring.ImportKey([]byte("not a key")); err == nil {
		t.Error("ImportKey() expected error for garbage input")
	}
}

func TestParsePublicKey_Info(t *testing.T) {
	key := testPublicKey(t, newTestEntity(t, "alice"))

	for _, want := range []string{"UID: alice (test) <alice@example.com>", "Key ID: " + key.ID, "Created: "} {
		if !strings.Contains(key.Info, want) {
			t.Errorf("Info = %q, missing %q", key.Info, want)
		}
	}
	if len(key.Fingerprint) != 40 {
		t.Errorf("Fingerprint length = %d, want 40", len(key.Fingerprint))
	}
}

func TestNormalizeKeyID(t *testing.T) {
	tests := map[string]string{
		"0xabcdef0123456789":   "ABCDEF0123456789",
		" ABCD EF01 2345 6789": "ABCDEF0123456789",
		"":                     "",
	}
	for in, want := range tests {
		if got := NormalizeKeyID(in); got != want {
			t.Errorf("NormalizeKeyID(%q) = %q, want %q", in, got, want)
		}
	}
}
