package trust

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/pharm/internal/download"
)

func TestKeyserverDownloader_Download(t *testing.T) {
	entity := newTestEntity(t, "alice")
	keyData := armoredPublicKey(t, entity)
	fpr := fingerprintOf(entity)
	keyID := keyIDOf(entity)

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/vks/v1/by-fingerprint/" + fpr, "/vks/v1/by-keyid/" + keyID:
			w.Write(keyData)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	fetcher := download.New(download.WithRetries(0), download.WithBackoff(time.Millisecond))
	d := NewKeyserverDownloader(fetcher, server.URL+"/")

	for _, id := range []string{fpr, keyID, strings.ToLower(keyID)} {
		t.Run(id, func(t *testing.T) {
			key, err := d.Download(context.Background(), id)
			if err != nil {
				t.Fatalf("Download(%s) error: %v", id, err)
			}
			if key.Fingerprint != fpr {
				t.Errorf("Fingerprint = %s, want %s", key.Fingerprint, fpr)
			}
		})
	}

	if paths[0] != "/vks/v1/by-fingerprint/"+fpr {
		t.Errorf("fingerprint lookup hit %s", paths[0])
	}
	if paths[1] != "/vks/v1/by-keyid/"+keyID {
		t.Errorf("key id lookup hit %s", paths[1])
	}
}

func TestKeyserverDownloader_NotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	d := NewKeyserverDownloader(download.New(download.WithRetries(0)), server.URL)
	_, err := d.Download(context.Background(), "0123456789ABCDEF")
	if !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestKeyserverDownloader_RejectsMismatchedKey(t *testing.T) {
	served := armoredPublicKey(t, newTestEntity(t, "mallory"))
	requested := fingerprintOf(newTestEntity(t, "alice"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(served)
	}))
	defer server.Close()

	d := NewKeyserverDownloader(download.New(download.WithRetries(0)), server.URL)
	if _, err := d.Download(context.Background(), requested); err == nil {
		t.Fatal("expected error for mismatched key")
	}
}

func TestKeyserverDownloader_FallsBackToNextServer(t *testing.T) {
	entity := newTestEntity(t, "alice")
	keyData := armoredPublicKey(t, entity)

	empty := httptest.NewServer(http.NotFoundHandler())
	defer empty.Close()
	full := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(keyData)
	}))
	defer full.Close()

	d := NewKeyserverDownloader(download.New(download.WithRetries(0)), empty.URL, full.URL)
	key, err := d.Download(context.Background(), fingerprintOf(entity))
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if key.Fingerprint != fingerprintOf(entity) {
		t.Errorf("Fingerprint = %s", key.Fingerprint)
	}
}
