package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/pharm/internal/download"
)

// DefaultKeyserver is the verifying keyserver used when none is configured.
const DefaultKeyserver = "https://keys.openpgp.org"

// Fetcher retrieves a remote document. *download.Downloader implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// KeyserverDownloader looks keys up through the VKS interface of a
// keyserver.
type KeyserverDownloader struct {
	keyservers []string
	fetcher    Fetcher
}

// NewKeyserverDownloader queries keyservers in order until one has the key.
func NewKeyserverDownloader(fetcher Fetcher, keyservers ...string) *KeyserverDownloader {
	if len(keyservers) == 0 {
		keyservers = []string{DefaultKeyserver}
	}
	return &KeyserverDownloader{keyservers: keyservers, fetcher: fetcher}
}

// Download fetches and parses the key. A key whose fingerprint does not
// match the requested ID is rejected.
func (d *KeyserverDownloader) Download(ctx context.Context, keyID string) (*PublicKey, error) {
	id := NormalizeKeyID(keyID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty key id", ErrKeyNotFound)
	}

	var errs []error
	for _, server := range d.keyservers {
		url := lookupURL(server, id)
		data, err := d.fetcher.Fetch(ctx, url)
		if err != nil {
			if errors.Is(err, download.ErrNotFound) {
				errs = append(errs, fmt.Errorf("%s: %w", server, ErrKeyNotFound))
				continue
			}
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			continue
		}

		key, err := ParsePublicKey(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			continue
		}
		entities, _ := readEntities(data)
		if !entityMatches(entities[0], id) {
			errs = append(errs, fmt.Errorf("%s: returned key %s does not match %s", server, key.Fingerprint, id))
			continue
		}

		key.ID = id
		return key, nil
	}

	return nil, fmt.Errorf("download key %s: %w", id, errors.Join(errs...))
}

func lookupURL(server, id string) string {
	server = strings.TrimRight(server, "/")
	if len(id) >= 40 {
		return server + "/vks/v1/by-fingerprint/" + id
	}
	return server + "/vks/v1/by-keyid/" + id
}
