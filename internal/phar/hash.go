package phar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Hash is the lower-case hex SHA-256 digest of a phar.
type Hash string

// HashContent hashes content.
func HashContent(content []byte) Hash {
	sum := sha256.Sum256(content)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashFile hashes the file at path.
func HashFile(path string) (Hash, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return Hash(hex.EncodeToString(h.Sum(nil))), nil
}

// Equal compares hashes case-insensitively. An empty hash equals nothing.
func (h Hash) Equal(other Hash) bool {
	return h != "" && strings.EqualFold(string(h), string(other))
}

func (h Hash) String() string { return string(h) }
