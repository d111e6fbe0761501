package phar

import (
	"bytes"
	"compress/bzip2"
	"compress/flate"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const (
	haltCompiler = "__HALT_COMPILER();"

	manifestFile = "manifest.xml"

	entryCompressedGzip  = 0x00001000
	entryCompressedBzip2 = 0x00002000

	// maxEntryBytes bounds the size of a single decompressed entry.
	maxEntryBytes = 64 << 20
)

// ErrNotPhar is returned for files that are not in the phar archive format.
var ErrNotPhar = errors.New("not a phar archive")

// archiveEntry is one file in the phar manifest table.
type archiveEntry struct {
	Name           string
	Size           uint32
	CompressedSize uint32
	CRC            uint32
	Flags          uint32
	offset         int
}

// ReadManifest extracts and parses manifest.xml from the phar at path.
// It returns ErrNoManifest when the archive has none.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phar: %w", err)
	}

	raw, err := readEntry(data, manifestFile)
	if err != nil {
		return nil, err
	}
	return ParseManifest(raw)
}

// readEntry returns the uncompressed content of the named archive entry.
func readEntry(data []byte, name string) ([]byte, error) {
	entries, err := readEntries(data)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.Name != name {
			continue
		}
		content, err := e.content(data)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, ErrNoManifest
}

// readEntries parses the manifest table that follows the stub.
func readEntries(data []byte) ([]archiveEntry, error) {
	start, err := manifestOffset(data)
	if err != nil {
		return nil, err
	}

	r := &reader{buf: data, pos: start}
	manifestLen := r.uint32()
	fileCount := r.uint32()
	r.skip(2)               // API version
	r.skip(4)               // global flags
	r.skip(int(r.uint32())) // alias
	r.skip(int(r.uint32())) // metadata
	if r.err != nil {
		return nil, fmt.Errorf("%w: truncated manifest", ErrNotPhar)
	}

	dataStart := start + 4 + int(manifestLen)
	if int(manifestLen) > len(data) || dataStart > len(data) {
		return nil, fmt.Errorf("%w: manifest length out of range", ErrNotPhar)
	}
	if int(fileCount) > len(data) {
		return nil, fmt.Errorf("%w: file count out of range", ErrNotPhar)
	}

	entries := make([]archiveEntry, 0, fileCount)
	offset := dataStart
	for i := uint32(0); i < fileCount; i++ {
		e := archiveEntry{Name: string(r.bytes(int(r.uint32())))}
		e.Size = r.uint32()
		r.skip(4) // timestamp
		e.CompressedSize = r.uint32()
		e.CRC = r.uint32()
		e.Flags = r.uint32()
		r.skip(int(r.uint32())) // per-file metadata
		if r.err != nil {
			return nil, fmt.Errorf("%w: truncated entry %d", ErrNotPhar, i)
		}

		e.offset = offset
		offset += int(e.CompressedSize)
		if offset > len(data) {
			return nil, fmt.Errorf("%w: entry %q exceeds file", ErrNotPhar, e.Name)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (e archiveEntry) content(data []byte) ([]byte, error) {
	raw := data[e.offset : e.offset+int(e.CompressedSize)]

	var content []byte
	switch {
	case e.Flags&entryCompressedGzip != 0:
		out, err := io.ReadAll(io.LimitReader(flate.NewReader(bytes.NewReader(raw)), maxEntryBytes))
		if err != nil {
			return nil, fmt.Errorf("inflate: %w", err)
		}
		content = out
	case e.Flags&entryCompressedBzip2 != 0:
		out, err := io.ReadAll(io.LimitReader(bzip2.NewReader(bytes.NewReader(raw)), maxEntryBytes))
		if err != nil {
			return nil, fmt.Errorf("bunzip2: %w", err)
		}
		content = out
	default:
		content = raw
	}

	if uint32(len(content)) != e.Size {
		return nil, fmt.Errorf("size mismatch: got %d, want %d", len(content), e.Size)
	}
	if crc32.ChecksumIEEE(content) != e.CRC {
		return nil, errors.New("crc mismatch")
	}
	return content, nil
}

// manifestOffset finds the first byte after the stub.
func manifestOffset(data []byte) (int, error) {
	idx := bytes.Index(data, []byte(haltCompiler))
	if idx < 0 {
		return 0, ErrNotPhar
	}
	pos := idx + len(haltCompiler)
	rest := data[pos:]

	switch {
	case bytes.HasPrefix(rest, []byte(" ?>")):
		pos += 3
	case bytes.HasPrefix(rest, []byte("?>")):
		pos += 2
	}
	rest = data[pos:]

	switch {
	case bytes.HasPrefix(rest, []byte("\r\n")):
		pos += 2
	case bytes.HasPrefix(rest, []byte("\n")):
		pos++
	}
	return pos, nil
}

// reader is a little-endian cursor that records the first overrun.
type reader struct {
	buf []byte
	pos int
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) skip(n int) {
	r.bytes(n)
}
