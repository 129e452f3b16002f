package snapshot

import (
	"errors"
	"fmt"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
	"io"
	"os"
)

// Digest is the blake3 sum of a serialized snapshot stream (before compression)
type Digest [32]byte

// ComputeDigest serializes m into a blake3 hasher and returns the sum
func ComputeDigest(m map[string][]byte) (Digest, error) {
	var d Digest
	h := blake3.New()
	if err := Serialize(h, m); err != nil {
		return d, err
	}
	copy(d[:], h.Sum(nil))
	return d, nil
}

// --------------------------------------------------------------------------
// File Operations
// --------------------------------------------------------------------------

// countingWriter counts the bytes written to the file
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteFile writes m to path, optionally zstd compressed.
// The data goes to path + ".tmp" first, is synced and then renamed over path,
// so a crash never leaves a half written snapshot behind.
// Returns the number of bytes written to disk.
func WriteFile(path string, m map[string][]byte, compress bool) (int64, error) {
	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("snapshot: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	cw := &countingWriter{w: file}

	if compress {
		enc, err := zstd.NewWriter(cw)
		if err != nil {
			file.Close()
			return 0, fmt.Errorf("snapshot: create zstd writer: %w", err)
		}
		if err := Serialize(enc, m); err != nil {
			enc.Close()
			file.Close()
			return 0, err
		}
		if err := enc.Close(); err != nil {
			file.Close()
			return 0, fmt.Errorf("snapshot: close zstd writer: %w", err)
		}
	} else if err := Serialize(cw, m); err != nil {
		file.Close()
		return 0, err
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return 0, fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return 0, fmt.Errorf("snapshot: close: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return 0, fmt.Errorf("snapshot: rename: %w", err)
	}
	return cw.n, nil
}

// ReadFile reads a snapshot written by WriteFile. compressed must match the value used for writing.
func ReadFile(path string, compressed bool) (map[string][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if !compressed {
		return Deserialize(file)
	}

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("snapshot: create zstd reader: %w", err)
	}
	defer dec.Close()
	return Deserialize(dec)
}

// Restore reads the snapshot at path if it exists.
// A missing file is not an error, it returns an empty map and false.
func Restore(path string, compressed bool) (map[string][]byte, bool, error) {
	m, err := ReadFile(path, compressed)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]byte), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}
