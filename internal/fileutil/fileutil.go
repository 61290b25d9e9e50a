package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
)

// BlockSize is the block length Dropbox uses when computing content hashes.
const BlockSize = 4 * 1024 * 1024

// ContentHasher computes the Dropbox content_hash of a byte stream: the
// SHA-256 of the concatenated SHA-256 digests of each 4 MiB block.
type ContentHasher struct {
	digests []byte
	block   hash.Hash
	filled  int
}

// NewContentHasher returns an empty hasher.
func NewContentHasher() *ContentHasher {
	return &ContentHasher{block: sha256.New()}
}

func (h *ContentHasher) Write(p []byte) (int, error) {
	written := len(p)
	for len(p) > 0 {
		chunk := p
		if room := BlockSize - h.filled; len(chunk) > room {
			chunk = chunk[:room]
		}
		h.block.Write(chunk)
		h.filled += len(chunk)
		p = p[len(chunk):]
		if h.filled == BlockSize {
			h.digests = h.block.Sum(h.digests)
			h.block.Reset()
			h.filled = 0
		}
	}
	return written, nil
}

// Sum returns the hex digest of everything written so far.
func (h *ContentHasher) Sum() string {
	digests := h.digests
	if h.filled > 0 {
		digests = h.block.Sum(append([]byte(nil), digests...))
	}
	sum := sha256.Sum256(digests)
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the Dropbox content hash of the file at path.
func ContentHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := NewContentHasher()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return h.Sum(), nil
}

// WriteOptions controls WriteFileVerified.
type WriteOptions struct {
	Mode os.FileMode
	// Size, when non-negative, is the byte count the fill must produce.
	Size int64
	// ContentHash, when set, is the Dropbox content hash the data must match.
	ContentHash string
}

// WriteFileVerified streams fill into a temporary file beside dst, verifies
// size and content hash, then renames it into place. dst is never left
// partially written; the temporary file is removed on any failure.
func WriteFileVerified(dst string, opts WriteOptions, fill func(io.Writer) error) (int64, error) {
	mode := opts.Mode
	if mode == 0 {
		mode = 0o644
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".part-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := NewContentHasher()
	counter := &countingWriter{w: io.MultiWriter(tmp, hasher)}
	if err := fill(counter); err != nil {
		return counter.n, err
	}
	if opts.Size >= 0 && counter.n != opts.Size {
		return counter.n, fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", opts.Size, counter.n)
	}
	if opts.ContentHash != "" {
		if got := hasher.Sum(); got != opts.ContentHash {
			return counter.n, fmt.Errorf("content hash mismatch: expected %s, got %s", opts.ContentHash, got)
		}
	}
	if err := tmp.Sync(); err != nil {
		return counter.n, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return counter.n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return counter.n, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return counter.n, fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return counter.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
