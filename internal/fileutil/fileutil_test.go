package fileutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func referenceHash(data []byte) string {
	var digests []byte
	for len(data) > 0 {
		n := min(len(data), BlockSize)
		sum := sha256.Sum256(data[:n])
		digests = append(digests, sum[:]...)
		data = data[n:]
	}
	sum := sha256.Sum256(digests)
	return hex.EncodeToString(sum[:])
}

func TestContentHasherMatchesBlockDefinition(t *testing.T) {
	sizes := []int{0, 1, BlockSize - 1, BlockSize, BlockSize + 7, 2*BlockSize + 3}
	for _, size := range sizes {
		data := bytes.Repeat([]byte{0x5a}, size)
		h := NewContentHasher()
		// Uneven writes cross block boundaries.
		for rest := data; len(rest) > 0; {
			n := min(len(rest), 1_000_003)
			h.Write(rest[:n])
			rest = rest[n:]
		}
		if got, want := h.Sum(), referenceHash(data); got != want {
			t.Fatalf("size %d: got %s want %s", size, got, want)
		}
	}
}

func TestContentHashOfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.jpg")
	data := []byte("hello world")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ContentHash(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != referenceHash(data) {
		t.Fatalf("unexpected hash %s", got)
	}
}

func TestWriteFileVerified(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "dst.bin")
	data := []byte("data")

	n, err := WriteFileVerified(dst, WriteOptions{Size: 4, ContentHash: referenceHash(data)}, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("expected 4 bytes, got %d", n)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "data" {
		t.Fatalf("content mismatch: got %q", got)
	}
	assertNoTempFiles(t, filepath.Dir(dst))
}

func TestWriteFileVerifiedRejectsMismatches(t *testing.T) {
	cases := []struct {
		name string
		opts WriteOptions
		fill func(io.Writer) error
		want string
	}{
		{
			name: "size",
			opts: WriteOptions{Size: 10},
			fill: func(w io.Writer) error { _, err := w.Write([]byte("short")); return err },
			want: "size mismatch",
		},
		{
			name: "hash",
			opts: WriteOptions{Size: -1, ContentHash: referenceHash([]byte("other"))},
			fill: func(w io.Writer) error { _, err := w.Write([]byte("data")); return err },
			want: "content hash mismatch",
		},
		{
			name: "fill error",
			opts: WriteOptions{Size: -1},
			fill: func(io.Writer) error { return errors.New("connection reset") },
			want: "connection reset",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			dst := filepath.Join(dir, "dst.bin")
			if err := os.WriteFile(dst, []byte("previous"), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := WriteFileVerified(dst, tc.opts, tc.fill)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
			got, _ := os.ReadFile(dst)
			if string(got) != "previous" {
				t.Fatalf("destination should be untouched, got %q", got)
			}
			assertNoTempFiles(t, dir)
		})
	}
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".part-") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}
}
