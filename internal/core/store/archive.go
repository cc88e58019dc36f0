package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// Archive is a Store backed by an in-memory index of a KPAR's
// entries. Writes and removes mutate the index; Flush re-serialises it to
// the backing path via the codec supplied at construction.
type Archive struct {
	path    string
	files   map[string][]byte
	flush   func(path string, files map[string][]byte) error
	dirty   bool
}

// ArchiveFlusher re-serialises an archive's current key->bytes index
// to path. internal/core/kpar supplies the concrete implementation;
// store stays codec-agnostic to avoid an import cycle.
type ArchiveFlusher func(path string, files map[string][]byte) error

func NewArchive(path string, files map[string][]byte, flush ArchiveFlusher) *Archive {
	return &Archive{path: path, files: files, flush: flush}
}

func (s *Archive) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errs.New(errs.IO, s.path, err)
	}
	return true, nil
}

func (s *Archive) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, ok := s.files[key]
	if !ok {
		return nil, errs.New(errs.IO, key, fmt.Errorf("key not found in archive"))
	}
	return append([]byte(nil), data...), nil
}

func (s *Archive) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.files[key] = append([]byte(nil), data...)
	s.dirty = true
	return nil
}

func (s *Archive) Remove(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	delete(s.files, key)
	s.dirty = true
	return nil
}

func (s *Archive) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	return SortedKeys(keys), nil
}

func (s *Archive) ReadOnly() bool { return false }

// Flush re-serialises the archive to disk if any Write/Remove
// happened since it was opened (or since the last Flush).
func (s *Archive) Flush() error {
	if !s.dirty {
		return nil
	}
	if err := s.flush(s.path, s.files); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (s *Archive) Close() error { return s.Flush() }

var _ Store = (*Archive)(nil)

// ReadAllAndClose is a helper for callers building an Archive's
// initial file index from a reader without pulling in archive/zip
// here (that lives in internal/core/kpar, which constructs Archive
// stores directly from its own unzip result).
func ReadAllAndClose(r io.ReadCloser) ([]byte, error) {
	defer r.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, errs.New(errs.IO, "", err)
	}
	return buf.Bytes(), nil
}
