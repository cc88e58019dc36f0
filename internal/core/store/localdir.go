package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// LocalDir is a Store backed by a directory on the local filesystem.
// Writes go to a sibling temporary file and are atomically renamed
// into place, per spec.md §4.1's local-backend write guarantee.
type LocalDir struct {
	Root string
}

func NewLocalDir(root string) *LocalDir { return &LocalDir{Root: root} }

func (s *LocalDir) path(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.Root, filepath.FromSlash(key)), nil
}

func (s *LocalDir) Exists(ctx context.Context) (bool, error) {
	info, err := os.Stat(s.Root)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.New(errs.IO, s.Root, err)
	}
	return info.IsDir(), nil
}

func (s *LocalDir) Read(ctx context.Context, key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errs.New(errs.IO, key, err)
	}
	return data, nil
}

func (s *LocalDir) Write(ctx context.Context, key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errs.New(errs.IO, key, err)
	}

	tmp := p + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.New(errs.IO, key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return errs.New(errs.IO, key, err)
	}
	return nil
}

func (s *LocalDir) Remove(ctx context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errs.New(errs.IO, key, err)
	}
	return nil
}

func (s *LocalDir) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.Root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.Root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.New(errs.IO, s.Root, err)
	}
	return SortedKeys(keys), nil
}

func (s *LocalDir) ReadOnly() bool { return false }

func (s *LocalDir) Close() error { return nil }

var _ Store = (*LocalDir)(nil)

// Editable is the store for an Editable(path) descriptor. Its store
// semantics are identical to LocalDir. Nothing installs it by
// reference: environment.Install copies an Editable store into the
// environment like any other source.
type Editable struct {
	*LocalDir
}

func NewEditable(root string) *Editable { return &Editable{LocalDir: NewLocalDir(root)} }

var _ Store = (*Editable)(nil)
