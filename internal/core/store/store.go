// Package store implements the Project Store contract: a polymorphic
// key->bytes abstraction backed by a local directory, an in-memory
// zip archive, an HTTP directory, or a plain map (for tests).
package store

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// Store is the identical read/write contract every backend implements.
// Keys are project-relative forward-slash paths, case-sensitive, never
// containing "..".
type Store interface {
	// Exists reports whether the backing resource is present at all
	// (e.g. the directory exists, the archive file opens).
	Exists(ctx context.Context) (bool, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	// ReadOnly reports whether Write/Remove always fail (HTTP stores).
	ReadOnly() bool
	// Close releases any resource the store exclusively owns (open
	// archive file, in-flight HTTP client). Stores that own nothing
	// return nil.
	Close() error
}

// ValidateKey rejects empty keys, absolute paths, and path traversal,
// the same checks every backend below applies before touching its
// backing resource.
func ValidateKey(key string) error {
	if key == "" {
		return errs.New(errs.InvalidValue, key, fmt.Errorf("empty store key"))
	}
	if strings.HasPrefix(key, "/") {
		return errs.New(errs.InvalidValue, key, fmt.Errorf("store key must be relative"))
	}
	clean := path.Clean(key)
	if clean != key {
		return errs.New(errs.InvalidValue, key, fmt.Errorf("store key is not in canonical form"))
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return errs.New(errs.InvalidValue, key, fmt.Errorf("store key escapes the archive root"))
		}
	}
	return nil
}

// ErrReadOnly is returned by Write/Remove on read-only stores.
var ErrReadOnly = fmt.Errorf("store is read-only")

// SortedKeys is the deterministic iteration order every backend's
// List must honour: lexicographic by key.
func SortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}

// ReadAll drains an io.Reader the way HTTP- and archive-backed stores
// need to when materialising a single key.
func ReadAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.New(errs.IO, "", err)
	}
	return data, nil
}
