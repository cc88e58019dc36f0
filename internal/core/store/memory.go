package store

import (
	"context"
	"fmt"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// Memory is an in-memory Store, the fake every _test.go in this
// module uses in place of a mocking framework.
type Memory struct {
	files map[string][]byte
}

func NewMemory() *Memory { return &Memory{files: make(map[string][]byte)} }

// NewMemoryFrom seeds a Memory store from an existing key->bytes map;
// both the map and its byte slices are copied, so the store never
// aliases the caller's backing arrays.
func NewMemoryFrom(files map[string][]byte) *Memory {
	copied := make(map[string][]byte, len(files))
	for k, v := range files {
		copied[k] = append([]byte(nil), v...)
	}
	return &Memory{files: copied}
}

func (s *Memory) Exists(ctx context.Context) (bool, error) { return true, nil }

func (s *Memory) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, ok := s.files[key]
	if !ok {
		return nil, errs.New(errs.IO, key, fmt.Errorf("key not found"))
	}
	return append([]byte(nil), data...), nil
}

func (s *Memory) Write(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.files[key] = append([]byte(nil), data...)
	return nil
}

func (s *Memory) Remove(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	delete(s.files, key)
	return nil
}

func (s *Memory) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.files))
	for k := range s.files {
		keys = append(keys, k)
	}
	return SortedKeys(keys), nil
}

func (s *Memory) ReadOnly() bool { return false }

func (s *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
