package fetcher

import (
	"context"
	"os"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/kpar"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// openLocalKpar reads a KPAR file from disk, verifies it against
// expected if given, and opens it as an Archive store backed by the
// same path (so a later Flush/Close re-packs in place).
func (f *Fetcher) openLocalKpar(ctx context.Context, path string, expected *model.Checksum) (store.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.IO, path, err)
	}
	if err := verifyBlob(expected, data); err != nil {
		return nil, err
	}
	return openArchive(path, data)
}

func openArchive(path string, data []byte) (store.Store, error) {
	files, err := kpar.UnpackVerified(data)
	if err != nil {
		return nil, err
	}
	return store.NewArchive(path, files, flushArchive), nil
}

func flushArchive(path string, files map[string][]byte) error {
	data, err := kpar.Pack(files, kpar.PackOptions{})
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.New(errs.IO, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.IO, path, err)
	}
	return nil
}
