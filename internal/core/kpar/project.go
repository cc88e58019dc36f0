package kpar

import (
	"context"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// PackStore reads every key in s and packs them into a KPAR, per
// spec.md §4.3: pack exactly the project's store keys at the archive
// root.
func PackStore(ctx context.Context, s store.Store, opts PackOptions) ([]byte, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	entries := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, err := s.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		entries[key] = data
	}
	return Pack(entries, opts)
}

// UnpackVerified decodes data and, if the archive contains a
// ".meta.json" with a checksum map, re-unpacks it with that map passed
// as UnpackOptions.Checksums, so every listed file's bytes are
// verified against their stored digest before being returned — the
// per-file verification spec.md §4.3 and §4.7 install step 4 require
// of any unpack, not only the ones that happen to go through a store.
func UnpackVerified(data []byte) (map[string][]byte, error) {
	probe, err := Unpack(data, UnpackOptions{})
	if err != nil {
		return nil, err
	}

	var checksums map[string]model.Checksum
	if metaData, ok := probe[".meta.json"]; ok {
		meta, err := model.DecodeMeta(metaData)
		if err != nil {
			return nil, err
		}
		checksums = meta.Checksum
	}
	if checksums == nil {
		return probe, nil
	}
	return Unpack(data, UnpackOptions{Checksums: checksums})
}

// UnpackToStore decodes data (verifying its checksum map, per
// UnpackVerified) and writes every entry into dest. A checksum
// mismatch aborts before any write, so the destination is left as it
// was.
func UnpackToStore(ctx context.Context, data []byte, dest store.Store) error {
	entries, err := UnpackVerified(data)
	if err != nil {
		return err
	}

	for key, value := range entries {
		if err := dest.Write(ctx, key, value); err != nil {
			return errs.New(errs.IO, key, err)
		}
	}
	return nil
}
