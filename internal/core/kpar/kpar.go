// Package kpar implements the deterministic ZIP container format a
// project is packed into: fixed entry ordering, fixed modification
// time, per-entry compression method, and checksum verification on
// unpack.
package kpar

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

// Method is a KPAR entry compression method, per spec.md §6.
type Method string

const (
	MethodStored   Method = "STORED"
	MethodDeflated Method = "DEFLATED"
	MethodBZIP2    Method = "BZIP2"
	MethodZSTD     Method = "ZSTD"
	MethodXZ       Method = "XZ"
	MethodPPMD     Method = "PPMD"
)

// zip method IDs per the PKWARE APPNOTE registered-methods list; the
// stdlib archive/zip only predefines Store (0) and Deflate (8).
const (
	zipMethodBZIP2 uint16 = 12
	zipMethodXZ    uint16 = 95
	zipMethodZSTD  uint16 = 93
)

// epoch is the fixed sentinel modification time every entry gets so
// that two packs of the same inputs produce byte-identical archives.
var epoch = time.Unix(0, 0).UTC()

// PackOptions configures Pack.
type PackOptions struct {
	// Method is the compression method applied to every entry.
	// Defaults to MethodDeflated.
	Method Method
}

// Pack builds a KPAR from the given key->bytes entries (typically a
// Project's descriptors plus its source-file set). Entries are
// written in lexicographic key order; PPMD is rejected outright since
// no Go PPMD encoder exists anywhere in the corpus.
func Pack(entries map[string][]byte, opts PackOptions) ([]byte, error) {
	method := opts.Method
	if method == "" {
		method = MethodDeflated
	}
	if method == MethodPPMD {
		return nil, errs.New(errs.InvalidValue, string(method), fmt.Errorf("PPMD encoding is not supported"))
	}
	if method == MethodBZIP2 {
		return nil, errs.New(errs.InvalidValue, string(method), fmt.Errorf("BZIP2 encoding is not supported (decode-only)"))
	}

	methodID, err := zipMethodID(method)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	registerZSTDCompressor(zw)
	registerXZCompressor(zw)

	for _, key := range keys {
		if err := store.ValidateKey(key); err != nil {
			zw.Close()
			return nil, err
		}
		header := &zip.FileHeader{
			Name:     key,
			Method:   methodID,
			Modified: epoch,
		}
		w, err := zw.CreateHeader(header)
		if err != nil {
			zw.Close()
			return nil, errs.New(errs.Serialisation, key, err)
		}
		if _, err := w.Write(entries[key]); err != nil {
			zw.Close()
			return nil, errs.New(errs.Serialisation, key, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, errs.New(errs.Serialisation, "", err)
	}
	return buf.Bytes(), nil
}

func zipMethodID(m Method) (uint16, error) {
	switch m {
	case MethodStored:
		return zip.Store, nil
	case MethodDeflated:
		return zip.Deflate, nil
	case MethodZSTD:
		return zipMethodZSTD, nil
	case MethodXZ:
		return zipMethodXZ, nil
	default:
		return 0, errs.New(errs.InvalidValue, string(m), fmt.Errorf("unknown compression method"))
	}
}

func registerZSTDCompressor(zw *zip.Writer) {
	zw.RegisterCompressor(zipMethodZSTD, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	})
}

func registerXZCompressor(zw *zip.Writer) {
	zw.RegisterCompressor(zipMethodXZ, func(w io.Writer) (io.WriteCloser, error) {
		xw, err := xz.NewWriter(w)
		if err != nil {
			return nil, err
		}
		return nopCloseWriteCloser{xw}, nil
	})
}

// nopCloseWriteCloser adapts an *xz.Writer (whose Close flushes the
// stream trailer) to io.WriteCloser without double-closing the
// underlying zip entry writer, which archive/zip already manages.
type nopCloseWriteCloser struct {
	*xz.Writer
}

func (w nopCloseWriteCloser) Close() error { return w.Writer.Close() }

// UnpackOptions configures Unpack.
type UnpackOptions struct {
	// Checksums, if non-nil, is verified against every matching entry
	// as it is extracted; a mismatch aborts with ChecksumMismatch and
	// no entries are returned.
	Checksums map[string]model.Checksum
}

// Unpack decodes a KPAR into its key->bytes entries. Every entry path
// is validated against path traversal before being materialised, and
// (if UnpackOptions.Checksums is set) verified against the supplied
// digest map; a failure at any entry aborts the whole unpack so no
// partial result is returned.
func Unpack(data []byte, opts UnpackOptions) (map[string][]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.New(errs.Serialisation, "", err)
	}
	zr.RegisterDecompressor(zipMethodBZIP2, func(r io.Reader) io.ReadCloser {
		return io.NopCloser(bzip2.NewReader(r))
	})
	zr.RegisterDecompressor(zipMethodZSTD, func(r io.Reader) io.ReadCloser {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(&errReader{err})
		}
		return zr.IOReadCloser()
	})
	zr.RegisterDecompressor(zipMethodXZ, func(r io.Reader) io.ReadCloser {
		xr, err := xz.NewReader(r)
		if err != nil {
			return io.NopCloser(&errReader{err})
		}
		return io.NopCloser(xr)
	})

	entries := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		if err := store.ValidateKey(f.Name); err != nil {
			return nil, err
		}

		rc, err := f.Open()
		if err != nil {
			return nil, errs.New(errs.Serialisation, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errs.New(errs.Serialisation, f.Name, err)
		}

		if opts.Checksums != nil {
			if c, ok := opts.Checksums[f.Name]; ok {
				if err := model.VerifyChecksum(c, data); err != nil {
					return nil, err
				}
			}
		}

		entries[f.Name] = data
	}
	return entries, nil
}

// errReader makes a constructor failure (e.g. a malformed zstd/xz
// stream header) surface through the normal io.Reader error path
// archive/zip's Open() already propagates.
type errReader struct{ err error }

func (r *errReader) Read([]byte) (int, error) { return 0, r.err }
