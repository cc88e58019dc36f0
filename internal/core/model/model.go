// Package model defines the on-disk JSON shapes of a project (the
// ".project.json" and ".meta.json" descriptors) and the canonical
// hashing used to identify a project's content independent of where
// it was fetched from.
package model

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash/adler32"
	"sort"
	"time"

	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/sha3"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

// Usage is a single dependency declaration: an IRI plus an optional
// version constraint string (parsed lazily by callers that need a
// version.Constraint; kept as a string here so descriptors round-trip
// byte-for-byte even for constraint grammars this build doesn't fully
// understand yet).
type Usage struct {
	Resource         string `json:"resource"`
	VersionConstraint string `json:"versionConstraint,omitempty"`
}

// Info is the decoded ".project.json" descriptor. Field order matches
// the order fields are declared here, which json.Marshal preserves.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version"`
	License     string   `json:"license,omitempty"`
	Maintainer  []string `json:"maintainer,omitempty"`
	Website     string   `json:"website,omitempty"`
	Topic       []string `json:"topic,omitempty"`
	Usage       []Usage  `json:"usage"`
}

// Validate enforces the Project invariants that depend only on Info:
// name is non-empty. Version and license validity are not checked
// here; project.validateInvariants checks them.
func (i Info) Validate() error {
	if i.Name == "" {
		return errs.New(errs.InvalidProject, "", fmt.Errorf("project name is empty"))
	}
	return nil
}

// ChecksumAlgorithm is the closed set of checksum algorithms KerML
// metadata descriptors may name. sysand-go only ever *writes* SHA256
// or None, but accepts the full set on read so descriptors authored
// by other metamodel-aware tools aren't rejected.
type ChecksumAlgorithm string

const (
	AlgNone    ChecksumAlgorithm = "None"
	AlgSHA1    ChecksumAlgorithm = "SHA1"
	AlgSHA224  ChecksumAlgorithm = "SHA224"
	AlgSHA256  ChecksumAlgorithm = "SHA256"
	AlgSHA384  ChecksumAlgorithm = "SHA384"
	AlgSHA512  ChecksumAlgorithm = "SHA512"
	AlgSHA3224 ChecksumAlgorithm = "SHA3-224"
	AlgSHA3256 ChecksumAlgorithm = "SHA3-256"
	AlgSHA3384 ChecksumAlgorithm = "SHA3-384"
	AlgSHA3512 ChecksumAlgorithm = "SHA3-512"
	AlgBLAKE3  ChecksumAlgorithm = "BLAKE3"
	AlgMD2     ChecksumAlgorithm = "MD2"
	AlgMD4     ChecksumAlgorithm = "MD4"
	AlgMD5     ChecksumAlgorithm = "MD5"
	AlgMD6     ChecksumAlgorithm = "MD6"
	AlgAdler32 ChecksumAlgorithm = "ADLER32"
)

// hexLengths maps each algorithm to its expected lowercase-hex digest
// length, for validating a descriptor's checksum.value on read.
var hexLengths = map[ChecksumAlgorithm]int{
	AlgSHA1:    40,
	AlgSHA224:  56,
	AlgSHA256:  64,
	AlgSHA384:  96,
	AlgSHA512:  128,
	AlgSHA3224: 56,
	AlgSHA3256: 64,
	AlgSHA3384: 96,
	AlgSHA3512: 128,
	AlgBLAKE3:  64,
	AlgMD2:     32,
	AlgMD4:     32,
	AlgMD5:     32,
	AlgMD6:     32,
	AlgAdler32: 8,
}

// Checksum is one entry of metadata.checksum: the digest of a single
// source file.
type Checksum struct {
	Value     string            `json:"value" toml:"value"`
	Algorithm ChecksumAlgorithm `json:"algorithm" toml:"algorithm"`
}

// Validate checks Algorithm is in the closed set and, unless it is
// None, that Value has the right hex length for the algorithm.
func (c Checksum) Validate() error {
	if c.Algorithm == AlgNone {
		if c.Value != "" {
			return errs.New(errs.InvalidValue, c.Value, fmt.Errorf("checksum algorithm None must have an empty value"))
		}
		return nil
	}
	wantLen, ok := hexLengths[c.Algorithm]
	if !ok {
		return errs.New(errs.InvalidValue, string(c.Algorithm), fmt.Errorf("unrecognised checksum algorithm"))
	}
	if len(c.Value) != wantLen {
		return errs.New(errs.InvalidValue, c.Value, fmt.Errorf("checksum value length %d does not match algorithm %s (want %d)", len(c.Value), c.Algorithm, wantLen))
	}
	if _, err := hex.DecodeString(c.Value); err != nil {
		return errs.New(errs.InvalidValue, c.Value, fmt.Errorf("checksum value is not hex: %w", err))
	}
	return nil
}

// Meta is the decoded ".meta.json" descriptor.
type Meta struct {
	Index           map[string]string   `json:"index"`
	Created         time.Time           `json:"created"`
	Metamodel       string              `json:"metamodel,omitempty"`
	IncludesDerived *bool               `json:"includesDerived,omitempty"`
	IncludesImplied *bool               `json:"includesImplied,omitempty"`
	Checksum        map[string]Checksum `json:"checksum,omitempty"`
}

// Validate enforces the metadata-only invariants: every checksum entry
// is itself well-formed.
func (m Meta) Validate() error {
	for relpath, c := range m.Checksum {
		if err := c.Validate(); err != nil {
			return errs.New(errs.InvalidProject, relpath, err)
		}
	}
	return nil
}

// EncodeJSON serialises v as 2-space-indented UTF-8 JSON with a
// trailing newline, the fixed on-disk shape every descriptor uses.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errs.New(errs.Serialisation, "", err)
	}
	return buf.Bytes(), nil
}

// DecodeInfo parses a ".project.json" document.
func DecodeInfo(data []byte) (Info, error) {
	var i Info
	if err := json.Unmarshal(data, &i); err != nil {
		return Info{}, errs.New(errs.InvalidProject, "", err)
	}
	return i, nil
}

// DecodeMeta parses a ".meta.json" document.
func DecodeMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, errs.New(errs.InvalidProject, "", err)
	}
	return m, nil
}

// CanonicalHash computes a project's content identity:
// SHA256(canonical(.project.json) ++ canonical(.meta.json)), where
// "canonical" rehashes every checksum entry of meta to SHA256 first
// (so two descriptors that differ only in which equivalent digest
// algorithm they recorded per-file still hash identically), then
// re-encodes both descriptors with EncodeJSON.
//
// fileHashes supplies the current SHA-256 of each relpath named in
// meta.Checksum, so canonicalisation doesn't need store access beyond
// what the caller already read.
func CanonicalHash(info Info, meta Meta, fileHashes map[string]string) (string, error) {
	canonicalMeta := meta
	if len(meta.Checksum) > 0 {
		canonicalMeta.Checksum = make(map[string]Checksum, len(meta.Checksum))
		for relpath, c := range meta.Checksum {
			if c.Algorithm == AlgSHA256 {
				canonicalMeta.Checksum[relpath] = c
				continue
			}
			h, ok := fileHashes[relpath]
			if !ok {
				return "", errs.New(errs.InvalidProject, relpath, fmt.Errorf("no SHA-256 available to canonicalise checksum"))
			}
			canonicalMeta.Checksum[relpath] = Checksum{Value: h, Algorithm: AlgSHA256}
		}
	}

	infoJSON, err := EncodeJSON(info)
	if err != nil {
		return "", err
	}
	metaJSON, err := EncodeJSON(canonicalMeta)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write(infoJSON)
	h.Write(metaJSON)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum hashes content with c.Algorithm and compares it to
// c.Value. None always passes. Algorithms with no available Go
// implementation in the corpus (BLAKE3, MD2, MD6) return InvalidValue
// rather than silently skipping verification.
func VerifyChecksum(c Checksum, content []byte) error {
	if c.Algorithm == AlgNone {
		return nil
	}

	var got string
	switch c.Algorithm {
	case AlgSHA1:
		sum := sha1.Sum(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA224:
		sum := sha256.Sum224(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA256:
		sum := sha256.Sum256(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA384:
		sum := sha512.Sum384(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA512:
		sum := sha512.Sum512(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA3224:
		sum := sha3.Sum224(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA3256:
		sum := sha3.Sum256(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA3384:
		sum := sha3.Sum384(content)
		got = hex.EncodeToString(sum[:])
	case AlgSHA3512:
		sum := sha3.Sum512(content)
		got = hex.EncodeToString(sum[:])
	case AlgMD4:
		h := md4.New()
		h.Write(content)
		got = hex.EncodeToString(h.Sum(nil))
	case AlgMD5:
		sum := md5.Sum(content)
		got = hex.EncodeToString(sum[:])
	case AlgAdler32:
		got = fmt.Sprintf("%08x", adler32.Checksum(content))
	default:
		return errs.New(errs.InvalidValue, string(c.Algorithm), fmt.Errorf("no verifier available for this checksum algorithm"))
	}

	if got != c.Value {
		return errs.New(errs.ChecksumMismatch, c.Value, fmt.Errorf("expected %s digest %s, got %s", c.Algorithm, c.Value, got))
	}
	return nil
}

// SortedKeys returns the keys of a checksum map in lexicographic
// order, for callers that need a deterministic iteration over
// metadata.checksum.
func SortedKeys(m map[string]Checksum) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
