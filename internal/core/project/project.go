// Package project implements the high-level façade over a Project
// Store: typed access to the .project.json/.meta.json descriptors and
// the source-file set, and the mutating operations that rewrite them
// while preserving field order and pretty-printing.
package project

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/hasher"
	"github.com/sysand-dev/sysand-go/internal/core/license"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/version"
)

const (
	infoKey        = ".project.json"
	metaKey        = ".meta.json"
	licensesPrefix = "LICENSES/"
)

// Project opens a Store and exposes the typed view spec.md §4.2
// describes: info, metadata, and the source-file set (every key that
// is not a descriptor and not under LICENSES/).
type Project struct {
	Store store.Store
	Info  model.Info
	Meta  model.Meta
}

// Open reads and parses the two descriptors from s. A store without
// either descriptor is InvalidProject.
func Open(ctx context.Context, s store.Store) (*Project, error) {
	infoData, err := s.Read(ctx, infoKey)
	if err != nil {
		return nil, errs.New(errs.InvalidProject, infoKey, err)
	}
	info, err := model.DecodeInfo(infoData)
	if err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	metaData, err := s.Read(ctx, metaKey)
	if err != nil {
		return nil, errs.New(errs.InvalidProject, metaKey, err)
	}
	meta, err := model.DecodeMeta(metaData)
	if err != nil {
		return nil, err
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	p := &Project{Store: s, Info: info, Meta: meta}
	if err := p.validateInvariants(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Init creates a brand-new project in an empty store: writes
// .project.json = {name, version, usage:[]} and
// .meta.json = {index:{}, created:<now, RFC3339 UTC>}, per spec.md §8
// scenario 1.
func Init(ctx context.Context, s store.Store, name, projectVersion string) (*Project, error) {
	exists, err := s.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		if keys, err := s.List(ctx); err == nil && len(keys) > 0 {
			return nil, errs.New(errs.ProjectAlreadyExists, name, fmt.Errorf("store is not empty"))
		}
	}

	info := model.Info{Name: name, Version: projectVersion, Usage: []model.Usage{}}
	meta := model.Meta{Index: map[string]string{}, Created: time.Now().UTC()}

	p := &Project{Store: s, Info: info, Meta: meta}
	if err := p.validateInvariants(ctx); err != nil {
		return nil, err
	}
	if err := p.writeDescriptors(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// SourceKeys returns every store key that is part of the source-file
// set: not a descriptor, not under LICENSES/.
func (p *Project) SourceKeys(ctx context.Context) ([]string, error) {
	all, err := p.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, k := range all {
		if isSourceKey(k) {
			sources = append(sources, k)
		}
	}
	return sources, nil
}

func isSourceKey(key string) bool {
	if key == infoKey || key == metaKey {
		return false
	}
	return !strings.HasPrefix(key, licensesPrefix)
}

// validateInvariants checks the Project invariants of spec.md §3 that
// depend on the source set: every metadata.checksum key and
// metadata.index value names a file present in the store.
func (p *Project) validateInvariants(ctx context.Context) error {
	if _, err := version.Parse(p.Info.Version); err != nil {
		return errs.New(errs.InvalidSemanticVersion, p.Info.Version, err)
	}
	if err := license.Validate(p.Info.License); err != nil {
		return err
	}

	sources, err := p.SourceKeys(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(sources))
	for _, s := range sources {
		present[s] = true
	}

	for relpath := range p.Meta.Checksum {
		if !present[relpath] {
			return errs.New(errs.InvalidProject, relpath, fmt.Errorf("metadata.checksum names a file not in the source set"))
		}
	}
	for name, relpath := range p.Meta.Index {
		if !present[relpath] {
			return errs.New(errs.InvalidProject, relpath, fmt.Errorf("metadata.index entry %q names a file not in the source set", name))
		}
	}
	return nil
}

// writeDescriptors serialises Info and Meta back to the store. Each
// write is atomic on its own (temp-then-rename for LocalDir), but the
// pair is not: if the .meta.json write fails, the new .project.json
// has already been written.
func (p *Project) writeDescriptors(ctx context.Context) error {
	infoJSON, err := model.EncodeJSON(p.Info)
	if err != nil {
		return err
	}
	metaJSON, err := model.EncodeJSON(p.Meta)
	if err != nil {
		return err
	}
	if err := p.Store.Write(ctx, infoKey, infoJSON); err != nil {
		return err
	}
	return p.Store.Write(ctx, metaKey, metaJSON)
}

// mutate runs fn against a scratch copy of p's descriptors; only if
// fn and the subsequent invariant check both succeed does it commit
// by writing the store, per spec.md §4.2's "failure aborts the
// mutation with no on-disk change."
//
// fn itself may touch the store directly (Include/Exclude do, to
// write or remove the source file the descriptor change is about),
// so that write is not rolled back if validateInvariants fails after
// it. Every current caller's own store write is exactly the file its
// descriptor change references, so it can never be the cause of an
// invariant failure; a future fn that touches unrelated store keys
// would need its own rollback.
func (p *Project) mutate(ctx context.Context, fn func(*Project) error) error {
	scratch := &Project{Store: p.Store, Info: p.Info, Meta: p.Meta}
	scratch.Info.Usage = slices.Clone(p.Info.Usage)
	scratch.Meta.Index = maps.Clone(p.Meta.Index)
	scratch.Meta.Checksum = maps.Clone(p.Meta.Checksum)
	if err := fn(scratch); err != nil {
		return err
	}
	if err := scratch.validateInvariants(ctx); err != nil {
		return err
	}
	if err := scratch.writeDescriptors(ctx); err != nil {
		return err
	}
	p.Info, p.Meta = scratch.Info, scratch.Meta
	return nil
}

// symbolPattern matches the first-line heuristic spec.md §4.2
// describes: "package Name" or "library package Name", optionally
// followed by other tokens, up to the first ';', ':' or line end.
var symbolPattern = regexp.MustCompile(`^\s*(?:library\s+)?package\s+([A-Za-z_][A-Za-z0-9_]*)`)

// detectSymbol scans the first line of content for a top-level symbol
// declaration. Non-conforming files yield ("", false) silently, per
// spec.md §9's noted design ambiguity.
func detectSymbol(content []byte) (string, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	if !scanner.Scan() {
		return "", false
	}
	m := symbolPattern.FindStringSubmatch(scanner.Text())
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IncludeOptions controls the optional side-effects of Include.
type IncludeOptions struct {
	Checksum     bool
	DetectSymbol bool
}

// Include adds relpath with the given content to the source set,
// optionally computing a checksum and/or detecting its top-level
// symbol for metadata.index, per spec.md §4.2.
func (p *Project) Include(ctx context.Context, relpath string, content []byte, opts IncludeOptions) error {
	return p.mutate(ctx, func(s *Project) error {
		if err := s.Store.Write(ctx, relpath, content); err != nil {
			return err
		}
		if opts.Checksum {
			if s.Meta.Checksum == nil {
				s.Meta.Checksum = map[string]model.Checksum{}
			}
			s.Meta.Checksum[relpath] = model.Checksum{
				Value:     hasher.SHA256Hex(content),
				Algorithm: model.AlgSHA256,
			}
		}
		if opts.DetectSymbol {
			if name, ok := detectSymbol(content); ok {
				if s.Meta.Index == nil {
					s.Meta.Index = map[string]string{}
				}
				s.Meta.Index[name] = relpath
			}
		}
		return nil
	})
}

// Exclude removes relpath from the source set and from any
// metadata.checksum/metadata.index entries that name it.
func (p *Project) Exclude(ctx context.Context, relpath string) error {
	return p.mutate(ctx, func(s *Project) error {
		if err := s.Store.Remove(ctx, relpath); err != nil {
			return err
		}
		delete(s.Meta.Checksum, relpath)
		for name, rp := range s.Meta.Index {
			if rp == relpath {
				delete(s.Meta.Index, name)
			}
		}
		return nil
	})
}

// SetVersion rewrites info.version.
func (p *Project) SetVersion(ctx context.Context, newVersion string) error {
	return p.mutate(ctx, func(s *Project) error {
		s.Info.Version = newVersion
		return nil
	})
}

// AddUsage appends or replaces a usage declaration for resource.
func (p *Project) AddUsage(ctx context.Context, resource, versionConstraint string) error {
	return p.mutate(ctx, func(s *Project) error {
		for i, u := range s.Info.Usage {
			if u.Resource == resource {
				s.Info.Usage[i].VersionConstraint = versionConstraint
				return nil
			}
		}
		s.Info.Usage = append(s.Info.Usage, model.Usage{Resource: resource, VersionConstraint: versionConstraint})
		return nil
	})
}

// RemoveUsage removes the usage declaration for resource, if any.
func (p *Project) RemoveUsage(ctx context.Context, resource string) error {
	return p.mutate(ctx, func(s *Project) error {
		filtered := s.Info.Usage[:0]
		for _, u := range s.Info.Usage {
			if u.Resource != resource {
				filtered = append(filtered, u)
			}
		}
		s.Info.Usage = filtered
		return nil
	})
}

// CanonicalHash computes the project's content identity hash (see
// model.CanonicalHash), hashing every file named in metadata.checksum
// to provide the SHA-256 inputs canonicalisation needs.
func (p *Project) CanonicalHash(ctx context.Context) (string, error) {
	fileHashes := make(map[string]string, len(p.Meta.Checksum))
	for relpath := range p.Meta.Checksum {
		content, err := p.Store.Read(ctx, relpath)
		if err != nil {
			return "", err
		}
		fileHashes[relpath] = hasher.SHA256Hex(content)
	}
	return model.CanonicalHash(p.Info, p.Meta, fileHashes)
}

// SortedSourceKeys is a convenience wrapper returning SourceKeys in
// lexicographic order, the order the KPAR codec packs entries in.
func (p *Project) SortedSourceKeys(ctx context.Context) ([]string, error) {
	keys, err := p.SourceKeys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
