// Package environment implements the content-addressed on-disk store
// of installed projects of spec.md §4.7: install/uninstall/list/
// sources/sync over a "<env>/<digest>/<version>.kpar/…" layout, with
// an "entries.txt" manifest that doubles as the HTTP index layout
// internal/core/index reads.
package environment

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/hasher"
	"github.com/sysand-dev/sysand-go/internal/core/iri"
	"github.com/sysand-dev/sysand-go/internal/core/lockfile"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/resolver"
	"github.com/sysand-dev/sysand-go/internal/core/stdlib"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

const entriesFileName = "entries.txt"

// Entry is one line of "<env>/entries.txt": the IRI, version, and
// digest of one installed project.
type Entry struct {
	IRI     string
	Version string
	Digest  string
}

// Environment is a directory rooted at Dir, conventionally
// "sysand_env/".
type Environment struct {
	Dir     string
	Fetcher *fetcher.Fetcher

	// Resolver and ResolveWith optionally let Install satisfy spec.md
	// §4.7 install step 6 ("for each usage … resolve and install it
	// transitively") by resolving a not-yet-installed usage on the
	// spot, the same way "lock" resolves a whole project. Left nil,
	// Install falls back to requiring every usage be already present
	// (the seam "lock" + "sync" cover for a whole dependency graph).
	Resolver   *resolver.Resolver
	ResolveWith resolver.Request
}

func Open(dir string, f *fetcher.Fetcher) *Environment {
	return &Environment{Dir: dir, Fetcher: f}
}

func digestFor(normalisedIRI string) string { return hasher.DigestIRI(normalisedIRI) }

func (e *Environment) targetDir(digest, version string) string {
	return filepath.Join(e.Dir, digest, version+".kpar")
}

// InstallOptions configures Install.
type InstallOptions struct {
	AllowOverwrite bool
	AllowMultiple  bool
	NoDeps         bool
}

// Install materialises a source descriptor for iri/version into the
// environment, per spec.md §4.7's numbered algorithm.
func (e *Environment) Install(ctx context.Context, rawIRI, version string, desc fetcher.Descriptor, opts InstallOptions) error {
	id, err := iri.Parse(rawIRI)
	if err != nil {
		return err
	}
	digest := digestFor(id.String())
	target := e.targetDir(digest, version)

	if exists, err := dirExists(target); err != nil {
		return err
	} else if exists && !opts.AllowOverwrite {
		return errs.New(errs.AlreadyInstalled, id.String(), fmt.Errorf("version %s is already installed", version))
	}

	if !opts.AllowMultiple {
		if conflict, err := e.hasOtherVersion(digest, version); err != nil {
			return err
		} else if conflict {
			return errs.New(errs.VersionConflict, id.String(), fmt.Errorf("another version of this project is already installed"))
		}
	}

	fetched, err := e.Fetcher.Fetch(ctx, desc)
	if err != nil {
		return err
	}

	scratch := target + ".install-" + uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(scratch), 0o755); err != nil {
		return errs.New(errs.IO, scratch, err)
	}
	if err := copyStoreToDir(ctx, fetched, scratch); err != nil {
		os.RemoveAll(scratch)
		return err
	}

	if opts.AllowOverwrite {
		os.RemoveAll(target)
	}
	if err := os.Rename(scratch, target); err != nil {
		os.RemoveAll(scratch)
		return errs.New(errs.IO, target, err)
	}

	if err := e.appendEntry(Entry{IRI: id.String(), Version: version, Digest: digest}); err != nil {
		return err
	}

	if opts.NoDeps {
		return nil
	}
	return e.installDeps(ctx, target, opts)
}

func (e *Environment) installDeps(ctx context.Context, installedDir string, opts InstallOptions) error {
	p, err := project.Open(ctx, store.NewLocalDir(installedDir))
	if err != nil {
		return err
	}
	for _, usage := range p.Info.Usage {
		if stdlib.IsStandard(usage.Resource) {
			continue
		}
		usageIRI, err := iri.Parse(usage.Resource)
		if err != nil {
			return err
		}
		digest := digestFor(usageIRI.String())
		if _, found, err := e.findInstalled(digest); err != nil {
			return err
		} else if found {
			continue
		}

		if e.Resolver == nil {
			return errs.New(errs.ResolutionError, usage.Resource, fmt.Errorf(
				"transitive dependency is not resolved and no resolver is configured; run %q or configure Environment.Resolver", "sysand lock && sysand sync"))
		}
		if err := e.installResolved(ctx, usage); err != nil {
			return err
		}
	}
	return nil
}

// installResolved satisfies spec.md §4.7 install step 6 for a single
// not-yet-installed usage: resolves it (and, transitively, everything
// it depends on) against e.ResolveWith's indexes/overrides, then
// installs every pinned node the resolution produced.
func (e *Environment) installResolved(ctx context.Context, usage model.Usage) error {
	req := e.ResolveWith
	req.RootUsages = []model.Usage{usage}

	graph, err := e.Resolver.Resolve(ctx, req)
	if err != nil {
		return err
	}
	for _, pin := range graph.Pinned {
		digest := digestFor(pin.IRI)
		if _, found, err := e.findInstalled(digest); err != nil {
			return err
		} else if found {
			continue
		}
		if err := e.installFromSources(ctx, pin.IRI, pin.Version, pin.Sources); err != nil {
			return err
		}
	}
	return nil
}

func (e *Environment) hasOtherVersion(digest, version string) (bool, error) {
	dir := filepath.Join(e.Dir, digest)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errs.New(errs.IO, dir, err)
	}
	for _, de := range entries {
		if de.IsDir() && strings.TrimSuffix(de.Name(), ".kpar") != version {
			return true, nil
		}
	}
	return false, nil
}

func (e *Environment) findInstalled(digest string) (string, bool, error) {
	dir := filepath.Join(e.Dir, digest)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errs.New(errs.IO, dir, err)
	}
	for _, de := range entries {
		if de.IsDir() {
			return strings.TrimSuffix(de.Name(), ".kpar"), true, nil
		}
	}
	return "", false, nil
}

// Uninstall removes the matching subtree(s). version == "" removes
// every installed version of iri. A missing target is not an error.
func (e *Environment) Uninstall(rawIRI, version string) error {
	id, err := iri.Parse(rawIRI)
	if err != nil {
		return err
	}
	digest := digestFor(id.String())
	dir := filepath.Join(e.Dir, digest)

	if version == "" {
		if err := os.RemoveAll(dir); err != nil {
			return errs.New(errs.IO, dir, err)
		}
	} else {
		target := e.targetDir(digest, version)
		if err := os.RemoveAll(target); err != nil {
			return errs.New(errs.IO, target, err)
		}
	}
	return e.rewriteEntries(func(entries []Entry) []Entry {
		kept := entries[:0]
		for _, ent := range entries {
			if ent.Digest == digest && (version == "" || ent.Version == version) {
				continue
			}
			kept = append(kept, ent)
		}
		return kept
	})
}

// List reads "<env>/entries.txt".
func (e *Environment) List() ([]Entry, error) {
	return e.readEntries()
}

// SourcesOptions configures Sources.
type SourcesOptions struct {
	IncludeDeps bool
	IncludeStd  bool
}

// Sources returns absolute paths of every model file belonging to the
// installed project named by iri/version (or its only installed
// version if version is ""), optionally unioned with every transitive
// dependency's sources.
func (e *Environment) Sources(ctx context.Context, rawIRI, version string, opts SourcesOptions) ([]string, []string, error) {
	seen := map[string]bool{}
	var missing []string
	var out []string

	var visit func(rawIRI, version string) error
	visit = func(rawIRI, version string) error {
		id, err := iri.Parse(rawIRI)
		if err != nil {
			return err
		}
		if !opts.IncludeStd && stdlib.IsStandard(id.String()) {
			return nil
		}
		digest := digestFor(id.String())
		if seen[digest] {
			return nil
		}
		seen[digest] = true

		resolvedVersion := version
		if resolvedVersion == "" {
			v, found, err := e.findInstalled(digest)
			if err != nil {
				return err
			}
			if !found {
				missing = append(missing, id.String())
				return nil
			}
			resolvedVersion = v
		}

		dir := e.targetDir(digest, resolvedVersion)
		if exists, err := dirExists(dir); err != nil {
			return err
		} else if !exists {
			missing = append(missing, id.String())
			return nil
		}

		p, err := project.Open(ctx, store.NewLocalDir(dir))
		if err != nil {
			return err
		}
		keys, err := p.SortedSourceKeys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			out = append(out, filepath.Join(dir, filepath.FromSlash(k)))
		}

		if !opts.IncludeDeps {
			return nil
		}
		for _, usage := range p.Info.Usage {
			if err := visit(usage.Resource, ""); err != nil {
				return err
			}
		}
		return nil
	}

	if err := visit(rawIRI, version); err != nil {
		return nil, nil, err
	}
	sort.Strings(out)
	return out, missing, nil
}

// Sync installs every pinned lockfile entry not already present at
// the right digest+version (or at the right canonical hash — see
// ResolveLocked), from the first working source in its source list.
// It never removes extra entries.
func (e *Environment) Sync(ctx context.Context, lf *lockfile.Lockfile) ([]string, error) {
	var installed []string
	for _, p := range lf.Project {
		if len(p.Identifiers) == 0 {
			continue
		}
		primary := p.Identifiers[0]
		id, err := iri.Parse(primary)
		if err != nil {
			return installed, err
		}
		digest := digestFor(id.String())

		if ok, err := e.ResolveLocked(ctx, digest, p.Version, p.Checksum); err != nil {
			return installed, err
		} else if ok {
			continue
		}

		if err := e.installFromSources(ctx, primary, p.Version, p.Sources); err != nil {
			return installed, err
		}
		installed = append(installed, primary)
	}
	return installed, nil
}

func (e *Environment) installFromSources(ctx context.Context, rawIRI, version string, sources []lockfile.Source) error {
	var lastErr error
	for _, src := range sources {
		desc, ok := descriptorFromSource(src)
		if !ok {
			continue
		}
		err := e.Install(ctx, rawIRI, version, desc, InstallOptions{AllowOverwrite: true, AllowMultiple: true, NoDeps: true})
		if err == nil {
			return nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable source descriptor for %s@%s", rawIRI, version)
	}
	return errs.New(errs.ResolutionError, rawIRI, lastErr)
}

func descriptorFromSource(src lockfile.Source) (fetcher.Descriptor, bool) {
	switch {
	case src.SrcPath != "":
		return fetcher.LocalDir(src.SrcPath), true
	case src.KparPath != "":
		return fetcher.LocalKpar(src.KparPath), true
	case src.Editable != "":
		return fetcher.Editable(src.Editable), true
	case src.RemoteSrc != "":
		return fetcher.RemoteDir(src.RemoteSrc), true
	case src.RemoteKpar != "":
		return fetcher.RemoteKpar(src.RemoteKpar), true
	case src.RemoteGit != "":
		return fetcher.GitRef(src.RemoteGit, src.Rev), true
	default:
		return fetcher.Descriptor{}, false
	}
}

// ResolveLocked reports whether digest already has an installed
// version matching either the pinned version string or, failing that,
// expectedChecksum's canonical project hash (the supplemented
// "lock-to-environment resolution by canonical hash" feature): a
// byte-identical project installed under a different version string
// still satisfies the lock.
func (e *Environment) ResolveLocked(ctx context.Context, digest, version string, expectedChecksum model.Checksum) (bool, error) {
	dir := e.targetDir(digest, version)
	if exists, err := dirExists(dir); err != nil {
		return false, err
	} else if exists {
		return true, nil
	}

	entries, err := os.ReadDir(filepath.Join(e.Dir, digest))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errs.New(errs.IO, digest, err)
	}
	if expectedChecksum.Value == "" {
		return false, nil
	}
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		candidate := filepath.Join(e.Dir, digest, de.Name())
		p, err := project.Open(ctx, store.NewLocalDir(candidate))
		if err != nil {
			continue
		}
		hash, err := p.CanonicalHash(ctx)
		if err != nil {
			continue
		}
		if hash == expectedChecksum.Value {
			return true, nil
		}
	}
	return false, nil
}

func dirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errs.New(errs.IO, path, err)
	}
	return info.IsDir(), nil
}

// copyStoreToDir copies every key of s into dir. If s contains a
// ".meta.json" with a checksum map, every listed file's bytes are
// verified against its stored digest before any file is written —
// spec.md §4.3's "mismatch is a fatal error" and §4.7 install step 4
// ("verify checksum map if present"), enforced here so it covers
// every fetcher kind uniformly, not only KPAR archives.
func copyStoreToDir(ctx context.Context, s store.Store, dir string) error {
	keys, err := s.List(ctx)
	if err != nil {
		return err
	}

	contents := make(map[string][]byte, len(keys))
	for _, key := range keys {
		data, err := s.Read(ctx, key)
		if err != nil {
			return err
		}
		contents[key] = data
	}

	if metaData, ok := contents[".meta.json"]; ok {
		meta, err := model.DecodeMeta(metaData)
		if err != nil {
			return err
		}
		for relpath, checksum := range meta.Checksum {
			content, ok := contents[relpath]
			if !ok {
				continue
			}
			if err := model.VerifyChecksum(checksum, content); err != nil {
				return err
			}
		}
	}

	dest := store.NewLocalDir(dir)
	for key, data := range contents {
		if err := dest.Write(ctx, key, data); err != nil {
			return err
		}
	}
	return nil
}

func (e *Environment) entriesPath() string { return filepath.Join(e.Dir, entriesFileName) }

func (e *Environment) readEntries() ([]Entry, error) {
	data, err := os.ReadFile(e.entriesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.New(errs.IO, e.entriesPath(), err)
	}
	var entries []Entry
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, Entry{IRI: fields[0], Version: fields[1], Digest: fields[2]})
	}
	return entries, nil
}

func (e *Environment) writeEntries(entries []Entry) error {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IRI != entries[j].IRI {
			return entries[i].IRI < entries[j].IRI
		}
		return entries[i].Version < entries[j].Version
	})

	var sb strings.Builder
	for _, ent := range entries {
		fmt.Fprintf(&sb, "%s %s %s\n", ent.IRI, ent.Version, ent.Digest)
	}

	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return errs.New(errs.IO, e.Dir, err)
	}
	tmp := e.entriesPath() + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return errs.New(errs.IO, tmp, err)
	}
	if err := os.Rename(tmp, e.entriesPath()); err != nil {
		os.Remove(tmp)
		return errs.New(errs.IO, e.entriesPath(), err)
	}
	return nil
}

func (e *Environment) appendEntry(newEntry Entry) error {
	return e.rewriteEntries(func(entries []Entry) []Entry {
		for _, ent := range entries {
			if ent == newEntry {
				return entries
			}
		}
		return append(entries, newEntry)
	})
}

func (e *Environment) rewriteEntries(fn func([]Entry) []Entry) error {
	entries, err := e.readEntries()
	if err != nil {
		return err
	}
	return e.writeEntries(fn(entries))
}
