// Package lockfile reads and writes "sysand-lock.toml": the textual
// serialisation of a pinned dependency graph (spec.md §6), self-
// sufficient to reconstruct the environment it describes.
package lockfile

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/sysand-dev/sysand-go/internal/core/config"
	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/model"
)

// FileName is the lockfile's fixed basename.
const FileName = "sysand-lock.toml"

// Source is one entry in a pinned project's source list, reusing
// config's SourceDescriptor TOML tags so a lockfile source and a
// sysand.toml override source round-trip identically.
type Source = config.SourceDescriptor

// Project is one pinned usage: the concrete identity of an installed
// project plus enough source information to re-fetch it byte-
// identical (spec.md §3's "pinned usage").
type Project struct {
	Identifiers []string       `toml:"identifiers"`
	Version     string         `toml:"version"`
	Checksum    model.Checksum `toml:"checksum"`
	Sources     []Source       `toml:"sources"`
}

// Lockfile is the full pinned graph.
type Lockfile struct {
	Project []Project `toml:"project"`
}

// New returns an empty Lockfile.
func New() *Lockfile { return &Lockfile{} }

// Load reads "<dirPath>/sysand-lock.toml". A missing file is not an
// error; it returns an empty Lockfile, matching config.Load's
// "absence is not failure" convention.
func Load(dirPath string) (*Lockfile, error) {
	path := filepath.Join(dirPath, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, errs.New(errs.IO, path, err)
	}

	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, errs.New(errs.Serialisation, path, err)
	}
	SortDeterministic(&lf)
	return &lf, nil
}

// Save writes lf to "<dirPath>/sysand-lock.toml", sorting it
// deterministically first (spec.md §6: "arrays are sorted
// deterministically"), via a temp-file-then-rename so a reader never
// observes a half-written lockfile.
func Save(dirPath string, lf *Lockfile) error {
	SortDeterministic(lf)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(lf); err != nil {
		return errs.New(errs.Serialisation, dirPath, err)
	}

	path := filepath.Join(dirPath, FileName)
	tmp := path + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errs.New(errs.IO, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.IO, path, err)
	}
	return nil
}

// SortDeterministic orders every project by its first identifier and
// every project's sources/identifiers lists, matching spec.md §6's
// "arrays are sorted deterministically".
func SortDeterministic(lf *Lockfile) {
	sort.Slice(lf.Project, func(i, j int) bool {
		return firstIdentifier(lf.Project[i]) < firstIdentifier(lf.Project[j])
	})
	for i := range lf.Project {
		sort.Strings(lf.Project[i].Identifiers)
		sources := lf.Project[i].Sources
		sort.Slice(sources, func(a, b int) bool {
			return sourceKey(sources[a]) < sourceKey(sources[b])
		})
	}
}

// sourceKey gives a Source a single sortable string: exactly one field
// is set per spec.md §6, so concatenating them with their toml tag as
// a prefix both orders by which field is set and by its value.
func sourceKey(s Source) string {
	return "src_path=" + s.SrcPath +
		"\x00kpar_path=" + s.KparPath +
		"\x00editable=" + s.Editable +
		"\x00remote_src=" + s.RemoteSrc +
		"\x00remote_kpar=" + s.RemoteKpar +
		"\x00remote_git=" + s.RemoteGit +
		"\x00rev=" + s.Rev
}

func firstIdentifier(p Project) string {
	if len(p.Identifiers) == 0 {
		return ""
	}
	ids := append([]string(nil), p.Identifiers...)
	sort.Strings(ids)
	return ids[0]
}

// Find returns the pinned project matching iri, if present.
func (lf *Lockfile) Find(iri string) (Project, bool) {
	for _, p := range lf.Project {
		for _, id := range p.Identifiers {
			if id == iri {
				return p, true
			}
		}
	}
	return Project{}, false
}

// Upsert adds p or replaces the existing entry sharing any identifier
// with p.
func (lf *Lockfile) Upsert(p Project) {
	for i, existing := range lf.Project {
		for _, id := range existing.Identifiers {
			for _, newID := range p.Identifiers {
				if id == newID {
					lf.Project[i] = p
					return
				}
			}
		}
	}
	lf.Project = append(lf.Project, p)
}
