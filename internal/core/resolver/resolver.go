// Package resolver implements the worklist/backtracking version
// selection algorithm of spec.md §4.8: turning a root project's usage
// list into a fully pinned dependency graph against a set of indexes
// and source overrides.
package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sysand-dev/sysand-go/internal/core/config"
	"github.com/sysand-dev/sysand-go/internal/core/errs"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/index"
	"github.com/sysand-dev/sysand-go/internal/core/iri"
	"github.com/sysand-dev/sysand-go/internal/core/lockfile"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/stdlib"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/version"
)

// Pinned is one resolved node of the dependency graph.
type Pinned struct {
	IRI      string
	Version  string
	Checksum model.Checksum
	Sources  []lockfile.Source
}

// Graph is the resolver's successful output: pinned nodes sorted by
// IRI, per spec.md §4.8 step 7's deterministic tie-break.
type Graph struct {
	Pinned   []Pinned
	Warnings []string
}

// Request is the resolver's input, per spec.md §4.8.
type Request struct {
	RootUsages []model.Usage
	Indexes    []string
	Overrides  map[string][]config.SourceDescriptor
	IncludeStd bool
	NoIndex    bool
}

// Resolver drives the algorithm using Fetcher to materialise
// candidates' ".project.json" so their own usages can join the
// worklist.
type Resolver struct {
	Fetcher *fetcher.Fetcher
}

func New(f *fetcher.Fetcher) *Resolver { return &Resolver{Fetcher: f} }

type candidate struct {
	version  version.Version
	source   lockfile.Source
	checksum model.Checksum
	fetch    func(ctx context.Context) (store.Store, error)
}

type state struct {
	req         Request
	indexes     []*index.Client
	selected    map[string]candidate
	constraints map[string][]string
	warnings    []string
}

// Resolve runs the algorithm described in spec.md §4.8 and returns a
// pinned graph, or an Unsatisfiable error naming the conflicting
// constraints.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Graph, error) {
	st := &state{
		req:         req,
		selected:    map[string]candidate{},
		constraints: map[string][]string{},
	}
	st.req.Overrides = normaliseOverrideKeys(req.Overrides)
	if !req.NoIndex {
		for _, url := range req.Indexes {
			st.indexes = append(st.indexes, index.New(url, r.Fetcher.HTTPClient()))
		}
	}

	for _, usage := range req.RootUsages {
		if err := r.resolveUsage(ctx, st, usage); err != nil {
			return nil, err
		}
	}

	return buildGraph(st), nil
}

func buildGraph(st *state) *Graph {
	g := &Graph{Warnings: st.warnings}
	for id, c := range st.selected {
		g.Pinned = append(g.Pinned, Pinned{
			IRI:      id,
			Version:  c.version.String(),
			Sources:  []lockfile.Source{c.source},
			Checksum: c.checksum,
		})
	}
	sort.Slice(g.Pinned, func(i, j int) bool { return g.Pinned[i].IRI < g.Pinned[j].IRI })
	return g
}

// normaliseOverrideKeys re-keys a source-override map by normalised
// IRI, so a config- or CLI-supplied key (e.g. a mixed-case URN) still
// matches the normalised IRI resolveUsage looks overrides up by. Keys
// that fail to parse are kept as-is rather than dropped.
func normaliseOverrideKeys(overrides map[string][]config.SourceDescriptor) map[string][]config.SourceDescriptor {
	if len(overrides) == 0 {
		return overrides
	}
	out := make(map[string][]config.SourceDescriptor, len(overrides))
	for key, v := range overrides {
		id, err := iri.Parse(key)
		if err != nil {
			out[key] = v
			continue
		}
		out[id.String()] = v
	}
	return out
}

func (r *Resolver) resolveUsage(ctx context.Context, st *state, usage model.Usage) error {
	id, err := iri.Parse(usage.Resource)
	if err != nil {
		return err
	}
	normalised := id.String()

	if !st.req.IncludeStd && stdlib.IsStandard(normalised) {
		st.warnings = append(st.warnings, fmt.Sprintf("skipping standard library %q (include_std is false)", normalised))
		return nil
	}

	prevConstraints := append([]string(nil), st.constraints[normalised]...)
	if usage.VersionConstraint != "" {
		st.constraints[normalised] = append(st.constraints[normalised], usage.VersionConstraint)
	}

	if existing, ok := st.selected[normalised]; ok {
		ok, err := matchesAccumulated(st.constraints[normalised], existing.version)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return errs.New(errs.Unsatisfiable, normalised, fmt.Errorf(
			"already pinned to %s, which does not satisfy %q", existing.version, strings.Join(st.constraints[normalised], " ")))
	}

	candidates, err := r.candidatesFor(ctx, st, normalised)
	if err != nil {
		return err
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].version.Compare(candidates[j].version) > 0 })

	for _, cand := range candidates {
		ok, err := matchesAccumulated(st.constraints[normalised], cand.version)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		fetched, err := cand.fetch(ctx)
		if err != nil {
			continue // try the next candidate; a single source's failure never aborts resolution
		}
		p, err := project.Open(ctx, fetched)
		if err != nil {
			fetched.Close()
			continue
		}
		hash, err := p.CanonicalHash(ctx)
		fetched.Close()
		if err != nil {
			continue
		}

		cand.checksum = model.Checksum{Value: hash, Algorithm: model.AlgSHA256}
		st.selected[normalised] = cand

		if err := r.resolveChildren(ctx, st, p.Info.Usage); err != nil {
			delete(st.selected, normalised)
			continue
		}
		return nil
	}

	st.constraints[normalised] = prevConstraints
	return errs.New(errs.Unsatisfiable, normalised, fmt.Errorf(
		"no candidate version satisfies %q", strings.Join(st.constraints[normalised], " ")))
}

func (r *Resolver) resolveChildren(ctx context.Context, st *state, usages []model.Usage) error {
	for _, child := range usages {
		if err := r.resolveUsage(ctx, st, child); err != nil {
			return err
		}
	}
	return nil
}

func matchesAccumulated(accum []string, v version.Version) (bool, error) {
	if len(accum) == 0 {
		return true, nil
	}
	c, err := version.ParseConstraint(strings.Join(accum, " "))
	if err != nil {
		return false, err
	}
	return c.Matches(v), nil
}

func (r *Resolver) candidatesFor(ctx context.Context, st *state, normalisedIRI string) ([]candidate, error) {
	var out []candidate

	if overrides, ok := st.req.Overrides[normalisedIRI]; ok && len(overrides) > 0 {
		cand, err := r.overrideCandidate(ctx, normalisedIRI, overrides)
		if err != nil {
			return nil, err
		}
		if cand != nil {
			out = append(out, *cand)
		}
		return out, nil
	}

	for _, idx := range st.indexes {
		entries, err := idx.Versions(ctx, normalisedIRI)
		if err != nil {
			continue
		}
		for _, e := range entries {
			v, err := version.Parse(e.Version)
			if err != nil {
				continue
			}
			entry := e
			idxClient := idx
			out = append(out, candidate{
				version: v,
				source:  lockfile.Source{RemoteKpar: idxClient.KparURL(entry.Digest, entry.Version)},
				fetch: func(ctx context.Context) (store.Store, error) {
					return r.Fetcher.Fetch(ctx, fetcher.RemoteKpar(idxClient.KparURL(entry.Digest, entry.Version)))
				},
			})
		}
	}
	return out, nil
}

func (r *Resolver) overrideCandidate(ctx context.Context, normalisedIRI string, overrides []config.SourceDescriptor) (*candidate, error) {
	var lastErr error
	for _, src := range overrides {
		desc, ok := descriptorFromOverride(src)
		if !ok {
			continue
		}
		fetched, err := r.Fetcher.Fetch(ctx, desc)
		if err != nil {
			lastErr = err
			continue
		}
		p, err := project.Open(ctx, fetched)
		if err != nil {
			fetched.Close()
			lastErr = err
			continue
		}
		v, err := version.Parse(p.Info.Version)
		fetched.Close()
		if err != nil {
			lastErr = err
			continue
		}
		overridesCopy := overrides
		return &candidate{
			version: v,
			source:  src,
			fetch: func(ctx context.Context) (store.Store, error) {
				return fetchFirstWorking(ctx, r.Fetcher, overridesCopy)
			},
		}, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable source override for %s", normalisedIRI)
	}
	return nil, errs.New(errs.ResolutionError, normalisedIRI, lastErr)
}

func fetchFirstWorking(ctx context.Context, f *fetcher.Fetcher, overrides []config.SourceDescriptor) (store.Store, error) {
	var lastErr error
	for _, src := range overrides {
		desc, ok := descriptorFromOverride(src)
		if !ok {
			continue
		}
		s, err := f.Fetch(ctx, desc)
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no usable source descriptor")
	}
	return nil, lastErr
}

func descriptorFromOverride(src config.SourceDescriptor) (fetcher.Descriptor, bool) {
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
