package environment_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/environment"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/hasher"
	"github.com/sysand-dev/sysand-go/internal/core/iri"
	"github.com/sysand-dev/sysand-go/internal/core/lockfile"
	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

func newTestProject(t *testing.T, dir, name, version string) {
	t.Helper()
	ctx := context.Background()
	s := store.NewLocalDir(dir)
	_, err := project.Init(ctx, s, name, version)
	require.NoError(t, err)
}

func newEnv(t *testing.T) (*environment.Environment, *fetcher.Fetcher) {
	t.Helper()
	f := fetcher.New(t.TempDir(), nil)
	return environment.Open(t.TempDir(), f), f
}

func TestInstall_LocalDir_ThenList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	env, _ := newEnv(t)
	err := env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), environment.InstallOptions{NoDeps: true})
	require.NoError(t, err)

	entries, err := env.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1.0.0", entries[0].Version)

	id, err := iri.Parse("urn:kpar:demo-project")
	require.NoError(t, err)
	assert.Equal(t, hasher.DigestIRI(id.String()), entries[0].Digest)
}

func TestInstall_AlreadyInstalledWithoutOverwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	env, _ := newEnv(t)
	opts := environment.InstallOptions{NoDeps: true}
	require.NoError(t, env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), opts))

	err := env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), opts)
	assert.Error(t, err)
}

func TestInstall_VersionConflictWithoutAllowMultiple(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src1 := t.TempDir()
	newTestProject(t, src1, "demo", "1.0.0")
	src2 := t.TempDir()
	newTestProject(t, src2, "demo", "2.0.0")

	env, _ := newEnv(t)
	opts := environment.InstallOptions{NoDeps: true}
	require.NoError(t, env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src1), opts))

	err := env.Install(ctx, "urn:kpar:demo-project", "2.0.0", fetcher.LocalDir(src2), opts)
	assert.Error(t, err)
}

func TestUninstall_RemovesEntryAndFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	env, _ := newEnv(t)
	opts := environment.InstallOptions{NoDeps: true}
	require.NoError(t, env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), opts))

	require.NoError(t, env.Uninstall("urn:kpar:demo-project", "1.0.0"))

	entries, err := env.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUninstall_MissingTargetIsNotAnError(t *testing.T) {
	t.Parallel()
	env, _ := newEnv(t)
	assert.NoError(t, env.Uninstall("urn:kpar:never-installed", "1.0.0"))
}

func TestSources_ReturnsModelFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	p, err := project.Open(ctx, store.NewLocalDir(src))
	require.NoError(t, err)
	require.NoError(t, p.Include(ctx, "demo.sysml", []byte("package Demo;"), project.IncludeOptions{}))

	env, _ := newEnv(t)
	require.NoError(t, env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), environment.InstallOptions{NoDeps: true}))

	sources, missing, err := env.Sources(ctx, "urn:kpar:demo-project", "1.0.0", environment.SourcesOptions{})
	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, sources, 1)
	assert.Contains(t, sources[0], "demo.sysml")
}

func TestResolveLocked_MatchesByVersion(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	env, _ := newEnv(t)
	require.NoError(t, env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), environment.InstallOptions{NoDeps: true}))

	id, err := iri.Parse("urn:kpar:demo-project")
	require.NoError(t, err)
	ok, err := env.ResolveLocked(ctx, hasher.DigestIRI(id.String()), "1.0.0", model.Checksum{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveLocked_MatchesByCanonicalHashAcrossVersions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	env, _ := newEnv(t)
	require.NoError(t, env.Install(ctx, "urn:kpar:demo-project", "1.0.0", fetcher.LocalDir(src), environment.InstallOptions{NoDeps: true}))

	installedDir := filepath.Join(env.Dir, hasher.DigestIRI(mustIRI(t, "urn:kpar:demo-project")), "1.0.0.kpar")
	p, err := project.Open(ctx, store.NewLocalDir(installedDir))
	require.NoError(t, err)
	hash, err := p.CanonicalHash(ctx)
	require.NoError(t, err)

	id, err := iri.Parse("urn:kpar:demo-project")
	require.NoError(t, err)
	ok, err := env.ResolveLocked(ctx, hasher.DigestIRI(id.String()), "9.9.9", model.Checksum{Value: hash, Algorithm: model.AlgSHA256})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSync_InstallsMissingLockedProjects(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := t.TempDir()
	newTestProject(t, src, "demo", "1.0.0")

	env, _ := newEnv(t)
	lf := lockfile.New()
	lf.Upsert(lockfile.Project{
		Identifiers: []string{"urn:kpar:demo-project"},
		Version:     "1.0.0",
		Sources:     []lockfile.Source{{SrcPath: src}},
	})

	installed, err := env.Sync(ctx, lf)
	require.NoError(t, err)
	assert.Equal(t, []string{"urn:kpar:demo-project"}, installed)

	entries, err := env.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func mustIRI(t *testing.T, raw string) string {
	t.Helper()
	id, err := iri.Parse(raw)
	require.NoError(t, err)
	return id.String()
}
