// Package project_test contains tests for the project package.
package project_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/model"
	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

func TestInit_CreateAndInspect(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()

	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "my_project", p.Info.Name)
	assert.Equal(t, "0.0.1", p.Info.Version)
	assert.Equal(t, []model.Usage{}, p.Info.Usage)
	assert.Empty(t, p.Meta.Index)
	assert.False(t, p.Meta.Created.IsZero())

	reopened, err := project.Open(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, p.Info, reopened.Info)
}

func TestInit_RejectsNonEmptyStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	require.NoError(t, s.Write(ctx, "stray.txt", []byte("x")))

	_, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.Error(t, err)
}

func TestInclude_ChecksumAndSymbolDetection(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	content := []byte("package MyProject;\n")
	require.NoError(t, p.Include(ctx, "MyProject.sysml", content, project.IncludeOptions{Checksum: true, DetectSymbol: true}))

	cs, ok := p.Meta.Checksum["MyProject.sysml"]
	require.True(t, ok)
	assert.Equal(t, model.AlgSHA256, cs.Algorithm)
	assert.Len(t, cs.Value, 64)

	assert.Equal(t, "MyProject.sysml", p.Meta.Index["MyProject"])
}

func TestInclude_NonConformingFileGetsNoIndexEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	require.NoError(t, p.Include(ctx, "notes.txt", []byte("not a package decl\n"), project.IncludeOptions{DetectSymbol: true}))
	assert.Empty(t, p.Meta.Index)
}

func TestExclude_RemovesFileAndMetadata(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	require.NoError(t, p.Include(ctx, "Foo.sysml", []byte("package Foo;\n"), project.IncludeOptions{Checksum: true, DetectSymbol: true}))
	require.NoError(t, p.Exclude(ctx, "Foo.sysml"))

	_, ok := p.Meta.Checksum["Foo.sysml"]
	assert.False(t, ok)
	_, ok = p.Meta.Index["Foo"]
	assert.False(t, ok)

	_, err = s.Read(ctx, "Foo.sysml")
	assert.Error(t, err)
}

func TestMutate_LeavesStoreUntouchedAfterSuccessfulRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	require.NoError(t, p.AddUsage(ctx, "urn:kpar:dep", "^1.0.0"))
	keysBefore, err := s.List(ctx)
	require.NoError(t, err)

	require.NoError(t, p.RemoveUsage(ctx, "urn:kpar:dep"))
	assert.Empty(t, p.Info.Usage)

	keysAfter, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, keysBefore, keysAfter)
}

func TestAddUsage_ReplacesExistingConstraint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	require.NoError(t, p.AddUsage(ctx, "urn:kpar:dep", "^1.0.0"))
	require.NoError(t, p.AddUsage(ctx, "urn:kpar:dep", "^2.0.0"))

	require.Len(t, p.Info.Usage, 1)
	assert.Equal(t, "^2.0.0", p.Info.Usage[0].VersionConstraint)
}

func TestSourceKeys_ExcludesDescriptorsAndLicenses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)

	require.NoError(t, p.Include(ctx, "Foo.sysml", []byte("package Foo;\n"), project.IncludeOptions{}))
	require.NoError(t, s.Write(ctx, "LICENSES/MIT.txt", []byte("...")))

	keys, err := p.SourceKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Foo.sysml"}, keys)
}

func TestCanonicalHash_IsDeterministic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := store.NewMemory()
	p, err := project.Init(ctx, s, "my_project", "0.0.1")
	require.NoError(t, err)
	require.NoError(t, p.Include(ctx, "Foo.sysml", []byte("package Foo;\n"), project.IncludeOptions{Checksum: true}))

	h1, err := p.CanonicalHash(ctx)
	require.NoError(t, err)
	h2, err := p.CanonicalHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}
