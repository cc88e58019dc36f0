package lockfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysand-dev/sysand-go/internal/core/lockfile"
	"github.com/sysand-dev/sysand-go/internal/core/model"
)

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	t.Parallel()
	lf, err := lockfile.Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, lf.Project)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	lf := lockfile.New()
	lf.Upsert(lockfile.Project{
		Identifiers: []string{"urn:kpar:foo", "https://example.com/foo.kpar"},
		Version:     "1.2.3",
		Checksum:    model.Checksum{Value: "deadbeef", Algorithm: model.AlgSHA256},
		Sources: []lockfile.Source{
			{RemoteKpar: "https://example.com/foo.kpar"},
			{SrcPath: "path/to/foo"},
		},
	})

	require.NoError(t, lockfile.Save(dir, lf))

	loaded, err := lockfile.Load(dir)
	require.NoError(t, err)
	require.Len(t, loaded.Project, 1)
	assert.Equal(t, "1.2.3", loaded.Project[0].Version)
	assert.Equal(t, "deadbeef", loaded.Project[0].Checksum.Value)
	assert.ElementsMatch(t, []string{"https://example.com/foo.kpar", "urn:kpar:foo"}, loaded.Project[0].Identifiers)
}

func TestSortDeterministic_OrdersByFirstIdentifier(t *testing.T) {
	t.Parallel()
	lf := &lockfile.Lockfile{
		Project: []lockfile.Project{
			{Identifiers: []string{"urn:kpar:zeta"}},
			{Identifiers: []string{"urn:kpar:alpha"}},
		},
	}
	lockfile.SortDeterministic(lf)
	assert.Equal(t, "urn:kpar:alpha", lf.Project[0].Identifiers[0])
	assert.Equal(t, "urn:kpar:zeta", lf.Project[1].Identifiers[0])
}

func TestUpsert_ReplacesMatchingEntry(t *testing.T) {
	t.Parallel()
	lf := lockfile.New()
	lf.Upsert(lockfile.Project{Identifiers: []string{"urn:kpar:foo"}, Version: "1.0.0"})
	lf.Upsert(lockfile.Project{Identifiers: []string{"urn:kpar:foo"}, Version: "2.0.0"})

	require.Len(t, lf.Project, 1)
	assert.Equal(t, "2.0.0", lf.Project[0].Version)
}

func TestFind(t *testing.T) {
	t.Parallel()
	lf := lockfile.New()
	lf.Upsert(lockfile.Project{Identifiers: []string{"urn:kpar:foo"}, Version: "1.0.0"})

	p, ok := lf.Find("urn:kpar:foo")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", p.Version)

	_, ok = lf.Find("urn:kpar:missing")
	assert.False(t, ok)
}
