package add_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/cli/add"
	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func runApp(t *testing.T, args ...string) error {
	t.Helper()
	// A no-op ExitErrHandler keeps cli.Exit errors from calling os.Exit,
	// so Run returns them to the test.
	app := &cli.App{Name: "sysand", Commands: []*cli.Command{add.AddCommand}, ExitErrHandler: func(*cli.Context, error) {}}
	return app.Run(append([]string{"sysand"}, args...))
}

func TestAddCommand_AddsUsageWithConstraint(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	_, err := project.Init(ctx, store.NewLocalDir(dir), "demo", "1.0.0")
	require.NoError(t, err)
	chdir(t, dir)

	require.NoError(t, runApp(t, "add", "urn:kpar:other-project", "^1"))

	p, err := project.Open(ctx, store.NewLocalDir(dir))
	require.NoError(t, err)
	require.Len(t, p.Info.Usage, 1)
	assert.Equal(t, "urn:kpar:other-project", p.Info.Usage[0].Resource)
	assert.Equal(t, "^1", p.Info.Usage[0].VersionConstraint)
}

func TestAddCommand_MissingArgumentIsError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	assert.Error(t, runApp(t, "add"))
}

func TestAddCommand_NoProjectIsError(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	assert.Error(t, runApp(t, "add", "urn:kpar:other-project"))
}
