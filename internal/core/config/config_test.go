package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	tempDir := t.TempDir()
	content := `
[[index]]
url = "https://index.example.com"
default = true

[[project]]
identifiers = ["urn:kpar:foo"]
sources = [
  { remote_kpar = "https://example.com/foo.kpar" },
  { src_path = "path/to/foo" },
]
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, FileName), []byte(content), 0644))

	cfg, err := Load(tempDir)
	require.NoError(t, err)
	require.Len(t, cfg.Index, 1)
	assert.Equal(t, "https://index.example.com", cfg.Index[0].URL)
	assert.True(t, cfg.Index[0].Default)

	require.Len(t, cfg.Project, 1)
	assert.Equal(t, []string{"urn:kpar:foo"}, cfg.Project[0].Identifiers)
	require.Len(t, cfg.Project[0].Sources, 2)
	assert.Equal(t, "https://example.com/foo.kpar", cfg.Project[0].Sources[0].RemoteKpar)
	assert.Equal(t, "path/to/foo", cfg.Project[0].Sources[1].SrcPath)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, cfg.Index)
}

func TestLoad_InvalidFormat(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, FileName), []byte("[[index\nurl="), 0644))
	_, err := Load(tempDir)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	tempDir := t.TempDir()
	cfg := &Config{
		Index: []Index{{URL: "https://a.example.com", Default: true}},
		Project: []ProjectOverride{{
			Identifiers: []string{"urn:kpar:bar"},
			Sources:     []SourceDescriptor{{Editable: "../bar"}},
		}},
	}
	require.NoError(t, Save(tempDir, cfg))

	loaded, err := Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Index, loaded.Index)
	assert.Equal(t, cfg.Project, loaded.Project)
}

func TestFindOverride(t *testing.T) {
	cfg := &Config{Project: []ProjectOverride{{Identifiers: []string{"urn:kpar:foo"}}}}
	_, ok := cfg.FindOverride("urn:kpar:foo")
	assert.True(t, ok)
	_, ok = cfg.FindOverride("urn:kpar:missing")
	assert.False(t, ok)
}

func TestResolveIndexes_Order(t *testing.T) {
	cfg := &Config{Index: []Index{
		{URL: "https://cfg-default.example.com", Default: true},
		{URL: "https://cfg-nondefault.example.com"},
	}}
	env := Env{Index: []string{"https://env.example.com"}, DefaultIndex: []string{"https://env-default.example.com"}}

	got := ResolveIndexes([]string{"https://cli.example.com"}, env, cfg)
	assert.Equal(t, []string{
		"https://cli.example.com",
		"https://env.example.com",
		"https://cfg-nondefault.example.com",
		"https://cfg-default.example.com",
		"https://env-default.example.com",
		BuiltinDefaultIndex,
	}, got)
}

func TestResolveIndexes_Dedup(t *testing.T) {
	cfg := &Config{}
	env := Env{}
	got := ResolveIndexes([]string{BuiltinDefaultIndex}, env, cfg)
	assert.Equal(t, []string{BuiltinDefaultIndex}, got)
}
