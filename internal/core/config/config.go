// Package config loads and saves sysand.toml: the index list and
// per-project source overrides described in spec.md §6, plus the
// environment-variable overrides that sit above it.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

const FileName = "sysand.toml"

// SourceDescriptor is one entry of a [[project]] table's sources list;
// exactly one field is set, per spec.md §6's toml-tag table.
type SourceDescriptor struct {
	SrcPath    string `toml:"src_path,omitempty"`
	KparPath   string `toml:"kpar_path,omitempty"`
	Editable   string `toml:"editable,omitempty"`
	RemoteSrc  string `toml:"remote_src,omitempty"`
	RemoteKpar string `toml:"remote_kpar,omitempty"`
	RemoteGit  string `toml:"remote_git,omitempty"`
	Rev        string `toml:"rev,omitempty"`
}

// IsZero reports whether no descriptor field was set.
func (d SourceDescriptor) IsZero() bool {
	return d == SourceDescriptor{}
}

// Index is one [[index]] table.
type Index struct {
	URL     string `toml:"url"`
	Default bool   `toml:"default,omitempty"`
}

// ProjectOverride is one [[project]] table: a set of IRIs this config
// resolves via Sources instead of the normal index/fetch path.
type ProjectOverride struct {
	Identifiers []string           `toml:"identifiers"`
	Sources     []SourceDescriptor `toml:"sources"`
}

// Config is the decoded sysand.toml document.
type Config struct {
	Index   []Index           `toml:"index"`
	Project []ProjectOverride `toml:"project"`
}

// Load reads dirPath/sysand.toml. A missing file is not an error; it
// returns a zero-value Config, matching the teacher's pattern of
// treating an absent optional config as empty rather than failing the
// run at start-up.
func Load(dirPath string) (*Config, error) {
	fullPath := filepath.Join(dirPath, FileName)
	data, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, errs.New(errs.IO, fullPath, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errs.New(errs.Serialisation, fullPath, err)
	}
	return &cfg, nil
}

// Save writes cfg to dirPath/sysand.toml via temp-file-then-rename.
func Save(dirPath string, cfg *Config) error {
	buf := new(bytes.Buffer)
	if err := toml.NewEncoder(buf).Encode(cfg); err != nil {
		return errs.New(errs.Serialisation, "", err)
	}

	fullPath := filepath.Join(dirPath, FileName)
	tmp := fullPath + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errs.New(errs.IO, fullPath, err)
	}
	if err := os.Rename(tmp, fullPath); err != nil {
		_ = os.Remove(tmp)
		return errs.New(errs.IO, fullPath, err)
	}
	return nil
}

// FindOverride returns the ProjectOverride whose Identifiers contains
// iri, and whether one was found.
func (c *Config) FindOverride(iri string) (ProjectOverride, bool) {
	for _, p := range c.Project {
		for _, id := range p.Identifiers {
			if id == iri {
				return p, true
			}
		}
	}
	return ProjectOverride{}, false
}

// Env holds the SYSAND_* environment-variable overrides of spec.md §6.
type Env struct {
	Index        []string
	DefaultIndex []string
	NoConfig     bool
	ConfigFile   string
}

// ReadEnv reads the SYSAND_* family from the process environment.
func ReadEnv() Env {
	return Env{
		Index:        splitCommaList(os.Getenv("SYSAND_INDEX")),
		DefaultIndex: splitCommaList(os.Getenv("SYSAND_DEFAULT_INDEX")),
		NoConfig:     os.Getenv("SYSAND_NO_CONFIG") == "true",
		ConfigFile:   os.Getenv("SYSAND_CONFIG_FILE"),
	}
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// BuiltinDefaultIndex is used when no other index source names one.
const BuiltinDefaultIndex = "https://index.sysand.org"

// ResolveIndexes builds the ordered index list per spec.md §4.6:
// command-line, environment (env.Index), config-file non-defaults,
// then config-file defaults, then the environment's default indexes
// (env.DefaultIndex), then the built-in default. cliIndexes is
// passed in by the caller (the CLI layer); this function owns
// everything from the environment down.
func ResolveIndexes(cliIndexes []string, env Env, cfg *Config) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		out = append(out, url)
	}

	for _, u := range cliIndexes {
		add(u)
	}
	for _, u := range env.Index {
		add(u)
	}
	for _, idx := range cfg.Index {
		if !idx.Default {
			add(idx.URL)
		}
	}
	for _, idx := range cfg.Index {
		if idx.Default {
			add(idx.URL)
		}
	}
	for _, u := range env.DefaultIndex {
		add(u)
	}
	add(BuiltinDefaultIndex)

	return out
}
