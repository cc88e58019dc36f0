// Package workspace locates the project or config root a CLI
// invocation should operate against: the nearest ancestor directory
// (including the starting one) that contains a ".project.json" or a
// "sysand.toml".
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sysand-dev/sysand-go/internal/core/config"
	"github.com/sysand-dev/sysand-go/internal/core/errs"
)

const projectInfoFile = ".project.json"

// Discover walks up from start (a directory) looking for the nearest
// ancestor containing ".project.json" or "sysand.toml", returning its
// absolute path. It fails with InvalidWorkspace if neither marker is
// found before reaching the filesystem root.
func Discover(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", errs.New(errs.IO, start, err)
	}

	dir := abs
	for {
		if hasMarker(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errs.New(errs.InvalidWorkspace, start, fmt.Errorf("no %s or %s found in any ancestor directory", projectInfoFile, config.FileName))
		}
		dir = parent
	}
}

func hasMarker(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, projectInfoFile)); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err == nil {
		return true
	}
	return false
}

// DiscoverFromCwd is the usual entry point: discover starting from the
// process's current working directory.
func DiscoverFromCwd() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", errs.New(errs.IO, "", err)
	}
	return Discover(cwd)
}
