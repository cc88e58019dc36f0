// Package sync implements "sysand sync": reconciling the local
// environment against sysand-lock.toml.
package sync

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/credential"
	"github.com/sysand-dev/sysand-go/internal/core/envlock"
	"github.com/sysand-dev/sysand-go/internal/core/environment"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/lockfile"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

const envDirName = "sysand_env"

// Command defines the structure for the "sync" command.
var Command = &cli.Command{
	Name:  "sync",
	Usage: "Installs every project pinned in sysand-lock.toml into the local environment",
	Action: func(c *cli.Context) error {
		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		lf, err := lockfile.Load(root)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to load %s: %v", lockfile.FileName, err), 1)
		}

		envDir := filepath.Join(root, envDirName)
		lock, err := envlock.Acquire(envDir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to acquire environment lock: %v", err), 1)
		}
		defer lock.Unlock()

		env := environment.Open(envDir, fetcher.New(envDir, credential.NewBrokerFromEnv()))
		installed, err := env.Sync(c.Context, lf)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: sync failed: %v", err), 1)
		}

		if len(installed) == 0 {
			fmt.Println("Environment already up to date.")
			return nil
		}
		fmt.Printf("Installed %d project(s):\n", len(installed))
		for _, id := range installed {
			fmt.Println(" ", id)
		}
		return nil
	},
}
