// Declare the package name. The main package is special in Go,
// it's where the program execution starts.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/cli/add"
	"github.com/sysand-dev/sysand-go/internal/cli/env"
	"github.com/sysand-dev/sysand-go/internal/cli/exclude"
	"github.com/sysand-dev/sysand-go/internal/cli/include"
	initcmd "github.com/sysand-dev/sysand-go/internal/cli/init"
	"github.com/sysand-dev/sysand-go/internal/cli/info"
	"github.com/sysand-dev/sysand-go/internal/cli/lock"
	"github.com/sysand-dev/sysand-go/internal/cli/remove"
	"github.com/sysand-dev/sysand-go/internal/cli/self"
	"github.com/sysand-dev/sysand-go/internal/cli/sources"
	"github.com/sysand-dev/sysand-go/internal/cli/sync"
)

func main() {
	app := &cli.App{
		Name:    "sysand",
		Usage:   "A package manager for SysML v2 / KerML model interchange projects",
		Version: "v0.1.0",
		Action: func(c *cli.Context) error {
			_ = cli.ShowAppHelp(c)
			return nil
		},
		Commands: []*cli.Command{
			initcmd.Command,
			include.Command,
			exclude.Command,
			add.AddCommand,
			remove.RemoveCommand(),
			lock.Command,
			sources.Command,
			info.Command,
			sync.Command,
			env.Command,
			self.NewSelfCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
