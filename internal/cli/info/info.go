// Package info implements "sysand info": displaying the current
// project's descriptors.
package info

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/project"
	"github.com/sysand-dev/sysand-go/internal/core/store"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

// Command defines the structure for the "info" command.
var Command = &cli.Command{
	Name:  "info",
	Usage: "Displays the current project's descriptors",
	Action: func(c *cli.Context) error {
		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		p, err := project.Open(c.Context, store.NewLocalDir(root))
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		nameColor := color.New(color.FgMagenta, color.Bold).SprintFunc()
		pathColor := color.New(color.FgHiBlack).SprintFunc()
		headerColor := color.New(color.FgCyan, color.Bold).SprintFunc()

		fmt.Printf("%s@%s %s\n", nameColor(p.Info.Name), p.Info.Version, pathColor(root))
		if p.Info.Description != "" {
			fmt.Println(p.Info.Description)
		}
		if p.Info.License != "" {
			fmt.Printf("license: %s\n", p.Info.License)
		}

		fmt.Println()
		fmt.Println(headerColor("usage:"))
		if len(p.Info.Usage) == 0 {
			fmt.Println("  (none)")
		}
		for _, u := range p.Info.Usage {
			if u.VersionConstraint != "" {
				fmt.Printf("  %s %s\n", u.Resource, u.VersionConstraint)
			} else {
				fmt.Printf("  %s\n", u.Resource)
			}
		}
		return nil
	},
}
