// Package env implements "sysand env": direct manipulation of the
// local content-addressed environment, independent of the lockfile.
package env

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/sysand-dev/sysand-go/internal/core/config"
	"github.com/sysand-dev/sysand-go/internal/core/credential"
	"github.com/sysand-dev/sysand-go/internal/core/envlock"
	"github.com/sysand-dev/sysand-go/internal/core/environment"
	"github.com/sysand-dev/sysand-go/internal/core/fetcher"
	"github.com/sysand-dev/sysand-go/internal/core/resolver"
	"github.com/sysand-dev/sysand-go/internal/core/workspace"
)

const envDirName = "sysand_env"

func envDir() (string, error) {
	root, err := workspace.DiscoverFromCwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, envDirName), nil
}

func open() (*environment.Environment, error) {
	dir, err := envDir()
	if err != nil {
		return nil, err
	}
	return environment.Open(dir, fetcher.New(dir, credential.NewBrokerFromEnv())), nil
}

// Command groups the "env" subcommands.
var Command = &cli.Command{
	Name:  "env",
	Usage: "Manages the local content-addressed environment",
	Subcommands: []*cli.Command{
		installCommand,
		uninstallCommand,
		listCommand,
	},
}

var installCommand = &cli.Command{
	Name:      "install",
	Usage:     "Installs a project from a local directory, archive, or git repository",
	ArgsUsage: "<iri> <version>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "src-path", Usage: "Local directory source"},
		&cli.StringFlag{Name: "kpar-path", Usage: "Local archive source"},
		&cli.StringFlag{Name: "editable", Usage: "Local directory, opened as an editable source and copied into the environment"},
		&cli.StringFlag{Name: "remote-src", Usage: "HTTP directory source"},
		&cli.StringFlag{Name: "remote-kpar", Usage: "HTTP archive source"},
		&cli.StringFlag{Name: "remote-git", Usage: "Git repository source"},
		&cli.StringFlag{Name: "rev", Usage: "Git revision (with --remote-git)"},
		&cli.BoolFlag{Name: "allow-overwrite", Usage: "Overwrite an existing install at this version"},
		&cli.BoolFlag{Name: "allow-multiple", Usage: "Allow more than one version installed at once"},
		&cli.BoolFlag{Name: "no-deps", Usage: "Skip installing transitive usages"},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() < 2 {
			return cli.Exit("Error: <iri> and <version> arguments are required.", 1)
		}
		resource, version := c.Args().Get(0), c.Args().Get(1)

		desc, err := descriptorFromFlags(c)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		root, err := workspace.DiscoverFromCwd()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		dir := filepath.Join(root, envDirName)
		lock, err := envlock.Acquire(dir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to acquire environment lock: %v", err), 1)
		}
		defer lock.Unlock()

		e := environment.Open(dir, fetcher.New(dir, credential.NewBrokerFromEnv()))
		if !c.Bool("no-deps") {
			r, req, err := resolverFor(root, e.Fetcher)
			if err != nil {
				return cli.Exit(fmt.Sprintf("Error: failed to load %s: %v", config.FileName, err), 1)
			}
			e.Resolver, e.ResolveWith = r, req
		}
		err = e.Install(c.Context, resource, version, desc, environment.InstallOptions{
			AllowOverwrite: c.Bool("allow-overwrite"),
			AllowMultiple:  c.Bool("allow-multiple"),
			NoDeps:         c.Bool("no-deps"),
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		fmt.Printf("Installed %q at %s.\n", resource, version)
		return nil
	},
}

// resolverFor builds a Resolver and its accompanying Request template
// (indexes/overrides, no RootUsages yet) from the project config at
// root, so Install can satisfy its "resolve transitive usages" step.
// Grounded on the same config.Load/config.ResolveIndexes call "lock"
// makes.
func resolverFor(root string, f *fetcher.Fetcher) (*resolver.Resolver, resolver.Request, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, resolver.Request{}, err
	}
	indexes := config.ResolveIndexes(nil, config.ReadEnv(), cfg)
	overrides := map[string][]config.SourceDescriptor{}
	for _, po := range cfg.Project {
		for _, id := range po.Identifiers {
			overrides[id] = po.Sources
		}
	}
	return resolver.New(f), resolver.Request{Indexes: indexes, Overrides: overrides}, nil
}

func descriptorFromFlags(c *cli.Context) (fetcher.Descriptor, error) {
	switch {
	case c.String("src-path") != "":
		return fetcher.LocalDir(c.String("src-path")), nil
	case c.String("kpar-path") != "":
		return fetcher.LocalKpar(c.String("kpar-path")), nil
	case c.String("editable") != "":
		return fetcher.Editable(c.String("editable")), nil
	case c.String("remote-src") != "":
		return fetcher.RemoteDir(c.String("remote-src")), nil
	case c.String("remote-kpar") != "":
		return fetcher.RemoteKpar(c.String("remote-kpar")), nil
	case c.String("remote-git") != "":
		return fetcher.GitRef(c.String("remote-git"), c.String("rev")), nil
	default:
		return fetcher.Descriptor{}, fmt.Errorf("one of --src-path, --kpar-path, --editable, --remote-src, --remote-kpar, --remote-git is required")
	}
}

var uninstallCommand = &cli.Command{
	Name:      "uninstall",
	Usage:     "Removes an installed project",
	ArgsUsage: "<iri> [version]",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 {
			return cli.Exit("Error: <iri> argument is required.", 1)
		}
		resource, version := c.Args().Get(0), c.Args().Get(1)

		dir, err := envDir()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		lock, err := envlock.Acquire(dir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: failed to acquire environment lock: %v", err), 1)
		}
		defer lock.Unlock()

		e := environment.Open(dir, fetcher.New(dir, credential.NewBrokerFromEnv()))
		if err := e.Uninstall(resource, version); err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		fmt.Printf("Uninstalled %q.\n", resource)
		return nil
	},
}

var listCommand = &cli.Command{
	Name:    "list",
	Aliases: []string{"ls"},
	Usage:   "Lists every project installed in the local environment",
	Action: func(c *cli.Context) error {
		e, err := open()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		entries, err := e.List()
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}

		if len(entries) == 0 {
			fmt.Println("No projects installed.")
			return nil
		}

		iriColor := color.New(color.FgWhite).SprintFunc()
		versionColor := color.New(color.FgYellow).SprintFunc()
		digestColor := color.New(color.FgHiBlack).SprintFunc()
		for _, e := range entries {
			fmt.Printf("%s %s %s\n", iriColor(e.IRI), versionColor(e.Version), digestColor(e.Digest))
		}
		return nil
	},
}
