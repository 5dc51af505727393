package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/pkg/assist"
	"github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/registry"
)

// registryCommand creates the registry command group.
func (c *CLI) registryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Query a Wally registry index",
		Long: `Query the configured registry (or the one given with --registry) and its
fallback registries.`,
	}

	cmd.AddCommand(c.registryAuthorsCommand())
	cmd.AddCommand(c.registryPackagesCommand())
	cmd.AddCommand(c.registryVersionsCommand())
	cmd.AddCommand(c.registryInfoCommand())

	return cmd
}

// withClient opens a store, resolves the configured registry and runs fn
// with a spinner on stderr.
func (c *CLI) withClient(cmd *cobra.Command, message string, fn func(ctx context.Context, client *registry.Client) error) error {
	ctx := cmd.Context()
	store, closeStore := c.openStore(ctx)
	defer closeStore()

	client, err := store.Client(c.settings().Registry)
	if err != nil {
		return err
	}

	spinner := newSpinner(ctx, os.Stderr, message)
	spinner.Start()
	err = fn(ctx, client)
	spinner.Stop()
	return err
}

func unavailable(client *registry.Client) error {
	return errors.New(errors.ErrCodeNetwork, "registry %s is unavailable", client.URL())
}

// checkAuthor turns a tri-state lookup into an error for the command line.
func checkAuthor(ctx context.Context, client *registry.Client, author string) error {
	switch client.IsValidAuthor(ctx, author) {
	case registry.Invalid:
		return errors.New(errors.ErrCodeNotFound, "unknown author %q", author)
	case registry.Indeterminate:
		return unavailable(client)
	}
	return nil
}

func checkPackage(ctx context.Context, client *registry.Client, author, name string) error {
	switch client.IsValidPackage(ctx, author, name) {
	case registry.Invalid:
		return errors.New(errors.ErrCodePackageNotFound, "unknown package %s/%s", author, name)
	case registry.Indeterminate:
		return unavailable(client)
	}
	return nil
}

func (c *CLI) registryAuthorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "authors",
		Short: "List every package author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var names []string
			err := c.withClient(cmd, "Reading authors...", func(ctx context.Context, client *registry.Client) error {
				var ok bool
				if names, ok = client.AuthorNames(ctx); !ok {
					return unavailable(client)
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func (c *CLI) registryPackagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "packages <author>",
		Short: "List the packages published by an author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			author := args[0]
			var names []string
			err := c.withClient(cmd, "Reading packages...", func(ctx context.Context, client *registry.Client) error {
				if err := checkAuthor(ctx, client, author); err != nil {
					return err
				}
				var ok bool
				if names, ok = client.PackageNames(ctx, author); !ok {
					return unavailable(client)
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func (c *CLI) registryVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "versions <author/name>",
		Short: "List published versions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			author, name, err := errors.ValidatePackageRef(args[0])
			if err != nil {
				return err
			}

			var versions []string
			var latest string
			err = c.withClient(cmd, "Reading versions...", func(ctx context.Context, client *registry.Client) error {
				if err := checkPackage(ctx, client, author, name); err != nil {
					return err
				}
				var ok bool
				if versions, ok = client.PackageVersions(ctx, author, name); !ok {
					return unavailable(client)
				}
				latest, _ = client.LatestVersion(ctx, author, name)
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, v := range versions {
				if v == latest {
					fmt.Fprintln(out, v+" "+StyleDim.Render("(latest)"))
					continue
				}
				fmt.Fprintln(out, v)
			}
			return nil
		},
	}
}

func (c *CLI) registryInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <author/name[@version]>",
		Short: "Show a published package",
		Long: `Show the published manifest of a package. Without a version the newest stable
release is shown; a partial version such as "1.2" selects the newest release
compatible with it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, version, _ := strings.Cut(args[0], "@")
			author, name, err := errors.ValidatePackageRef(ref)
			if err != nil {
				return err
			}

			var info *registry.PackageVersion
			err = c.withClient(cmd, "Reading package...", func(ctx context.Context, client *registry.Client) error {
				if err := checkPackage(ctx, client, author, name); err != nil {
					return err
				}
				if version == "" {
					latest, ok := client.LatestVersion(ctx, author, name)
					if !ok {
						return unavailable(client)
					}
					version = latest
				}
				var ok bool
				if info, ok = client.FullPackageInfo(ctx, author, name, version); !ok {
					return errors.New(errors.ErrCodePackageNotFound, "no version of %s/%s matches %q", author, name, version)
				}
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			h := assist.NewHover(info)
			fmt.Fprintln(out, StyleTitle.Render(h.Title))
			printKeyValue(out, "package", info.Package.Name)
			printKeyValue(out, "version", h.Version)
			printKeyValue(out, "realm", info.Package.Realm)
			printKeyValue(out, "by", h.Author)
			if h.Description != "" {
				printKeyValue(out, "description", h.Description)
			}
			if info.Package.License != "" {
				printKeyValue(out, "license", info.Package.License)
			}
			if n := len(info.Dependencies) + len(info.ServerDependencies) + len(info.DevDependencies); n > 0 {
				printKeyValue(out, "depends on", plural(n, "package"))
			}
			if h.Link != "" {
				printKeyValue(out, "link", StyleLink.Render(h.Link))
			}
			return nil
		},
	}
}
