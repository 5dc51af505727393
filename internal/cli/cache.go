package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/pkg/cache"
	"github.com/matzehuels/wallyscope/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the registry content cache",
		Long: `Registry subtrees and blobs are cached by their Git object id, so cached
entries never go stale. Clearing the cache only costs a slower next run.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached registry content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.settings()
			out := cmd.OutOrStdout()
			if cfg.Cache.Backend != cache.BackendFile {
				return errors.New(errors.ErrCodeInvalidConfig, "cache clear only supports the file backend, configured backend is %q", cfg.Cache.Backend)
			}

			fc, err := cache.NewFileCache(cfg.Cache.Dir)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			count, err := fc.Clear()
			if err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			if count == 0 {
				printInfo(out, "Cache is empty")
				return nil
			}
			printSuccess(out, "Cleared %d cached entries", count)
			printDetail(out, "Directory: %s", fc.Dir())
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.settings().Cache.Dir)
			return nil
		},
	}
}
