package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/pkg/assist"
	"github.com/matzehuels/wallyscope/pkg/errors"
	"github.com/matzehuels/wallyscope/pkg/manifest"
)

// completeCommand creates the complete command used by editor integrations.
func (c *CLI) completeCommand() *cobra.Command {
	var (
		asJSON   bool
		describe bool
	)

	cmd := &cobra.Command{
		Use:   "complete <manifest> <line:col>",
		Short: "Suggest completions for the dependency at a position",
		Long: `List what could be typed at a position inside a dependency specifier:
authors until the author is complete, then package names, then versions.
Lines and columns are 1-based.

With --describe, print details of the fully specified dependency at the
position instead.`,
		Example: `  wallyscope complete wally.toml 7:22
  wallyscope complete --describe wally.toml 7:12`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			text, err := readManifest(args[0])
			if err != nil {
				return err
			}
			m, err := manifest.Parse(text)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, closeStore := c.openStore(ctx)
			defer closeStore()
			out := cmd.OutOrStdout()

			if describe {
				h, ok := assist.Describe(ctx, store, m, pos)
				if !ok {
					return errors.New(errors.ErrCodeNotFound, "no known package at %s", pos)
				}
				if asJSON {
					return json.NewEncoder(out).Encode(h)
				}
				fmt.Fprint(out, h.Markdown())
				return nil
			}

			candidates := assist.Complete(ctx, store, m, pos)
			if asJSON {
				if candidates == nil {
					candidates = []assist.Candidate{}
				}
				return json.NewEncoder(out).Encode(candidates)
			}
			for _, cand := range candidates {
				fmt.Fprintf(out, "%s\t%s\n", cand.Label, StyleDim.Render(cand.Kind.String()))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&describe, "describe", false, "describe the dependency instead of completing it")
	return cmd
}

// parsePosition reads a 1-based "line:col" into a zero-based position.
func parsePosition(s string) (manifest.Position, error) {
	l, col, ok := strings.Cut(s, ":")
	line, err1 := strconv.Atoi(l)
	column, err2 := strconv.Atoi(col)
	if !ok || err1 != nil || err2 != nil || line < 1 || column < 1 {
		return manifest.Position{}, errors.New(errors.ErrCodeInvalidInput, "position must be line:col with 1-based numbers, got %q", s)
	}
	return manifest.Position{Line: line - 1, Column: column - 1}, nil
}
