package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/pkg/assist"
	"github.com/matzehuels/wallyscope/pkg/manifest"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// showCommand creates the show command.
func (c *CLI) showCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show [manifest]",
		Short: "Print a manifest as strict TOML sees it",
		Long: `Decode a manifest with a full TOML parser and print its package metadata and
dependency tables. Unlike check, this fails on any TOML syntax error and lists
keys that wally does not recognise.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultManifest
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readManifest(path)
			if err != nil {
				return err
			}
			doc, err := manifest.Decode(text)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			}
			printDocument(out, path, doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decoded manifest as JSON")
	return cmd
}

func printDocument(w io.Writer, path string, doc *manifest.Document) {
	p := doc.Package
	fmt.Fprintln(w, StyleTitle.Render(path))
	printKeyValue(w, "name", p.Name)
	printKeyValue(w, "version", p.Version)
	printKeyValue(w, "realm", orDefault(p.Realm, string(wally.RealmShared)))
	printKeyValue(w, "registry", orDefault(p.Registry, wally.PublicRegistry))
	if p.Description != "" {
		printKeyValue(w, "description", p.Description)
	}
	if p.License != "" {
		printKeyValue(w, "license", p.License)
	}
	if len(p.Authors) > 0 {
		scope, _, _ := strings.Cut(p.Name, "/")
		printKeyValue(w, "authors", assist.FormatAuthors(scope, p.Authors))
	}
	if p.Private {
		printKeyValue(w, "private", "true")
	}

	tables := []struct {
		realm wally.Realm
		deps  map[string]string
	}{
		{wally.RealmShared, doc.Dependencies},
		{wally.RealmServer, doc.ServerDependencies},
		{wally.RealmDev, doc.DevDependencies},
	}
	for _, t := range tables {
		if len(t.deps) == 0 {
			continue
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, StyleTitle.Render("["+t.realm.Section()+"]"))
		aliases := make([]string, 0, len(t.deps))
		for alias := range t.deps {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)
		for _, alias := range aliases {
			printKeyValue(w, alias, t.deps[alias])
		}
	}

	for _, key := range doc.Undecoded {
		printWarning(w, "Unrecognised key %s", key)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
