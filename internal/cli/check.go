package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/pkg/diagnostics"
	"github.com/matzehuels/wallyscope/pkg/errors"
)

// fileReport is the result for one manifest.
type fileReport struct {
	File     string                `json:"file"`
	Error    string                `json:"error,omitempty"`
	Findings []diagnostics.Finding `json:"findings"`
	Summary  diagnostics.Summary   `json:"summary"`
}

// checkReport is the --json output of the check command.
type checkReport struct {
	Files   []fileReport        `json:"files"`
	Summary diagnostics.Summary `json:"summary"`
}

// checkCommand creates the check command.
func (c *CLI) checkCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check [manifest...]",
		Short: "Check manifests against their registries",
		Long: `Check one or more wally.toml manifests.

Package fields are validated locally; every dependency is resolved against the
manifest's registry and its fallbacks. Registries that cannot be reached are
skipped without reporting findings.

The command exits non-zero when any manifest has error-class findings or
cannot be parsed.`,
		Example: `  wallyscope check
  wallyscope check game/wally.toml lib/wally.toml
  wallyscope check --json > report.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{defaultManifest}
			}
			return c.runCheck(cmd, args, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print findings as JSON")
	return cmd
}

func (c *CLI) runCheck(cmd *cobra.Command, files []string, asJSON bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	out := cmd.OutOrStdout()
	cfg := c.settings()

	if !cfg.Diagnostics.Enabled {
		printInfo(out, "Diagnostics are disabled in the configuration")
		return nil
	}

	store, closeStore := c.openStore(ctx)
	defer closeStore()
	checker := diagnostics.NewChecker(store,
		diagnostics.WithLogger(logger),
		diagnostics.WithConcurrency(cfg.Diagnostics.Concurrency),
	)

	prog := newProgress(logger)
	report := checkReport{Files: make([]fileReport, 0, len(files))}
	failed := 0
	for _, path := range files {
		r := fileReport{File: path, Findings: []diagnostics.Finding{}}
		fs, err := checkFile(cmd, checker, path)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.Error = errors.UserMessage(err)
			failed++
		} else if fs != nil {
			r.Findings = fs
		}
		r.Summary = diagnostics.Summarize(r.Findings)
		report.Summary = report.Summary.Add(r.Summary)
		report.Files = append(report.Files, r)
	}
	prog.done(fmt.Sprintf("Checked %s", plural(len(files), "manifest")))

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	switch {
	case failed > 0:
		return fmt.Errorf("%s could not be checked", plural(failed, "manifest"))
	case report.Summary.Errors > 0:
		return fmt.Errorf("found %s", plural(report.Summary.Errors, "error"))
	}
	return nil
}

func checkFile(cmd *cobra.Command, checker *diagnostics.Checker, path string) ([]diagnostics.Finding, error) {
	text, err := readManifest(path)
	if err != nil {
		return nil, err
	}
	return checker.CheckText(cmd.Context(), text)
}

func readManifest(path string) (string, error) {
	if err := errors.ValidateManifestFilename(filepath.Base(path)); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "%s does not exist", path)
		}
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", path)
	}
	return string(data), nil
}

func printReport(w io.Writer, report checkReport) {
	for _, r := range report.Files {
		if r.Error != "" {
			printError(w, "%s: %s", r.File, r.Error)
			continue
		}
		for _, f := range r.Findings {
			printFinding(w, r.File, f)
		}
	}
	printSummary(w, len(report.Files), report.Summary)
	if report.Summary.Upgrades > 0 {
		printNextStep(w, "Inspect available versions", "wallyscope registry versions <author/name>")
	}
}
