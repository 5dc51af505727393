package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/internal/cli"
	"github.com/matzehuels/wallyscope/pkg/errors"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	code := errors.ExitCode(err)
	if code != errors.ExitOK && code != errors.ExitCanceled {
		fmt.Fprintln(os.Stderr, err)
	}
	cancel()
	os.Exit(code)
}

func run(ctx context.Context) error {
	var verbose, quiet bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()
	root.SilenceErrors = true

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	// The flags win over the configured log level, so they apply after setup.
	originalPreRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if originalPreRun != nil {
			if err := originalPreRun(cmd, args); err != nil {
				return err
			}
		}
		switch {
		case verbose:
			c.SetLogLevel(cli.LogDebug)
		case quiet:
			c.SetLogLevel(cli.LogWarn)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}
