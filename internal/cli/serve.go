package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/internal/server"
	"github.com/matzehuels/wallyscope/pkg/diagnostics"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the check and registry API over HTTP",
		Long: `Start an HTTP server exposing manifest checks and registry lookups.

Routes:
  GET  /healthz
  POST /v1/check
  GET  /v1/authors
  GET  /v1/authors/{author}/packages
  GET  /v1/authors/{author}/packages/{name}
  GET  /v1/authors/{author}/packages/{name}/versions

Registry routes accept ?registry= to query a registry other than the
configured one. Use the redis cache backend to share fetched registry content
between several instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.settings()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			store, closeStore := c.openStore(ctx)
			defer closeStore()

			checker := diagnostics.NewChecker(store,
				diagnostics.WithLogger(c.Logger),
				diagnostics.WithConcurrency(cfg.Diagnostics.Concurrency),
			)
			srv := server.New(store,
				server.WithLogger(c.Logger),
				server.WithDefaultRegistry(cfg.Registry),
				server.WithChecker(checker),
			)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
