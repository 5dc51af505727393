// Package cli implements the wallyscope command-line interface.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/wallyscope/internal/config"
	"github.com/matzehuels/wallyscope/pkg/buildinfo"
	"github.com/matzehuels/wallyscope/pkg/cache"
	"github.com/matzehuels/wallyscope/pkg/observability"
	"github.com/matzehuels/wallyscope/pkg/registry"
)

// =============================================================================
// Constants
// =============================================================================

// defaultManifest is checked when no file is given.
const defaultManifest = "wally.toml"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogWarn  = log.WarnLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	registry   string
	cfg        *config.Config

	// sources builds registry sources; nil means GitHub.
	sources registry.SourceFactory
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "wallyscope",
		Short: "wallyscope checks Wally manifests against their registries",
		Long: `wallyscope validates wally.toml manifests: it checks package fields, resolves every
dependency against the Wally registry index and its fallbacks, and reports
unknown authors, packages and versions, misplaced realms and available upgrades.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/wallyscope/config.toml)")
	root.PersistentFlags().StringVar(&c.registry, "registry", "", "registry to query instead of the configured one")

	root.AddCommand(c.checkCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.registryCommand())
	root.AddCommand(c.completeCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and attaches the logger to the context.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.registry != "" {
		cfg.Registry = c.registry
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if lvl, err := cfg.LogLevel(); err == nil {
		c.SetLogLevel(lvl)
	}
	c.cfg = cfg
	observability.NewLogHooks(c.Logger).Install()
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// settings returns the loaded configuration, or defaults before setup ran.
func (c *CLI) settings() *config.Config {
	if c.cfg == nil {
		c.cfg = config.Default()
	}
	return c.cfg
}

// =============================================================================
// Store Factory
// =============================================================================

// openStore builds the registry store for a command. The returned function
// releases the cache backend.
func (c *CLI) openStore(ctx context.Context) (*registry.Store, func()) {
	cfg := c.settings()

	backend, err := cache.Open(ctx, cfg.Cache.Backend, cfg.CacheOptions())
	if err != nil {
		c.Logger.Warn("Cache unavailable, continuing without it", "backend", cfg.Cache.Backend, "err", err)
		backend = cache.NewNullCache()
	}

	factory := c.sources
	if factory == nil {
		factory = func(token string) registry.Source {
			return registry.NewGitHubSource(registry.WithToken(token))
		}
	}
	cached := func(token string) registry.Source {
		return registry.NewCachedSource(factory(token), backend, c.Logger)
	}

	store := registry.NewStore(cached,
		registry.WithLogger(c.Logger),
		registry.WithNotifier(registry.NewCooldownNotifier(registry.LogNotifier{Logger: c.Logger}, cfg.Notify.Cooldown)),
	)
	if cfg.GitHubToken != "" {
		store.SetAuthToken(ctx, cfg.GitHubToken)
	}
	return store, func() { _ = backend.Close() }
}
