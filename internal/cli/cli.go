package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sitecraft/internal/config"
	"github.com/matzehuels/sitecraft/pkg/buildinfo"
	"github.com/matzehuels/sitecraft/pkg/cache"
	"github.com/matzehuels/sitecraft/pkg/editor"
	"github.com/matzehuels/sitecraft/pkg/families"
	"github.com/matzehuels/sitecraft/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "sitecraft"

	// defaultTenant is used when --tenant is not given.
	defaultTenant = "default"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	tenant     string
	backend    string
	storeDir   string
	noCache    bool

	cfg config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Sitecraft edits multi-tenant real-estate websites",
		Long:         `Sitecraft is the editing engine behind tenant websites built from configurable component families. It serves the live editor API and manages tenant pages from the command line.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/sitecraft/config.toml)")
	flags.StringVarP(&c.tenant, "tenant", "t", defaultTenant, "tenant id")
	flags.StringVar(&c.backend, "store", "", "store backend: memory, file or mongo (overrides config)")
	flags.StringVar(&c.storeDir, "store-dir", "", "directory of the file store (overrides config)")
	flags.BoolVar(&c.noCache, "no-cache", false, "bypass the snapshot cache")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.pagesCommand())
	root.AddCommand(c.pageCommand())
	root.AddCommand(c.componentCommand())
	root.AddCommand(c.themeCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.outlineCommand())
	root.AddCommand(c.arrangeCommand())
	root.AddCommand(c.changelogCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.importCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file and applies flag overrides.
func (c *CLI) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.backend != "" {
		cfg.Store.Backend = c.backend
	}
	if c.storeDir != "" {
		cfg.Store.Dir = c.storeDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	cmd.SetContext(log.WithContext(cmd.Context(), c.Logger))
	c.Logger.Debug("config loaded", "store", cfg.Store.Backend, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Gateway Factory
// =============================================================================

// newGateway builds the configured store with retries and the snapshot
// cache in front of it.
func (c *CLI) newGateway(ctx context.Context) (store.Gateway, error) {
	var (
		gw  store.Gateway
		err error
	)
	switch c.cfg.Store.Backend {
	case config.StoreFile:
		gw, err = store.NewFileStore(c.cfg.Store.Dir)
	case config.StoreMongo:
		gw, err = store.NewMongoStore(ctx, store.MongoConfig{
			URI:        c.cfg.Store.MongoURI,
			Database:   c.cfg.Store.MongoDatabase,
			Collection: c.cfg.Store.MongoCollection,
			AppName:    buildinfo.UserAgent(),
		})
	default:
		gw = store.NewMemory()
	}
	if err != nil {
		return nil, err
	}
	gw = store.WithRetry(gw, store.DefaultRetryPolicy)

	cc, err := c.newCache(ctx)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "err", err)
		return gw, nil
	}
	if cc == nil {
		return gw, nil
	}
	opts := store.CachedOptions{TTL: c.cfg.Cache.TTL, Logger: c.Logger}
	if c.cfg.Cache.Prefix != "" {
		opts.Keyer = cache.NewScopedKeyer(nil, c.cfg.Cache.Prefix)
	}
	return store.NewCached(gw, cc, opts), nil
}

// newCache returns the configured snapshot cache, or nil for none.
func (c *CLI) newCache(ctx context.Context) (cache.Cache, error) {
	if c.noCache {
		return nil, nil
	}
	switch c.cfg.Cache.Backend {
	case config.CacheFile:
		dir, err := c.cacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     c.cfg.Cache.RedisAddr,
			Password: c.cfg.Cache.RedisPassword,
			DB:       c.cfg.Cache.RedisDB,
		})
	}
	return nil, nil
}

func (c *CLI) families() *families.Registry { return families.Builtin() }

func (c *CLI) editorOptions() editor.Options {
	opts := c.cfg.EditorOptions()
	opts.Logger = c.Logger
	return opts
}

// openSession loads the selected tenant. The returned close function
// releases the gateway; it does not save.
func (c *CLI) openSession(ctx context.Context) (*editor.Session, func(), error) {
	gw, err := c.newGateway(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := c.editorOptions()
	opts.AutoSave = false
	sess, err := editor.Open(ctx, gw, c.tenant, opts)
	if err != nil {
		_ = gw.Close()
		return nil, nil, err
	}
	return sess, func() { _ = gw.Close() }, nil
}

// mutate loads the tenant, applies fn and saves.
func (c *CLI) mutate(ctx context.Context, fn func(*editor.Session) error) (store.SaveResult, error) {
	sess, closeFn, err := c.openSession(ctx)
	if err != nil {
		return store.SaveResult{}, err
	}
	defer closeFn()

	if err := fn(sess); err != nil {
		return store.SaveResult{}, err
	}
	if c.cfg.Store.Backend == config.StoreMemory {
		printWarning("memory store: changes are discarded on exit (use --store file)")
	}
	p := newProgress(log.FromContext(ctx))
	res, err := sess.Save(ctx)
	if err != nil {
		return res, err
	}
	p.done("Saved tenant " + c.tenant)
	return res, nil
}
