// Package cli implements the scmenrich command-line interface.
//
// # Commands
//
//   - enrich: enrich a record file and write the export document
//   - crop: replay stored assets through the crop stage
//   - serve: serve an export document and its assets over HTTP
//   - cache: manage the metadata response cache
//
// All commands accept --verbose (-v) for debug logging, which also logs
// every HTTP request, cache lookup and pipeline event.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/scmenrich/pkg/assets"
	"github.com/matzehuels/scmenrich/pkg/buildinfo"
	"github.com/matzehuels/scmenrich/pkg/cache"
	"github.com/matzehuels/scmenrich/pkg/config"
	"github.com/matzehuels/scmenrich/pkg/graph"
)

const (
	// appName is the application name used for directories and display.
	appName = "scmenrich"

	// tokenEnv names the environment variable holding the GitHub token.
	tokenEnv = "GITHUB_TOKEN"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	c := &CLI{Logger: newLogger(w, level)}
	installLogHooks(c.Logger)
	return c
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "scmenrich enriches extension catalogs with source-control metadata",
		Long: `scmenrich reads extension records, looks up each extension's GitHub repository,
and writes enriched source-control records together with cropped preview images.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+defaultConfigPath()+")")
	_ = root.MarkPersistentFlagFilename("config", "toml")

	root.AddCommand(c.enrichCommand())
	root.AddCommand(c.cropCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads --config, or the default path if it exists.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.configPath != "" {
		return config.Load(c.configPath, false)
	}
	return config.Load(defaultConfigPath(), true)
}

// =============================================================================
// Backends
// =============================================================================

func newCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.CacheNone:
		return cache.NewNullCache(), nil
	case config.CacheRedis:
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		c, err := cache.NewFileCache(responseCacheDir(cfg))
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func newGraph(ctx context.Context, cfg *config.Config) (graph.Store, error) {
	if cfg.Graph.Backend == config.GraphMongo {
		g, err := graph.NewMongoStore(ctx, graph.MongoConfig{
			URI:        cfg.Graph.MongoURI,
			Database:   cfg.Graph.MongoDatabase,
			Collection: cfg.Graph.MongoCollection,
		})
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return graph.NewMemoryStore(), nil
}

func newAssetStore(cfg *config.Config, inMemory bool) (assets.Store, error) {
	if inMemory {
		return assets.NewMemoryStore(), nil
	}
	s, err := assets.NewFileStore(assetsDir(cfg))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/scmenrich/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

func responseCacheDir(cfg *config.Config) string {
	if cfg.Cache.Dir != "" {
		return expandHome(cfg.Cache.Dir)
	}
	dir, err := cacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "http")
	}
	return filepath.Join(dir, "http")
}

func assetsDir(cfg *config.Config) string {
	if cfg.Assets.Dir != "" {
		return expandHome(cfg.Assets.Dir)
	}
	dir, err := cacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName, "assets")
	}
	return filepath.Join(dir, "assets")
}

// defaultConfigPath returns ~/.config/scmenrich/config.toml, honoring
// XDG_CONFIG_HOME.
func defaultConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName+".toml")
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// resolveToken prefers the flag over the environment.
func resolveToken(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(tokenEnv)
}
