package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/scmenrich/pkg/cache"
	"github.com/matzehuels/scmenrich/pkg/config"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", "/home/tester")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	expected := filepath.Join("/home/tester", ".cache", "scmenrich")
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != filepath.Join("/tmp/xdg", "scmenrich") {
		t.Errorf("cacheDir() = %q", dir)
	}
}

func TestConfiguredDirs(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/home/tester")

	cfg := config.Default()
	if got := responseCacheDir(cfg); got != filepath.Join("/tmp/xdg", "scmenrich", "http") {
		t.Errorf("responseCacheDir() = %q", got)
	}
	if got := assetsDir(cfg); got != filepath.Join("/tmp/xdg", "scmenrich", "assets") {
		t.Errorf("assetsDir() = %q", got)
	}

	cfg.Cache.Dir = "~/responses"
	cfg.Assets.Dir = "/srv/assets"
	if got := responseCacheDir(cfg); got != filepath.Join("/home/tester", "responses") {
		t.Errorf("responseCacheDir() = %q", got)
	}
	if got := assetsDir(cfg); got != "/srv/assets" {
		t.Errorf("assetsDir() = %q", got)
	}
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()

	c, err := newCache(ctx, cfg, false)
	if err != nil {
		t.Fatalf("newCache() error: %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("file backend gave %T", c)
	}

	c, err = newCache(ctx, cfg, true)
	if err != nil {
		t.Fatalf("newCache(noCache) error: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("--no-cache gave %T", c)
	}

	cfg.Cache.Backend = config.CacheNone
	c, _ = newCache(ctx, cfg, false)
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("none backend gave %T", c)
	}
}

func TestCacheLocation(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Backend = config.CacheRedis
	if got := cacheLocation(cfg); !strings.HasPrefix(got, "redis://localhost:6379/0") {
		t.Errorf("cacheLocation() = %q", got)
	}
	cfg.Cache.Backend = config.CacheNone
	if got := cacheLocation(cfg); got != "none" {
		t.Errorf("cacheLocation() = %q", got)
	}
}

func TestResolveToken(t *testing.T) {
	t.Setenv(tokenEnv, "from-env")
	if got := resolveToken(""); got != "from-env" {
		t.Errorf("resolveToken(\"\") = %q", got)
	}
	if got := resolveToken("from-flag"); got != "from-flag" {
		t.Errorf("resolveToken(flag) = %q", got)
	}
}
