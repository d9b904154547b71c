// Package config loads the pipeline configuration from a TOML file.
//
// Every value has a default, so a missing file is not an error:
//
//	[github]
//	endpoint = "https://api.github.com/graphql"
//	timeout  = "10s"
//
//	[assets]
//	dir         = "~/.cache/scmenrich/assets"
//	crop_width  = 400
//	crop_height = 400
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
// The GitHub token is deliberately not a configuration value. The CLI reads
// it from GITHUB_TOKEN or --token and hands it to the client.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/scmenrich/pkg/enrich"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
	"github.com/matzehuels/scmenrich/pkg/graph"
	"github.com/matzehuels/scmenrich/pkg/integrations/github"
	"github.com/matzehuels/scmenrich/pkg/preview"
)

// Backend names.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"

	GraphMemory = "memory"
	GraphMongo  = "mongo"
)

type GitHub struct {
	Endpoint string        `toml:"endpoint"`
	Timeout  time.Duration `toml:"timeout"`
}

type Descriptor struct {
	MetadataPath string `toml:"metadata_path"`
	FileName     string `toml:"file_name"`
}

type Social struct {
	CustomImageMarker string `toml:"custom_image_marker"`
}

type Assets struct {
	// Dir is the asset store root. Empty means the user cache directory.
	Dir          string `toml:"dir"`
	FetchPrefix  string `toml:"fetch_prefix"`
	CropPrefix   string `toml:"crop_prefix"`
	SourceMarker string `toml:"source_marker"`
	CropWidth    int    `toml:"crop_width"`
	CropHeight   int    `toml:"crop_height"`
	CropWorkers  int    `toml:"crop_workers"`
}

type Pipeline struct {
	NodeType    string        `toml:"node_type"`
	Concurrency int           `toml:"concurrency"`
	ItemTimeout time.Duration `toml:"item_timeout"`
}

type Cache struct {
	Backend string        `toml:"backend"`
	Dir     string        `toml:"dir"`
	TTL     time.Duration `toml:"ttl"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

type Graph struct {
	Backend         string `toml:"backend"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Config is the complete configuration.
type Config struct {
	GitHub     GitHub     `toml:"github"`
	Descriptor Descriptor `toml:"descriptor"`
	Social     Social     `toml:"social"`
	Assets     Assets     `toml:"assets"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Cache      Cache      `toml:"cache"`
	Graph      Graph      `toml:"graph"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		GitHub: GitHub{
			Endpoint: github.DefaultEndpoint,
			Timeout:  10 * time.Second,
		},
		Descriptor: Descriptor{
			MetadataPath: github.DefaultMetadataPath,
			FileName:     enrich.DefaultDescriptorFile,
		},
		Social: Social{CustomImageMarker: enrich.DefaultCustomImageMarker},
		Assets: Assets{
			CropPrefix:   preview.DefaultCropPrefix,
			SourceMarker: preview.DefaultSourceMarker,
			CropWidth:    preview.DefaultCropWidth,
			CropHeight:   preview.DefaultCropHeight,
			CropWorkers:  2,
		},
		Pipeline: Pipeline{
			NodeType:    extension.DefaultType,
			Concurrency: 4,
			ItemTimeout: time.Minute,
		},
		Cache: Cache{
			Backend:     CacheFile,
			TTL:         24 * time.Hour,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "scmenrich:",
		},
		Graph: Graph{
			Backend:         GraphMemory,
			MongoDatabase:   graph.DefaultMongoDatabase,
			MongoCollection: graph.DefaultMongoCollection,
		},
	}
}

// Load reads path over the defaults. An empty path, or a path that does
// not exist when optional is true, yields the defaults.
func Load(path string, optional bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, scmerrors.Wrap(scmerrors.ErrCodeInvalidConfig, err, "load %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, scmerrors.New(scmerrors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML text over the defaults.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and names the first invalid one.
func (c *Config) Validate() error {
	switch {
	case c.GitHub.Endpoint == "" || scmerrors.ValidateURL(c.GitHub.Endpoint) != nil:
		return invalid("github.endpoint", c.GitHub.Endpoint)
	case c.GitHub.Timeout <= 0:
		return invalid("github.timeout", c.GitHub.Timeout)
	case c.Descriptor.MetadataPath == "" || scmerrors.ValidatePath(c.Descriptor.MetadataPath) != nil:
		return invalid("descriptor.metadata_path", c.Descriptor.MetadataPath)
	case c.Descriptor.FileName == "" || scmerrors.ValidateAssetName(c.Descriptor.FileName) != nil:
		return invalid("descriptor.file_name", c.Descriptor.FileName)
	case c.Social.CustomImageMarker == "":
		return invalid("social.custom_image_marker", c.Social.CustomImageMarker)
	case c.Assets.CropPrefix == "":
		return invalid("assets.crop_prefix", c.Assets.CropPrefix)
	case c.Assets.CropPrefix == c.Assets.FetchPrefix:
		return invalid("assets.crop_prefix", c.Assets.CropPrefix+" (same as assets.fetch_prefix)")
	case c.Assets.SourceMarker == "":
		return invalid("assets.source_marker", c.Assets.SourceMarker)
	case c.Assets.CropWidth <= 0:
		return invalid("assets.crop_width", c.Assets.CropWidth)
	case c.Assets.CropHeight <= 0:
		return invalid("assets.crop_height", c.Assets.CropHeight)
	case c.Assets.CropWorkers <= 0:
		return invalid("assets.crop_workers", c.Assets.CropWorkers)
	case c.Pipeline.NodeType == "":
		return invalid("pipeline.node_type", c.Pipeline.NodeType)
	case c.Pipeline.Concurrency <= 0:
		return invalid("pipeline.concurrency", c.Pipeline.Concurrency)
	case c.Pipeline.ItemTimeout <= 0:
		return invalid("pipeline.item_timeout", c.Pipeline.ItemTimeout)
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return invalid("cache.redis_addr", c.Cache.RedisAddr)
		}
		if c.Cache.RedisPrefix == "" {
			return invalid("cache.redis_prefix", c.Cache.RedisPrefix)
		}
	default:
		return invalid("cache.backend", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return invalid("cache.ttl", c.Cache.TTL)
	}

	switch c.Graph.Backend {
	case GraphMemory:
	case GraphMongo:
		if c.Graph.MongoURI == "" {
			return invalid("graph.mongo_uri", c.Graph.MongoURI)
		}
	default:
		return invalid("graph.backend", c.Graph.Backend)
	}
	return nil
}

func invalid(field string, value any) error {
	return scmerrors.New(scmerrors.ErrCodeInvalidConfig, "invalid %s: %s", field, fmt.Sprint(value))
}

// Naming returns the asset naming convention.
func (c *Config) Naming() preview.Naming {
	return preview.Naming{FetchPrefix: c.Assets.FetchPrefix, CropPrefix: c.Assets.CropPrefix}
}

// CropOptions returns the crop stage options.
func (c *Config) CropOptions() preview.CropOptions {
	return preview.CropOptions{
		Naming:       c.Naming(),
		SourceMarker: c.Assets.SourceMarker,
		Width:        c.Assets.CropWidth,
		Height:       c.Assets.CropHeight,
	}
}

// Enrich returns the resolver configuration.
func (c *Config) Enrich() enrich.Config {
	return enrich.Config{
		NodeType:          c.Pipeline.NodeType,
		DescriptorFile:    c.Descriptor.FileName,
		CustomImageMarker: c.Social.CustomImageMarker,
	}
}

// GitHubClient returns the metadata client configuration for token.
func (c *Config) GitHubClient(token string) github.Config {
	return github.Config{
		Endpoint:     c.GitHub.Endpoint,
		Token:        token,
		MetadataPath: c.Descriptor.MetadataPath,
		Timeout:      c.GitHub.Timeout,
		TTL:          c.Cache.TTL,
	}
}
