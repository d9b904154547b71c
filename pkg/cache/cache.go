// Package cache stores upstream API responses between pipeline runs.
//
// A [Cache] maps string keys to byte values with an optional TTL. Three
// backends are provided: [FileCache] for the CLI (hash-sharded JSON files
// under the XDG cache directory), [RedisCache] for shared build machines,
// and [NullCache] when caching is disabled.
//
// Keys are produced by a [Keyer] so every component derives them the same
// way. [ScopedKeyer] prefixes keys with a credential fingerprint so data
// fetched with one token is never served to a run using another.
package cache

import (
	"context"
	"time"
)

// TTLMetadata is the default lifetime of cached repository metadata.
const TTLMetadata = 24 * time.Hour

// Cache is a byte-oriented key/value store with expiry.
type Cache interface {
	// Get returns the value for key. A miss is reported as (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) (int, error)
}

// Keyer derives cache keys.
type Keyer interface {
	// HTTPKey returns the key for a raw HTTP response.
	HTTPKey(namespace, key string) string

	// MetadataKey returns the key for a repository metadata response.
	MetadataKey(owner, project string, opts MetadataKeyOpts) string
}

// MetadataKeyOpts holds the query inputs that change a metadata response.
type MetadataKeyOpts struct {
	ArtifactID   string
	MetadataPath string
	Endpoint     string
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// MetadataKey returns "metadata:<sha256>" over the owner, project and options.
func (DefaultKeyer) MetadataKey(owner, project string, opts MetadataKeyOpts) string {
	return hashKey("metadata", owner, project, opts.ArtifactID, opts.MetadataPath, opts.Endpoint)
}

var _ Keyer = DefaultKeyer{}
