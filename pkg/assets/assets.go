// Package assets stores binary assets under content-addressed paths and
// publishes an event for every write.
//
// An asset is immutable: a second Put of the same bytes under the same name
// and parent returns the existing asset, and derived assets (such as crops)
// are always new assets. Paths follow <root>/<hex[:2]>/<hex[2:]>/<name>, so
// the base name of an asset's path is always its name.
//
// Consumers that react to new assets call [Store.Subscribe] and read
// [Subscription.C] until it is closed.
package assets

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no asset matches a lookup.
var ErrNotFound = errors.New("asset not found")

// Asset describes one stored blob.
type Asset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	ParentID  string    `json:"parentId,omitempty"`
	URL       string    `json:"url,omitempty"`
	MediaType string    `json:"mediaType"`
	Size      int64     `json:"size"`
	Digest    string    `json:"digest"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsImage reports whether the asset has an image media type.
func (a *Asset) IsImage() bool {
	return len(a.MediaType) >= 6 && a.MediaType[:6] == "image/"
}

func (a *Asset) clone() *Asset {
	c := *a
	return &c
}

// PutOptions describe an asset being stored.
type PutOptions struct {
	// Name is the file name; it must be a valid single path element.
	Name string

	// ParentID links the asset to the record that owns it.
	ParentID string

	// URL is the origin the bytes were downloaded from. Empty for derived assets.
	URL string

	// MediaType overrides content sniffing.
	MediaType string
}

// Event announces a Put. Existing is true when the Put matched an asset
// that was already stored.
type Event struct {
	Asset    *Asset
	Existing bool
}

// Store is a content-addressed asset store with a creation-event feed.
type Store interface {
	Put(ctx context.Context, data []byte, opts PutOptions) (*Asset, error)
	Get(ctx context.Context, id string) (*Asset, error)
	FindByName(ctx context.Context, name string) (*Asset, error)
	FindByURL(ctx context.Context, url string) (*Asset, error)
	List(ctx context.Context) ([]*Asset, error)
	Read(ctx context.Context, a *Asset) ([]byte, error)
	Subscribe() *Subscription
	Close() error
}
