package assets

import (
	"net/http"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/opencontainers/go-digest"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/identity"
)

// index is the in-memory catalog shared by both store implementations.
// The zero value is empty and ready to use.
type index struct {
	mu    sync.RWMutex
	byID  map[string]*Asset
	order []string
}

func (ix *index) get(id string) (*Asset, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	a, ok := ix.byID[id]
	if !ok {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeNotFound, ErrNotFound, "asset %s", id)
	}
	return a.clone(), nil
}

func (ix *index) find(what, value string, match func(*Asset) bool) (*Asset, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	for _, id := range ix.order {
		if a := ix.byID[id]; match(a) {
			return a.clone(), nil
		}
	}
	return nil, scmerrors.Wrap(scmerrors.ErrCodeNotFound, ErrNotFound, "no asset with %s %q", what, value)
}

func (ix *index) findByName(name string) (*Asset, error) {
	return ix.find("name", name, func(a *Asset) bool { return a.Name == name })
}

func (ix *index) findByURL(url string) (*Asset, error) {
	return ix.find("url", url, func(a *Asset) bool { return a.URL != "" && a.URL == url })
}

// list returns assets sorted by name, then id.
func (ix *index) list() []*Asset {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]*Asset, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.byID[id].clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// add inserts a unless an asset with the same id exists. It reports the
// stored asset and whether it was already present.
func (ix *index) add(a *Asset) (*Asset, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if prev, ok := ix.byID[a.ID]; ok {
		return prev.clone(), true
	}
	if ix.byID == nil {
		ix.byID = make(map[string]*Asset)
	}
	ix.byID[a.ID] = a
	ix.order = append(ix.order, a.ID)
	return a.clone(), false
}

func (ix *index) lookup(id string) (*Asset, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	a, ok := ix.byID[id]
	if !ok {
		return nil, false
	}
	return a.clone(), true
}

// describe validates opts and builds the asset record for data, with Path
// relative to the store root.
func describe(data []byte, opts PutOptions, now time.Time) (*Asset, error) {
	if err := scmerrors.ValidateAssetName(opts.Name); err != nil {
		return nil, err
	}
	if opts.URL != "" {
		if err := scmerrors.ValidateURL(opts.URL); err != nil {
			return nil, err
		}
	}

	dg := digest.FromBytes(data)
	hex := dg.Encoded()

	mediaType := opts.MediaType
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}

	return &Asset{
		ID:        identity.AssetID(opts.ParentID, opts.Name, dg.String()),
		Name:      opts.Name,
		Path:      path.Join(hex[:2], hex[2:], opts.Name),
		ParentID:  opts.ParentID,
		URL:       opts.URL,
		MediaType: mediaType,
		Size:      int64(len(data)),
		Digest:    dg.String(),
		CreatedAt: now.UTC(),
	}, nil
}

func verify(a *Asset, data []byte) error {
	d, err := digest.Parse(a.Digest)
	if err != nil {
		return scmerrors.Wrap(scmerrors.ErrCodeStore, err, "asset %s has invalid digest", a.ID)
	}
	v := d.Verifier()
	v.Write(data)
	if !v.Verified() {
		return scmerrors.New(scmerrors.ErrCodeStore, "asset %s content does not match digest %s", a.ID, a.Digest)
	}
	return nil
}
