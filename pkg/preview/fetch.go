package preview

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/matzehuels/scmenrich/pkg/assets"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/observability"
)

// Downloader fetches the bytes behind a URL.
type Downloader interface {
	Download(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Fetched is the outcome of a fetch: the stored source image and the name
// its crop is predicted to have.
type Fetched struct {
	RecordID  string
	Asset     *assets.Asset
	Predicted string
}

// Fetcher is the asset fetch stage.
type Fetcher struct {
	dl     Downloader
	store  assets.Store
	links  *Links
	naming Naming
}

// NewFetcher creates a fetch stage. links may be nil when nothing tracks
// predictions.
func NewFetcher(dl Downloader, store assets.Store, links *Links, naming Naming) *Fetcher {
	return &Fetcher{dl: dl, store: store, links: links, naming: naming}
}

// Fetch downloads imageURL, stores it as a child of recordID and returns
// the predicted crop name. It does not wait for the crop.
func (f *Fetcher) Fetch(ctx context.Context, recordID, imageURL string) (*Fetched, error) {
	data, contentType, err := f.dl.Download(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	mediaType := parseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, scmerrors.New(scmerrors.ErrCodeTransform, "%s is %s, not an image", imageURL, mediaType)
	}

	a, err := f.store.Put(ctx, data, assets.PutOptions{
		Name:      f.naming.FetchedName(imageURL, mediaType),
		ParentID:  recordID,
		URL:       imageURL,
		MediaType: mediaType,
	})
	if err != nil {
		return nil, err
	}
	observability.Asset().OnFetched(ctx, a.Name, len(data))

	return &Fetched{
		RecordID:  recordID,
		Asset:     a,
		Predicted: f.naming.CroppedName(a.Path),
	}, nil
}

// Track registers the prediction in the link table. Call it once the
// record carrying the prediction has been emitted, so a correction from
// the crop stage always finds the record.
func (f *Fetcher) Track(ctx context.Context, res *Fetched) {
	if f.links == nil || res == nil {
		return
	}
	f.links.Expect(ctx, res.Asset.ID, res.RecordID, res.Predicted)
}

func parseMediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}
