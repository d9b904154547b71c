package preview

import (
	"bytes"
	"context"
	"image"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"
	"golang.org/x/sync/errgroup"

	// webp decoding for social images uploaded in that format
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/scmenrich/pkg/assets"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/observability"
)

const (
	// DefaultSourceMarker identifies assets downloaded from the
	// source-control host.
	DefaultSourceMarker = "github"

	DefaultCropWidth  = 400
	DefaultCropHeight = 400
)

// CropOptions configure a [Cropper].
type CropOptions struct {
	Naming Naming

	// SourceMarker must occur in an asset's origin URL for it to be cropped.
	SourceMarker string

	// Width and Height set the aspect ratio of the crop and the largest
	// size it is scaled down to.
	Width  int
	Height int
}

func (o *CropOptions) setDefaults() {
	if o.SourceMarker == "" {
		o.SourceMarker = DefaultSourceMarker
	}
	if o.Width <= 0 {
		o.Width = DefaultCropWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultCropHeight
	}
}

// CropStats counts what a [Cropper] has done.
type CropStats struct {
	Cropped int
	Ignored int
	Failed  int
}

// Cropper is the crop stage. It is safe for concurrent use.
type Cropper struct {
	store    assets.Store
	links    *Links
	opts     CropOptions
	logger   *log.Logger
	analyzer smartcrop.Analyzer

	cropped atomic.Int64
	ignored atomic.Int64
	failed  atomic.Int64
}

// NewCropper creates a crop stage writing to store. links may be nil.
func NewCropper(store assets.Store, links *Links, opts CropOptions, logger *log.Logger) *Cropper {
	opts.setDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Cropper{
		store:    store,
		links:    links,
		opts:     opts,
		logger:   logger,
		analyzer: smartcrop.NewAnalyzer(nfnt.NewDefaultResizer()),
	}
}

// Relevant reports whether a is an image that came from the source-control
// host. Crops carry no origin URL, so they are never relevant.
func (c *Cropper) Relevant(a *assets.Asset) bool {
	return a.IsImage() && a.URL != "" && strings.Contains(a.URL, c.opts.SourceMarker)
}

// Handle crops a if it is relevant. It returns (nil, nil) for irrelevant
// assets. An existing crop of the same source is reused.
func (c *Cropper) Handle(ctx context.Context, a *assets.Asset) (*assets.Asset, error) {
	if !c.Relevant(a) {
		c.ignored.Add(1)
		return nil, nil
	}

	start := time.Now()
	name := c.opts.Naming.CroppedName(a.Path)
	out, err := c.crop(ctx, a, name)
	observability.Asset().OnCropped(ctx, a.Name, name, time.Since(start), err)
	if err != nil {
		c.failed.Add(1)
		return nil, err
	}
	c.cropped.Add(1)

	if c.links != nil {
		c.links.Resolve(ctx, a.ID, out.Name)
	}
	return out, nil
}

func (c *Cropper) crop(ctx context.Context, a *assets.Asset, name string) (*assets.Asset, error) {
	if prev, err := c.store.FindByName(ctx, name); err == nil && prev.ParentID == a.ID {
		return prev, nil
	}

	data, err := c.store.Read(ctx, a)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeTransform, err, "decode %s", a.Name)
	}

	rect, err := c.analyzer.FindBestCrop(img, c.opts.Width, c.opts.Height)
	if err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeTransform, err, "analyze %s", a.Name)
	}
	var cropped image.Image = imaging.Crop(img, rect)
	cropped = imaging.Fit(cropped, c.opts.Width, c.opts.Height, imaging.Lanczos)

	format, mediaType := outputFormat(name)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, format, imaging.JPEGQuality(90)); err != nil {
		return nil, scmerrors.Wrap(scmerrors.ErrCodeTransform, err, "encode %s", name)
	}

	return c.store.Put(ctx, buf.Bytes(), assets.PutOptions{
		Name:      name,
		ParentID:  a.ID,
		MediaType: mediaType,
	})
}

// outputFormat keeps the source format where it can be encoded and falls
// back to PNG otherwise. The name never changes, so predictions hold.
func outputFormat(name string) (imaging.Format, string) {
	f, err := imaging.FormatFromFilename(name)
	if err != nil {
		return imaging.PNG, "image/png"
	}
	switch f {
	case imaging.JPEG:
		return f, "image/jpeg"
	case imaging.GIF:
		return f, "image/gif"
	default:
		return imaging.PNG, "image/png"
	}
}

// Run crops assets announced on sub until its channel closes, using at
// most workers goroutines. Failures are logged and counted, never returned.
func (c *Cropper) Run(ctx context.Context, sub *assets.Subscription, workers int) {
	var g errgroup.Group
	g.SetLimit(max(workers, 1))

	for ev := range sub.C {
		a := ev.Asset
		g.Go(func() error {
			if _, err := c.Handle(ctx, a); err != nil {
				c.logger.Warn("crop failed", "asset", a.Name, "code", scmerrors.GetCode(err), "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Stats returns counters accumulated since the cropper was created.
func (c *Cropper) Stats() CropStats {
	return CropStats{
		Cropped: int(c.cropped.Load()),
		Ignored: int(c.ignored.Load()),
		Failed:  int(c.failed.Load()),
	}
}
