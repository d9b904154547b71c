package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/scmenrich/pkg/assets"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
)

const socialURL = "https://repository-images.githubusercontent.com/437045322/foo.png"

// testPNG renders a dark canvas with a bright block off-center.
func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{20, 20, 30, 255}
			if x > w*2/3 && y > h/4 && y < h*3/4 {
				c = color.NRGBA{250, 180, 40, 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeDownloader struct {
	data        []byte
	contentType string
	err         error
}

func (f fakeDownloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	return f.data, f.contentType, f.err
}

func TestFetchedName(t *testing.T) {
	tests := []struct {
		name      string
		naming    Naming
		url       string
		mediaType string
		want      string
	}{
		{"plain", DefaultNaming(), "https://x.githubusercontent.com/1/foo.png", "image/png", "foo.png"},
		{"prefix", Naming{FetchPrefix: "fetch-"}, "https://x.githubusercontent.com/1/foo.png", "image/png", "fetch-foo.png"},
		{"no extension", DefaultNaming(), "https://repository-images.githubusercontent.com/437045322/39ad4dec-e606", "image/jpeg", "39ad4dec-e606.jpg"},
		{"unknown media type", DefaultNaming(), "https://x.githubusercontent.com/1/abc", "image/x-icon", "abc"},
		{"query dropped", DefaultNaming(), "https://x.githubusercontent.com/1/foo.png?v=3", "image/png", "foo.png"},
		{"empty path", DefaultNaming(), "https://x.githubusercontent.com/", "image/png", "image.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.naming.FetchedName(tt.url, tt.mediaType); got != tt.want {
				t.Errorf("FetchedName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCroppedName(t *testing.T) {
	n := DefaultNaming()
	if got := n.CroppedName("/cache/ab/cdef/fetch-foo.png"); got != "smartcrop-fetch-foo.png" {
		t.Errorf("CroppedName() = %q", got)
	}
	if !n.IsCropped("smartcrop-foo.png") || n.IsCropped("foo.png") {
		t.Error("IsCropped mismatch")
	}
}

func TestFetchCropRendezvous(t *testing.T) {
	ctx := context.Background()
	store, err := assets.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	naming := Naming{FetchPrefix: "fetch-", CropPrefix: "smartcrop-"}
	links := NewLinks()

	var resolved []Link
	links.OnResolved = func(_ context.Context, l Link) { resolved = append(resolved, l) }

	fetcher := NewFetcher(fakeDownloader{data: testPNG(t, 120, 60), contentType: "image/png"}, store, links, naming)
	cropper := NewCropper(store, links, CropOptions{Naming: naming, Width: 40, Height: 40}, nil)

	res, err := fetcher.Fetch(ctx, "record-1", socialURL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Asset.Name != "fetch-foo.png" {
		t.Fatalf("fetched name = %q, want fetch-foo.png", res.Asset.Name)
	}
	if res.Asset.ParentID != "record-1" || res.Asset.URL != socialURL {
		t.Errorf("fetched asset = %+v", res.Asset)
	}
	fetcher.Track(ctx, res)

	out, err := cropper.Handle(ctx, res.Asset)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out.Name != res.Predicted {
		t.Errorf("crop name = %q, predicted %q", out.Name, res.Predicted)
	}
	if out.Name != "smartcrop-fetch-foo.png" {
		t.Errorf("crop name = %q", out.Name)
	}
	if out.URL != "" || out.ParentID != res.Asset.ID {
		t.Errorf("crop asset = %+v", out)
	}

	if _, err := store.FindByName(ctx, res.Predicted); err != nil {
		t.Errorf("predicted name does not resolve: %v", err)
	}

	if len(resolved) != 1 || resolved[0].Dangling() {
		t.Errorf("resolved links = %+v", resolved)
	}
	if len(links.Pending()) != 0 {
		t.Errorf("pending = %+v", links.Pending())
	}

	data, _ := store.Read(ctx, out)
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("crop is not a valid image: %v", err)
	}
	if b := img.Bounds(); b.Dx() > 40 || b.Dy() > 40 || b.Dx() < 38 || b.Dy() < 38 {
		t.Errorf("crop bounds = %v, want roughly 40x40", b)
	}

	again, err := cropper.Handle(ctx, res.Asset)
	if err != nil || again.ID != out.ID {
		t.Errorf("second crop = %v, %v; want reuse of %s", again, err, out.ID)
	}
}

// brightPixels counts pixels of the block drawn by testPNG.
func brightPixels(img image.Image) int {
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if r>>8 > 200 && g>>8 > 120 && bl>>8 < 100 {
				n++
			}
		}
	}
	return n
}

func TestCropFollowsSalientRegion(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	defer store.Close()

	src := testPNG(t, 120, 60)
	srcImg, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	total := brightPixels(srcImg)

	a, err := store.Put(ctx, src, assets.PutOptions{Name: "foo.png", URL: socialURL})
	if err != nil {
		t.Fatal(err)
	}
	cropper := NewCropper(store, NewLinks(), CropOptions{Naming: DefaultNaming(), Width: 60, Height: 60}, nil)
	out, err := cropper.Handle(ctx, a)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	data, err := store.Read(ctx, out)
	if err != nil {
		t.Fatal(err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	// A centered 60x60 window keeps about a quarter of the block.
	if kept := brightPixels(img); kept*10 < total*7 {
		t.Errorf("crop kept %d of %d salient pixels, want more than 70%%", kept, total)
	}
}

func TestCropperIgnoresIrrelevantAssets(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	defer store.Close()
	cropper := NewCropper(store, nil, CropOptions{Naming: DefaultNaming()}, nil)

	img := testPNG(t, 30, 30)
	inputs := []assets.PutOptions{
		{Name: "readme.txt", URL: "https://raw.githubusercontent.com/acme/widget/main/README"},
		{Name: "logo.png", URL: "https://example.com/logo.png"},
		{Name: "local.png"},
	}
	datas := [][]byte{[]byte("hello world"), img, img}

	for i, opts := range inputs {
		a, err := store.Put(ctx, datas[i], opts)
		if err != nil {
			t.Fatal(err)
		}
		out, err := cropper.Handle(ctx, a)
		if err != nil || out != nil {
			t.Errorf("%s: Handle = %v, %v; want ignored", opts.Name, out, err)
		}
	}

	all, _ := store.List(ctx)
	if len(all) != len(inputs) {
		t.Errorf("store has %d assets, want %d (no crops)", len(all), len(inputs))
	}
	if s := cropper.Stats(); s.Ignored != 3 || s.Cropped != 0 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestCropperTransformFailure(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	defer store.Close()
	cropper := NewCropper(store, nil, CropOptions{Naming: DefaultNaming()}, nil)

	a, _ := store.Put(ctx, []byte("not really a png"), assets.PutOptions{
		Name: "broken.png", URL: socialURL, MediaType: "image/png",
	})

	_, err := cropper.Handle(ctx, a)
	if !scmerrors.Is(err, scmerrors.ErrCodeTransform) {
		t.Fatalf("Handle error = %v, want TRANSFORM_FAILED", err)
	}
	if _, err := store.FindByName(ctx, "smartcrop-broken.png"); !errors.Is(err, assets.ErrNotFound) {
		t.Error("failed crop should not create an asset")
	}
	if cropper.Stats().Failed != 1 {
		t.Errorf("Stats() = %+v", cropper.Stats())
	}
}

func TestFetcherRejectsNonImage(t *testing.T) {
	store := assets.NewMemoryStore()
	defer store.Close()
	f := NewFetcher(fakeDownloader{data: []byte("<html></html>"), contentType: "text/html"}, store, nil, DefaultNaming())

	_, err := f.Fetch(context.Background(), "r", socialURL)
	if !scmerrors.Is(err, scmerrors.ErrCodeTransform) {
		t.Errorf("Fetch error = %v", err)
	}
}

func TestFetcherPropagatesDownloadError(t *testing.T) {
	store := assets.NewMemoryStore()
	defer store.Close()
	boom := scmerrors.New(scmerrors.ErrCodeNetwork, "boom")
	f := NewFetcher(fakeDownloader{err: boom}, store, nil, DefaultNaming())

	if _, err := f.Fetch(context.Background(), "r", socialURL); !errors.Is(err, boom) {
		t.Errorf("Fetch error = %v", err)
	}
}

func TestFetcherSniffsMissingContentType(t *testing.T) {
	store := assets.NewMemoryStore()
	defer store.Close()
	f := NewFetcher(fakeDownloader{data: testPNG(t, 10, 10)}, store, nil, DefaultNaming())

	res, err := f.Fetch(context.Background(), "r", "https://repository-images.githubusercontent.com/1/abc")
	if err != nil {
		t.Fatal(err)
	}
	if res.Asset.MediaType != "image/png" || res.Asset.Name != "abc.png" {
		t.Errorf("asset = %+v", res.Asset)
	}
	if res.Predicted != "smartcrop-abc.png" {
		t.Errorf("Predicted = %q", res.Predicted)
	}
}

func TestCropperRunOnFeed(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	defer store.Close()
	links := NewLinks()
	cropper := NewCropper(store, links, CropOptions{Naming: DefaultNaming(), Width: 20, Height: 10}, nil)

	sub := store.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cropper.Run(ctx, sub, 2)
	}()

	fetcher := NewFetcher(fakeDownloader{data: testPNG(t, 64, 64), contentType: "image/png"}, store, links, DefaultNaming())
	res, err := fetcher.Fetch(ctx, "r", socialURL)
	if err != nil {
		t.Fatal(err)
	}
	fetcher.Track(ctx, res)
	store.Put(ctx, []byte("plain"), assets.PutOptions{Name: "notes.txt"})

	sub.Close()
	wg.Wait()

	if _, err := store.FindByName(ctx, res.Predicted); err != nil {
		t.Errorf("crop not produced from feed: %v", err)
	}
	l, ok := links.Get(res.Asset.ID)
	if !ok || !l.Complete() || l.Dangling() {
		t.Errorf("link = %+v, %v", l, ok)
	}
	// the crop itself is announced too, and ignored
	if s := cropper.Stats(); s.Cropped != 1 || s.Ignored < 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestLinksEitherOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("expect first", func(t *testing.T) {
		links := NewLinks()
		var got []Link
		links.OnResolved = func(_ context.Context, l Link) { got = append(got, l) }

		links.Expect(ctx, "src", "rec", "smartcrop-a.png")
		if len(links.Pending()) != 1 {
			t.Fatal("expected one pending link")
		}
		links.Resolve(ctx, "src", "smartcrop-a.png")
		links.Resolve(ctx, "src", "smartcrop-a.png")
		if len(got) != 1 || got[0].RecordID != "rec" {
			t.Errorf("OnResolved calls = %+v", got)
		}
	})

	t.Run("crop first", func(t *testing.T) {
		links := NewLinks()
		var got []Link
		links.OnResolved = func(_ context.Context, l Link) { got = append(got, l) }

		links.Resolve(ctx, "src", "smartcrop-b.png")
		if len(links.Pending()) != 0 {
			t.Error("a crop alone is not pending")
		}
		links.Expect(ctx, "src", "rec", "smartcrop-a.png")
		if len(got) != 1 || !got[0].Dangling() {
			t.Errorf("OnResolved calls = %+v", got)
		}
		if d := links.Dangling(); len(d) != 1 || d[0].Actual != "smartcrop-b.png" {
			t.Errorf("Dangling() = %+v", d)
		}
	})
}
