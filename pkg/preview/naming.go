package preview

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultCropPrefix is prepended to the names of cropped assets.
const DefaultCropPrefix = "smartcrop-"

// Naming is the convention shared by the fetch and crop stages.
type Naming struct {
	FetchPrefix string
	CropPrefix  string
}

// DefaultNaming returns the standard convention: raw assets keep the URL
// base name, crops are prefixed with [DefaultCropPrefix].
func DefaultNaming() Naming {
	return Naming{CropPrefix: DefaultCropPrefix}
}

var extByMediaType = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tiff",
}

// FetchedName returns the asset name for an image downloaded from rawURL.
// The name is the URL's base name (query and fragment dropped) with the
// fetch prefix. When the base name has no extension one is added from
// mediaType.
func (n Naming) FetchedName(rawURL, mediaType string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	if path.Ext(base) == "" {
		base += extByMediaType[mediaType]
	}
	return n.FetchPrefix + base
}

// CroppedName returns the name of the crop of the asset stored at
// assetPath.
func (n Naming) CroppedName(assetPath string) string {
	return n.CropPrefix + filepath.Base(assetPath)
}

// IsCropped reports whether name follows the crop convention.
func (n Naming) IsCropped(name string) bool {
	return n.CropPrefix != "" && strings.HasPrefix(name, n.CropPrefix)
}
