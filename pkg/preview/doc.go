// Package preview fetches repository social images and produces
// smart-cropped previews from them.
//
// The two stages run independently. The [Fetcher] downloads an image into
// the asset store and predicts the name its crop will have. The [Cropper]
// watches the store's creation feed and crops every image that came from
// the source-control host, whoever stored it. Both stages derive names
// through the same [Naming], and a [Links] table keyed by source asset id
// records each prediction so the crop can confirm it (or correct it) when
// it lands.
package preview
