// Package pipeline runs the enrichment pipeline over a batch of records.
//
// A [Runner] wires the stages together:
//
//  1. Enrich: the resolver queries repository metadata and emits one
//     record per repository to the content graph, fetching customized
//     social images into the asset store on the way.
//  2. Crop: the cropper subscribes to the asset store and crops every
//     relevant image as it is stored, independently of enrichment.
//  3. Link: the fetch stage predicts each crop's name; when the crop stage
//     reports the actual name the pending link is closed, and a record
//     whose prediction missed is patched in the graph.
//
// Records are processed concurrently with a per-item timeout. A failing
// record is counted in the [Summary] and never cancels its siblings.
//
// # Usage
//
//	runner := pipeline.NewRunner(pipeline.Deps{
//	    Metadata:   githubClient,
//	    Downloader: httpClient,
//	    Assets:     store,
//	    Graph:      graph.NewMemoryStore(),
//	}, pipeline.Settings{}, logger)
//	summary, err := runner.Run(ctx, exts, pipeline.Options{Concurrency: 8})
package pipeline

import (
	"time"

	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
)

const (
	DefaultConcurrency = 4
	DefaultItemTimeout = time.Minute
	DefaultCropWorkers = 2
)

// Options control one run.
type Options struct {
	// Concurrency bounds the number of records enriched at once.
	Concurrency int

	// ItemTimeout bounds the enrichment of a single record, including its
	// image fetch.
	ItemTimeout time.Duration

	// CropWorkers bounds concurrent crops.
	CropWorkers int

	// Refresh bypasses cached metadata.
	Refresh bool
}

// ValidateAndSetDefaults fills zero values and rejects negative ones.
func (o *Options) ValidateAndSetDefaults() error {
	if o.Concurrency < 0 || o.ItemTimeout < 0 || o.CropWorkers < 0 {
		return scmerrors.New(scmerrors.ErrCodeInvalidInput, "negative pipeline option: %+v", *o)
	}
	if o.Concurrency == 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.ItemTimeout == 0 {
		o.ItemTimeout = DefaultItemTimeout
	}
	if o.CropWorkers == 0 {
		o.CropWorkers = DefaultCropWorkers
	}
	return nil
}
