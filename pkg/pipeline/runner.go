package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/scmenrich/pkg/assets"
	"github.com/matzehuels/scmenrich/pkg/enrich"
	scmerrors "github.com/matzehuels/scmenrich/pkg/errors"
	"github.com/matzehuels/scmenrich/pkg/extension"
	"github.com/matzehuels/scmenrich/pkg/graph"
	scmio "github.com/matzehuels/scmenrich/pkg/io"
	"github.com/matzehuels/scmenrich/pkg/observability"
	"github.com/matzehuels/scmenrich/pkg/preview"
)

// Deps are the collaborators of a [Runner].
type Deps struct {
	Metadata   enrich.MetadataSource
	Downloader preview.Downloader
	Assets     assets.Store
	Graph      graph.Store
}

// Settings hold the policies of the stages. Zero values take the stage
// defaults. The fetch and crop stages share Crop.Naming.
type Settings struct {
	Enrich enrich.Config
	Crop   preview.CropOptions
}

// Runner executes the pipeline. A Runner may execute several runs, one at
// a time.
type Runner struct {
	Assets assets.Store
	Graph  graph.Store
	Logger *log.Logger

	resolver *enrich.Resolver
	fetcher  *preview.Fetcher
	cropper  *preview.Cropper
	links    *preview.Links
}

// NewRunner creates a runner. A nil graph uses a [graph.MemoryStore]; a nil
// logger uses the default logger.
func NewRunner(d Deps, s Settings, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if d.Graph == nil {
		d.Graph = graph.NewMemoryStore()
	}
	if s.Crop.Naming == (preview.Naming{}) {
		s.Crop.Naming = preview.DefaultNaming()
	}

	r := &Runner{
		Assets: d.Assets,
		Graph:  d.Graph,
		Logger: logger,
		links:  preview.NewLinks(),
	}
	r.links.OnResolved = r.onResolved
	r.fetcher = preview.NewFetcher(d.Downloader, d.Assets, r.links, s.Crop.Naming)
	r.cropper = preview.NewCropper(d.Assets, r.links, s.Crop, logger)
	r.resolver = enrich.NewResolver(d.Metadata, r.fetcher, d.Graph, s.Enrich, logger)
	return r
}

// Links returns the pending-link table.
func (r *Runner) Links() *preview.Links { return r.links }

// Run enriches exts. Item failures are reported in the summary; Run itself
// fails only on invalid options or when ctx is cancelled.
func (r *Runner) Run(ctx context.Context, exts []*extension.Extension, opts Options) (*Summary, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	start := time.Now()
	summary := &Summary{Total: len(exts)}
	statsBefore := r.cropper.Stats()

	sub := r.Assets.Subscribe()
	cropDone := make(chan struct{})
	go func() {
		defer close(cropDone)
		r.cropper.Run(ctx, sub, opts.CropWorkers)
	}()

	// Records are resolved concurrently but published in input order:
	// extensions sharing a repository share a record id, and the last one
	// in input order must win on every run.
	type outcome struct {
		res *enrich.Result
		err error
	}
	outcomes := make([]outcome, len(exts))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for i, ext := range exts {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
			defer cancel()

			res, err := r.resolver.Resolve(itemCtx, ext, opts.Refresh)
			outcomes[i] = outcome{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	owners := make(map[string]string)
	for i, ext := range exts {
		o := outcomes[i]
		if o.res == nil && o.err == nil {
			// Never started: the run was cancelled.
			continue
		}
		if o.err == nil {
			o.err = r.resolver.Publish(ctx, o.res)
		}
		if o.err == nil && !o.res.Skipped {
			if prev, ok := owners[o.res.Info.ID]; ok {
				r.Logger.Warn("extensions share a repository, later record replaces earlier",
					"record", o.res.Info.ID, "replaced", prev, "by", ext.Label())
			}
			owners[o.res.Info.ID] = ext.Label()
		}
		r.record(summary, ext, o.res, o.err)
	}

	// Stored images are queued on sub; closing it lets the cropper drain
	// them and stop.
	sub.Close()
	<-cropDone

	summary.addCropStats(statsBefore, r.cropper.Stats())
	summary.Pending = r.links.Pending()
	summary.Dangling = r.links.Dangling()
	summary.Duration = time.Since(start)

	r.Logger.Info("enrichment finished",
		"total", summary.Total,
		"enriched", summary.Enriched,
		"degraded", summary.Degraded,
		"skipped", summary.Skipped,
		"failed", len(summary.Failed),
		"cropped", summary.Cropped,
		"duration", summary.Duration)

	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (r *Runner) record(s *Summary, ext *extension.Extension, res *enrich.Result, err error) {
	if err != nil {
		code := scmerrors.GetCode(err)
		s.Failed = append(s.Failed, Failure{Extension: ext.Label(), Code: code, Err: err})
		if scmerrors.IsContractViolation(err) {
			r.Logger.Error("unexpected metadata response", "extension", ext.Label(), "code", code, "err", err)
		} else {
			r.Logger.Warn("enrichment failed", "extension", ext.Label(), "code", code, "err", err)
		}
		return
	}
	switch {
	case res.Skipped:
		s.Skipped++
		return
	case res.Degraded:
		s.Degraded++
	}
	s.Enriched++
	if res.Image != nil {
		s.Fetched++
	}
}

// onResolved patches a record whose predicted project image differs from
// the crop that was actually produced.
func (r *Runner) onResolved(ctx context.Context, l preview.Link) {
	if !l.Dangling() {
		return
	}
	observability.Asset().OnDangling(ctx, l.RecordID, l.Predicted, l.Actual)
	r.Logger.Error("project image does not resolve, patching record",
		"record", l.RecordID, "predicted", l.Predicted, "actual", l.Actual)

	// The link may complete after the item deadline that tracked it.
	if err := r.Graph.SetProjectImage(context.WithoutCancel(ctx), l.RecordID, l.Actual); err != nil {
		r.Logger.Error("patch project image", "record", l.RecordID, "err", err)
	}
}

// CropExisting re-links every record with a social image to its stored
// source asset and replays all stored assets through the crop stage. It
// closes links left open by an interrupted run.
func (r *Runner) CropExisting(ctx context.Context, workers int) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}
	statsBefore := r.cropper.Stats()

	recs, err := r.Graph.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if rec.SocialImage == "" || rec.ProjectImage == "" {
			continue
		}
		src, err := r.Assets.FindByURL(ctx, rec.SocialImage)
		if err != nil {
			r.Logger.Warn("social image not in asset store", "record", rec.ID, "url", rec.SocialImage)
			continue
		}
		r.links.Expect(ctx, src.ID, rec.ID, rec.ProjectImage)
	}

	all, err := r.Assets.List(ctx)
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for _, a := range all {
		g.Go(func() error {
			if _, err := r.cropper.Handle(ctx, a); err != nil {
				r.Logger.Warn("crop failed", "asset", a.Name, "code", scmerrors.GetCode(err), "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.addCropStats(statsBefore, r.cropper.Stats())
	summary.Pending = r.links.Pending()
	summary.Dangling = r.links.Dangling()
	summary.Duration = time.Since(start)
	return summary, ctx.Err()
}

// Export snapshots the graph and the asset store.
func (r *Runner) Export(ctx context.Context) (*scmio.Document, error) {
	recs, err := r.Graph.List(ctx)
	if err != nil {
		return nil, err
	}
	files, err := r.Assets.List(ctx)
	if err != nil {
		return nil, err
	}
	return scmio.NewDocument(recs, files), nil
}

// Close releases the graph and the asset store.
func (r *Runner) Close() error {
	gerr := r.Graph.Close()
	aerr := r.Assets.Close()
	if gerr != nil {
		return gerr
	}
	return aerr
}
