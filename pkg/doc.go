// Package pkg provides the libraries behind scmenrich, the build-time
// enrichment pipeline for extension catalogs.
//
// # Overview
//
// Each extension record names a source repository. scmenrich asks GitHub for
// that repository's metadata, decides which extension descriptor inside the
// repository belongs to the record, and publishes a source-control record.
// Customized social preview images are fetched into an asset store, and a
// separate crop stage produces the project image the record points at:
//
//	extension records (JSON/YAML)
//	         ↓
//	    [integrations/github] (GraphQL metadata, degraded without a token)
//	         ↓
//	    [enrich] (descriptor rules, social-image heuristic, id and digest)
//	         ↓                       ↘
//	    [graph] (records)         [preview] fetch → [assets] → crop
//	         ↓
//	    [io] export document
//
// The fetch stage predicts the name the crop stage will give its output
// ([preview.Naming]); the record is published with that name before the crop
// exists. [preview.Links] reconciles predictions with actual crop names and
// the [pipeline] patches records whose prediction missed.
//
// # Quick Start
//
//	gh := github.NewClient(cache.NewNullCache(), cache.NewDefaultKeyer(), github.Config{Token: token})
//	runner := pipeline.NewRunner(pipeline.Deps{
//	    Metadata:   gh,
//	    Downloader: integrations.NewClient(nil, "assets", 0, nil),
//	    Assets:     assets.NewMemoryStore(),
//	}, pipeline.Settings{}, logger)
//	summary, err := runner.Run(ctx, exts, pipeline.Options{})
//	doc, err := runner.Export(ctx)
//
// # Main Packages
//
// [extension] - Input records and the published source-control record.
//
// [enrich] - Per-record resolution: descriptor selection, social-image
// heuristic, deterministic id ([identity]) and content digest.
//
// [preview] - Fetch and smart-crop stages and the naming convention they
// share.
//
// [pipeline] - Bounded-concurrency orchestration of a whole run.
//
// ## Infrastructure
//
// [assets] - Content-addressed asset stores (memory, file) with an event feed.
//
// [graph] - Record stores (memory, MongoDB).
//
// [cache] - Response caches (file, Redis, none).
//
// [config] - TOML configuration.
//
// [observability] - Hooks for enrichment, assets, cache and HTTP events.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test -tags integration ./pkg/...  # Include integration tests
//
// [extension]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/extension
// [enrich]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/enrich
// [identity]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/identity
// [preview]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/preview
// [preview.Naming]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/preview#Naming
// [preview.Links]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/preview#Links
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/pipeline
// [assets]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/assets
// [graph]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/graph
// [cache]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/observability
// [io]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/io
// [integrations/github]: https://pkg.go.dev/github.com/matzehuels/scmenrich/pkg/integrations/github
package pkg
