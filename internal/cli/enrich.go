package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scmenrich/pkg/cache"
	"github.com/matzehuels/scmenrich/pkg/integrations"
	"github.com/matzehuels/scmenrich/pkg/integrations/github"
	scmio "github.com/matzehuels/scmenrich/pkg/io"
	"github.com/matzehuels/scmenrich/pkg/pipeline"
)

type enrichOptions struct {
	output      string
	token       string
	refresh     bool
	noCache     bool
	dryRun      bool
	concurrency int
}

func (c *CLI) enrichCommand() *cobra.Command {
	var opts enrichOptions

	cmd := &cobra.Command{
		Use:   "enrich <records.{json,yaml}>",
		Short: "Enrich extension records with source-control metadata",
		Long: `Enrich reads extension records, queries each repository on GitHub, fetches and
crops customized social preview images, and writes the export document.

Without a token (--token or ` + tokenEnv + `) records are enriched in degraded mode:
only owner and project are filled in.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: fileArgs(recordFileExts...),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEnrich(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "scmenrich.json", `export file ("-" for stdout)`)
	cmd.Flags().StringVar(&opts.token, "token", "", "GitHub token (default $"+tokenEnv+")")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached metadata")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the metadata cache")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "keep assets and records in memory; write the export to stdout")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "records enriched at once (default from config)")
	_ = cmd.MarkFlagFilename("output", "json")

	return cmd
}

func (c *CLI) runEnrich(cmd *cobra.Command, path string, opts enrichOptions) error {
	ctx := cmd.Context()

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	exts, err := scmio.ImportExtensions(path)
	if err != nil {
		return err
	}
	c.Logger.Debug("loaded records", "file", path, "count", len(exts))

	token := resolveToken(opts.token)
	if token == "" {
		printWarning("No GitHub token: enriching in degraded mode")
	}

	respCache, err := newCache(ctx, cfg, opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer respCache.Close()
	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), cache.Fingerprint(token))

	gh := github.NewClient(respCache, keyer, cfg.GitHubClient(token))
	dl := integrations.NewClient(nil, "assets", 0, nil)
	dl.SetTimeout(cfg.GitHub.Timeout)

	store, err := newAssetStore(cfg, opts.dryRun)
	if err != nil {
		return err
	}
	g, err := newGraph(ctx, cfg)
	if err != nil {
		store.Close()
		return err
	}

	runner := pipeline.NewRunner(pipeline.Deps{
		Metadata:   gh,
		Downloader: dl,
		Assets:     store,
		Graph:      g,
	}, pipeline.Settings{
		Enrich: cfg.Enrich(),
		Crop:   cfg.CropOptions(),
	}, c.Logger)
	defer runner.Close()

	concurrency := opts.concurrency
	if concurrency == 0 {
		concurrency = cfg.Pipeline.Concurrency
	}

	prog := newProgress(c.Logger)
	var spinner *Spinner
	if c.Logger.GetLevel() > LogDebug {
		spinner = newProgressSpinner(ctx, "Enriching", len(exts), "records")
		defer trackEnrichment(c.Logger, spinner)()
		spinner.Start()
	}

	summary, runErr := runner.Run(ctx, exts, pipeline.Options{
		Concurrency: concurrency,
		ItemTimeout: cfg.Pipeline.ItemTimeout,
		CropWorkers: cfg.Assets.CropWorkers,
		Refresh:     opts.refresh,
	})
	if spinner != nil {
		spinner.Stop()
	}
	if summary == nil {
		return runErr
	}
	prog.done(fmt.Sprintf("Enriched %d records", summary.Enriched))

	doc, err := runner.Export(ctx)
	if err != nil {
		return err
	}
	if opts.dryRun || opts.output == "-" {
		// stdout carries the document; the summary goes to the log.
		c.Logger.Info("summary", "enriched", summary.Enriched, "skipped", summary.Skipped,
			"degraded", summary.Degraded, "failed", len(summary.Failed), "cropped", summary.Cropped)
		if err := scmio.WriteDocument(doc, os.Stdout); err != nil {
			return err
		}
		return runErr
	}

	if err := scmio.ExportDocument(doc, opts.output); err != nil {
		return err
	}
	printSummary(summary)
	printFile(opts.output)
	return runErr
}
