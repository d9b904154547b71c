package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scmenrich/pkg/config"
	"github.com/matzehuels/scmenrich/pkg/graph"
	scmio "github.com/matzehuels/scmenrich/pkg/io"
	"github.com/matzehuels/scmenrich/pkg/pipeline"
)

func (c *CLI) cropCommand() *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Crop stored images and close open project-image links",
		Long: `Crop replays every stored asset through the crop stage. Use it after an
interrupted run: records are re-linked to their source images and any record whose
project image does not resolve is patched.

With --export the records are read from (and patched back into) an export document;
otherwise they come from the configured graph backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := newAssetStore(cfg, false)
			if err != nil {
				return err
			}

			var g graph.Store
			if export != "" {
				doc, err := scmio.ImportDocument(export)
				if err != nil {
					store.Close()
					return err
				}
				g = graph.NewMemoryStoreFrom(doc.SourceControlInfo)
			} else if cfg.Graph.Backend == config.GraphMongo {
				if g, err = newGraph(ctx, cfg); err != nil {
					store.Close()
					return err
				}
			} else {
				store.Close()
				return fmt.Errorf("no records: pass --export or configure the mongo graph backend")
			}

			runner := pipeline.NewRunner(pipeline.Deps{Assets: store, Graph: g}, pipeline.Settings{
				Enrich: cfg.Enrich(),
				Crop:   cfg.CropOptions(),
			}, c.Logger)
			defer runner.Close()

			prog := newProgress(c.Logger)
			summary, err := runner.CropExisting(ctx, cfg.Assets.CropWorkers)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Cropped %d images", summary.Cropped))

			if export != "" {
				doc, err := runner.Export(ctx)
				if err != nil {
					return err
				}
				if err := scmio.ExportDocument(doc, export); err != nil {
					return err
				}
			}
			printCropSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&export, "export", "", "export document to read records from and update")
	_ = cmd.MarkFlagFilename("export", "json")
	return cmd
}
