package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/scmenrich/internal/server"
	"github.com/matzehuels/scmenrich/pkg/graph"
	scmio "github.com/matzehuels/scmenrich/pkg/io"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:               "serve <export.json>",
		Short:             "Serve an export document and its assets over HTTP",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: fileArgs("json"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			doc, err := scmio.ImportDocument(args[0])
			if err != nil {
				return err
			}
			store, err := newAssetStore(cfg, false)
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(graph.NewMemoryStoreFrom(doc.SourceControlInfo), store,
				server.WithAddr(addr), server.WithLogger(c.Logger))

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			printInfo("Serving %d records on %s", len(doc.SourceControlInfo), StyleLink.Render("http://"+addr))

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}
