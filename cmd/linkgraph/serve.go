package main

import (
	"fmt"
	"log"
	"log/slog"
	"net"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/recera/linkgraph/internal/server"
	"github.com/recera/linkgraph/pkg/linkindex"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development server",
		Long:  `Serves the link index and its queries, rebuilding and notifying browsers whenever content changes.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)

			// CLI takes precedence
			if host != "" {
				cfg.Serve.Host = host
			}
			if port != 0 {
				cfg.Serve.Port = port
			}

			ctx := cmd.Context()
			index := linkindex.New(linkindex.FileLoader{Path: cfg.Output}, linkindex.WithLogger(slog.Default()))
			srv := server.New(index, server.Config{
				Depth:  cfg.Graph.Depth,
				Width:  cfg.Graph.Width,
				Height: cfg.Graph.Height,
				Graph:  graphOptions(cfg),
			})

			watcher := server.NewWatcher(newIndexer(cfg), cfg.Output, index, srv.Hub())
			log.Printf("🔍 Indexing %s...", cfg.ContentDir)
			artifact, err := watcher.Rebuild(ctx)
			if err != nil {
				return fmt.Errorf("initial index failed: %w", err)
			}
			log.Printf("✅ %d pages, %d links", artifact.Meta.TotalPages, artifact.Meta.TotalLinks)

			addr := net.JoinHostPort(cfg.Serve.Host, strconv.Itoa(cfg.Serve.Port))
			log.Printf("✨ Dev server running at http://%s", addr)
			log.Printf("📈 Metrics at http://%s/metrics", addr)
			log.Printf("👀 Watching %s for changes", cfg.ContentDir)

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(func() error { return watcher.Run(egCtx) })
			eg.Go(func() error { return srv.ListenAndServe(egCtx, addr) })
			err = eg.Wait()
			log.Println("🛑 Dev server stopped")
			return err
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the dev server on (defaults to serve.port)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind the dev server to (defaults to serve.host)")

	return cmd
}
