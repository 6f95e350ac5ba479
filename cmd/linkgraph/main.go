package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configDir string
	verbose   bool
}

func newRootCommand() *cobra.Command {
	var g globalFlags

	rootCmd := &cobra.Command{
		Use:   "linkgraph",
		Short: "linkgraph - backlinks and local graphs for markdown sites",
		Long: `linkgraph indexes the internal links of a markdown content tree into a
link index, answers backlink and neighborhood queries against it, and renders
the local graph around a page as SVG, in the terminal, or through a live
development server.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}
	rootCmd.PersistentFlags().StringVarP(&g.configDir, "config", "C", ".", "Directory containing linkgraph.yaml")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	// Add commands
	rootCmd.AddCommand(newIndexCommand(&g))
	rootCmd.AddCommand(newBacklinksCommand(&g))
	rootCmd.AddCommand(newNeighborhoodCommand(&g))
	rootCmd.AddCommand(newEmbedCommand(&g))
	rootCmd.AddCommand(newSnapshotCommand(&g))
	rootCmd.AddCommand(newViewCommand(&g))
	rootCmd.AddCommand(newServeCommand(&g))

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
