package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/recera/linkgraph/cmd/linkgraph/internal/config"
	"github.com/recera/linkgraph/cmd/linkgraph/internal/termview"
	"github.com/recera/linkgraph/pkg/graphviewer"
	"github.com/recera/linkgraph/pkg/linkindex"
)

// noiseFrequency moves through the noise field one unit every 250 frames.
const noiseFrequency = 0.004

// queryFlags select the artifact a query command reads.
type queryFlags struct {
	index string
	depth int
}

func (q *queryFlags) register(cmd *cobra.Command, withDepth bool) {
	cmd.Flags().StringVarP(&q.index, "index", "i", "", "Link index to read (defaults to output)")
	if withDepth {
		cmd.Flags().IntVarP(&q.depth, "depth", "d", 0, "Neighborhood depth (defaults to graph.depth)")
	}
}

// open loads the artifact a query runs against.
func (q *queryFlags) open(ctx context.Context, cfg *config.Config) (*linkindex.Artifact, error) {
	path := cfg.Output
	if q.index != "" {
		path = q.index
	}
	idx := linkindex.New(linkindex.FileLoader{Path: path})
	if err := idx.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to read link index (run `linkgraph index` first): %w", err)
	}
	return idx.Current()
}

func (q *queryFlags) depthOr(cfg *config.Config) int {
	if q.depth > 0 {
		return q.depth
	}
	return cfg.Graph.Depth
}

// pageArg turns a command line page reference into a page id.
func pageArg(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 {
		s = strings.TrimSuffix(s, "/")
	}
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBacklinksCommand(g *globalFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "backlinks <page-id>",
		Short: "List the pages linking to a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)
			a, err := q.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.BacklinksFor(pageArg(args[0])))
		},
	}
	q.register(cmd, false)
	return cmd
}

func newNeighborhoodCommand(g *globalFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "neighborhood <page-id>",
		Short: "Print the local graph around a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)
			a, err := q.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.Neighborhood(pageArg(args[0]), q.depthOr(cfg)))
		},
	}
	q.register(cmd, true)
	return cmd
}

// embedFor builds the per-view payload for id, failing when id is unknown.
func embedFor(a *linkindex.Artifact, id string, depth int) (linkindex.Embed, error) {
	g := a.Neighborhood(id, depth)
	if len(g.Nodes) == 0 {
		return linkindex.Embed{}, fmt.Errorf("page %q is not in the link index", id)
	}
	return linkindex.Embed{Current: id, Graph: g}, nil
}

func newEmbedCommand(g *globalFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "embed <page-id>",
		Short: "Print the graph payload a page embeds for its viewer",
		Long: `Prints {"current": id, "graph": {...}} for the page. Sites place the
graph in a data-graph attribute and the id in data-current.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)
			a, err := q.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			e, err := embedFor(a, pageArg(args[0]), q.depthOr(cfg))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
	q.register(cmd, true)
	return cmd
}

// graphOptions maps the graph section of the config onto viewer options.
func graphOptions(cfg *config.Config) graphviewer.Options {
	opts := graphviewer.Options{Seed: cfg.Graph.Seed}
	if cfg.Graph.Drift == "noise" {
		seed := int64(cfg.Graph.Seed)
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		opts.Drift = graphviewer.NewNoiseDrift(seed, noiseFrequency)
	}
	return opts
}

func newSnapshotCommand(g *globalFlags) *cobra.Command {
	var q queryFlags
	var out, background string
	var width, height float64

	cmd := &cobra.Command{
		Use:   "snapshot <page-id>",
		Short: "Render the local graph around a page as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)
			a, err := q.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			e, err := embedFor(a, pageArg(args[0]), q.depthOr(cfg))
			if err != nil {
				return err
			}
			if width <= 0 {
				width = cfg.Graph.Width
			}
			if height <= 0 {
				height = cfg.Graph.Height
			}
			opts := graphOptions(cfg)
			svg, err := graphviewer.Snapshot(e, width, height, background, &opts)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(svg)
				return err
			}
			if err := os.WriteFile(out, svg, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			log.Printf("🖼  Wrote %s (%d nodes)", out, len(e.Graph.Nodes))
			return nil
		},
	}
	q.register(cmd, true)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	cmd.Flags().Float64Var(&width, "width", 0, "Width in pixels (defaults to graph.width)")
	cmd.Flags().Float64Var(&height, "height", 0, "Height in pixels (defaults to graph.height)")
	cmd.Flags().StringVar(&background, "background", "", "Background color (default transparent)")
	return cmd
}

func newViewCommand(g *globalFlags) *cobra.Command {
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "view <page-id>",
		Short: "Explore the graph around a page in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(g)
			a, err := q.open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return termview.Run(a, pageArg(args[0]), q.depthOr(cfg), graphOptions(cfg))
		},
	}
	q.register(cmd, true)
	return cmd
}
