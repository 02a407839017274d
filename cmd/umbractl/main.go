// Command umbractl runs the batch side of umbra: page ingestion, CSV seeding,
// graph builds, layout and gap identification.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"umbra/app"
	"umbra/config"
	graphservice "umbra/pkg/graph/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globals struct {
	dbPath   string
	logLevel string
	progress string
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "umbractl",
		Short:         "Batch tools for the umbra research knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "SQLite database path (overrides DB_PATH)")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		ingestCmd(g),
		seedCmd(g),
		buildGraphCmd(g),
		layoutCmd(g),
		gapsCmd(g),
	)
	return cmd
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, g *globals, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if g.progress != "" {
		cfg.ProgressFile = g.progress
	}
	log := config.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(ctx); err != nil {
			log.Warn("close", "error", err)
		}
	}()
	a.StartJobs(context.Background())
	return fn(cmd.Context(), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ingestCmd(g *globals) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch, parse and store every paper listed in a CSV or XLSX file",
		Long: `Reads title/link rows, fetches each page, extracts metadata, sections and
entities, stores the publication and its section embeddings.

Progress is kept in the progress file; a rerun resumes after the last
processed row.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				rep, err := a.Ingest.Run(ctx, input)
				if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil {
					return perr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "papers.csv", "Source list (.csv or .xlsx)")
	cmd.Flags().StringVar(&g.progress, "progress", "", "Progress file (overrides PROGRESS_FILE)")
	return cmd
}

func seedCmd(g *globals) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed publications from a metadata CSV without fetching pages",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				res, err := a.Ingest.SeedFromCSV(ctx, string(b))
				if err != nil {
					return err
				}
				if err := printJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
				if !res.Success {
					return fmt.Errorf("seed failed: %s", res.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "sources.csv", "CSV with title, authors, abstract, publicationDate, doi, pdfUrl, keywords")
	return cmd
}

func buildGraphCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "build-graph",
		Short: "Rebuild the knowledge graph from completed publications",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				rep, err := a.Graph.Build(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
}

func layoutCmd(g *globals) *cobra.Command {
	var req graphservice.LayoutRequest
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Run the force layout and store node positions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				gr, err := a.Graph.Layout(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"nodes": len(gr.Nodes), "edges": len(gr.Edges)})
			})
		},
	}
	cmd.Flags().Float64Var(&req.Width, "width", 0, "Canvas width (default 800)")
	cmd.Flags().Float64Var(&req.Height, "height", 0, "Canvas height (default 600)")
	cmd.Flags().IntVar(&req.Ticks, "ticks", 0, "Simulation ticks (default 300)")
	cmd.Flags().BoolVar(&req.Reset, "reset", false, "Ignore stored positions of unpinned nodes")
	return cmd
}

func gapsCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "gaps",
		Short: "Ask the model for research gaps in the current graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, g, func(ctx context.Context, a *app.App) error {
				gs, err := a.Gaps.Identify(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), gs)
			})
		},
	}
}
