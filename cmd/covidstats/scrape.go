package main

import (
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/covid-alberta-etl/internal/config"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var scrapeFlags struct {
	fileTypes string
	outputDir string
	sections  map[string]string
	figures   map[string]int
	charts    bool
	summary   bool
}

func init() {
	f := scrapeCmd.Flags()
	f.StringVar(&scrapeFlags.fileTypes, "file-types", "", "Comma separated output formats (csv, json, none).")
	f.StringVar(&scrapeFlags.outputDir, "output-dir", "", "Directory for snapshot files.")
	f.StringToStringVar(&scrapeFlags.sections, "section", nil, "Section id overrides, e.g. totals=cases.")
	f.StringToIntVar(&scrapeFlags.figures, "figure", nil, "Figure position overrides, e.g. daily_cases=3.")
	f.BoolVar(&scrapeFlags.charts, "charts", true, "Render charts after the scrape.")
	f.BoolVar(&scrapeFlags.summary, "summary", false, "Print the latest combined values as a table.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--file-types csv,json] [--output-dir <dir>]",
	Short: "Runs one scrape and writes the snapshot files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyScrapeFlags(cmd); err != nil {
			return fail("invalid flags", err)
		}

		p, cleanup := buildPipeline()
		defer cleanup()

		snap, runErr := p.Run(cmd.Context())

		if cfg.PushgatewayURL != "" {
			if err := observability.Push(cmd.Context(), cfg.PushgatewayURL, prometheus.DefaultGatherer); err != nil {
				logger.Warn("pushgateway push failed", "error", err)
			}
		}
		if runErr != nil {
			return fail("scrape failed", runErr)
		}

		if scrapeFlags.summary {
			printSummary(snap)
		}
		return nil
	},
}

// applyScrapeFlags overlays the flags the user set onto the loaded config.
func applyScrapeFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("file-types") {
		types, err := domain.ParseFileTypes(scrapeFlags.fileTypes)
		if err != nil {
			return err
		}
		cfg.FileTypes = types
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = scrapeFlags.outputDir
	}
	if flags.Changed("charts") {
		cfg.ChartsEnabled = scrapeFlags.charts
	}

	var overrides config.Layout
	if len(scrapeFlags.sections) > 0 {
		overrides.SectionIDs = domain.SectionIDs{}
		for k, v := range scrapeFlags.sections {
			overrides.SectionIDs[domain.Section(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
	if len(scrapeFlags.figures) > 0 {
		overrides.FigureOrder = domain.FigureOrder{}
		for k, v := range scrapeFlags.figures {
			overrides.FigureOrder[domain.FigureKey(strings.TrimSpace(k))] = v
		}
	}
	layout, err := cfg.Layout.Merge(overrides)
	if err != nil {
		return err
	}
	cfg.Layout = layout
	return cfg.Validate()
}

func printSummary(snap domain.Snapshot) {
	combined := snap.Combined
	if combined == nil || combined.Len() == 0 {
		logger.Info("nothing to summarize")
		return
	}
	last := combined.Len() - 1

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Alberta " + combined.Index()[last].Format(domain.DateLayout))
	t.AppendHeader(table.Row{"Column", "Value"})
	for _, c := range combined.Columns() {
		v := combined.Value(last, c)
		if math.IsNaN(v) {
			t.AppendRow(table.Row{c, "-"})
			continue
		}
		t.AppendRow(table.Row{c, v})
	}
	t.AppendFooter(table.Row{"Run", snap.RunID})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
