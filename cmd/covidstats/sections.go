package main

import (
	"bytes"
	"os"
	"sort"
	"strings"

	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// notOnPage marks a configured section whose id the page no longer carries.
const notOnPage = "(not on page)"

var sectionsClass string

func init() {
	sectionsCmd.Flags().StringVar(&sectionsClass, "class", source.DefaultSectionClass, "CSS class of candidate section elements.")
	rootCmd.AddCommand(sectionsCmd)
}

var sectionsCmd = &cobra.Command{
	Use:   "sections [--class level2]",
	Short: "Lists the section ids on the statistics page next to the configured ones.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := source.NewClient(cfg.SourceURL, cfg.FetchTimeout, cfg.UserAgent, logger)
		body, err := client.Fetch(cmd.Context())
		if err != nil {
			return fail("fetch failed", err)
		}
		page, err := source.Parse(cmd.Context(), bytes.NewReader(body))
		if err != nil {
			return fail("parse failed", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Configured As", "Heading", "Attributes"})
		t.AppendRows(sectionRows(page.SectionsByClass(sectionsClass), cfg.Layout.SectionIDs))
		t.SetStyle(table.StyleRounded)
		t.Render()
		return nil
	},
}

// sectionRows lists the discovered sections, naming the configured section
// each id serves, followed by configured ids the page does not carry.
func sectionRows(found []source.SectionInfo, ids domain.SectionIDs) []table.Row {
	configured := make(map[string][]string, len(ids))
	for _, s := range domain.Sections {
		if id, ok := ids[s]; ok && id != "" {
			configured[id] = append(configured[id], string(s))
		}
	}

	rows := make([]table.Row, 0, len(found)+len(ids))
	seen := map[string]bool{}
	for _, s := range found {
		seen[s.ID] = true
		rows = append(rows, table.Row{s.ID, strings.Join(configured[s.ID], ","), s.Heading, formatAttrs(s.Attrs)})
	}
	for _, s := range domain.Sections {
		id := ids[s]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, table.Row{id, strings.Join(configured[id], ","), notOnPage, ""})
	}
	return rows
}

func formatAttrs(attrs map[string]string) string {
	pairs := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if k == "id" {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, " ")
}
