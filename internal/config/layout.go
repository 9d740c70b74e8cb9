package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/titanous/json5"
)

// FileNames are the base names of the snapshot files, without extension.
type FileNames struct {
	Totals   string `json:"totals"`
	Regions  string `json:"regions"`
	Testing  string `json:"testing"`
	Combined string `json:"combined"`
}

// Section returns the base name for a page section.
func (f FileNames) Section(s domain.Section) string {
	switch s {
	case domain.SectionTotals:
		return f.Totals
	case domain.SectionRegions:
		return f.Regions
	case domain.SectionTesting:
		return f.Testing
	}
	return ""
}

// Layout describes where data lives on the page and where it is written.
type Layout struct {
	SectionIDs  domain.SectionIDs  `json:"section_ids"`
	FigureOrder domain.FigureOrder `json:"figure_order"`
	FileNames   FileNames          `json:"file_names"`
}

// DefaultLayout returns the identifiers of the current page revision and the
// historical snapshot file names.
func DefaultLayout() Layout {
	return Layout{
		SectionIDs:  domain.DefaultSectionIDs(),
		FigureOrder: domain.DefaultFigureOrder(),
		FileNames: FileNames{
			Totals:   "alberta_total_data",
			Regions:  "alberta_region_data",
			Testing:  "alberta_testing_data",
			Combined: "alberta_all_data",
		},
	}
}

// Merge overlays the non-empty fields and map keys of o onto l.
func (l Layout) Merge(o Layout) (Layout, error) {
	out := Layout{
		SectionIDs:  l.SectionIDs.With(nil),
		FigureOrder: l.FigureOrder.With(nil),
		FileNames:   l.FileNames,
	}
	if err := mergo.Merge(&out, o, mergo.WithOverride); err != nil {
		return Layout{}, fmt.Errorf("merge layout: %w", err)
	}
	return out, nil
}

// Validate checks that every section has an id, figure positions are sane,
// and file names are set.
func (l Layout) Validate() error {
	for _, s := range domain.Sections {
		if _, err := l.SectionIDs.Lookup(s); err != nil {
			return err
		}
		if l.FileNames.Section(s) == "" {
			return fmt.Errorf("no file name configured for section %q", s)
		}
	}
	if l.FileNames.Combined == "" {
		return errors.New("no file name configured for the combined report")
	}
	return l.FigureOrder.Validate()
}

// LoadOverrides reads a JSON5 layout file. Keys absent from the file keep
// their defaults after Merge.
func LoadOverrides(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("read overrides file: %w", err)
	}
	var o Layout
	if err := json5.Unmarshal(data, &o); err != nil {
		return Layout{}, fmt.Errorf("parse overrides file %s: %w", path, err)
	}
	return o, nil
}

// ParseSectionIDs parses "totals=cases,regions=geospatial".
func ParseSectionIDs(raw string) (domain.SectionIDs, error) {
	pairs, err := parsePairs(raw)
	if err != nil {
		return nil, err
	}
	ids := domain.SectionIDs{}
	for k, v := range pairs {
		ids[domain.Section(k)] = v
	}
	return ids, nil
}

// ParseFigureOrder parses "daily_cases=3,case_status=1".
func ParseFigureOrder(raw string) (domain.FigureOrder, error) {
	pairs, err := parsePairs(raw)
	if err != nil {
		return nil, err
	}
	order := domain.FigureOrder{}
	for k, v := range pairs {
		pos, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("figure %q: position %q is not an integer", k, v)
		}
		order[domain.FigureKey(k)] = pos
	}
	return order, nil
}

func loadLayout() (Layout, error) {
	layout := DefaultLayout()

	if path := os.Getenv("OVERRIDES_FILE"); path != "" {
		o, err := LoadOverrides(path)
		if err != nil {
			return Layout{}, err
		}
		if layout, err = layout.Merge(o); err != nil {
			return Layout{}, err
		}
	}

	ids, err := ParseSectionIDs(os.Getenv("SECTION_IDS"))
	if err != nil {
		return Layout{}, fmt.Errorf("invalid SECTION_IDS: %w", err)
	}
	order, err := ParseFigureOrder(os.Getenv("FIGURE_ORDER"))
	if err != nil {
		return Layout{}, fmt.Errorf("invalid FIGURE_ORDER: %w", err)
	}
	return layout.Merge(Layout{SectionIDs: ids, FigureOrder: order})
}

func parsePairs(raw string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			return nil, fmt.Errorf("expected key=value, got %q", part)
		}
		out[k] = v
	}
	return out, nil
}
