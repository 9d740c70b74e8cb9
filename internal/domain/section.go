package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Section names a logical block of the statistics page.
type Section string

const (
	SectionTotals  Section = "totals"
	SectionRegions Section = "regions"
	SectionTesting Section = "testing"
)

// Sections lists the page sections in extraction order.
var Sections = []Section{SectionTotals, SectionRegions, SectionTesting}

// SectionIDs maps a section to the element id that holds it on the page.
type SectionIDs map[Section]string

// DefaultSectionIDs returns the identifiers used by the current page layout.
func DefaultSectionIDs() SectionIDs {
	return SectionIDs{
		SectionTotals:  "cases",
		SectionRegions: "geospatial",
		SectionTesting: "laboratory-testing",
	}
}

// Lookup returns the element id for s.
func (ids SectionIDs) Lookup(s Section) (string, error) {
	id, ok := ids[s]
	if !ok || id == "" {
		return "", fmt.Errorf("no element id configured for section %q", s)
	}
	return id, nil
}

// With returns a copy of ids with the given keys replaced.
func (ids SectionIDs) With(overrides SectionIDs) SectionIDs {
	out := maps.Clone(ids)
	if out == nil {
		out = SectionIDs{}
	}
	maps.Copy(out, overrides)
	return out
}

// FigureKey names a chart inside the totals section.
type FigureKey string

const (
	FigureCumCases   FigureKey = "cum_cases"
	FigureDailyCases FigureKey = "daily_cases"
	FigureCaseStatus FigureKey = "case_status"
)

// FigureOrder maps a figure to the position of its script within the totals section.
type FigureOrder map[FigureKey]int

// DefaultFigureOrder returns the positions used by the current page layout.
func DefaultFigureOrder() FigureOrder {
	return FigureOrder{
		FigureCumCases:   0,
		FigureDailyCases: 3,
		FigureCaseStatus: 1,
	}
}

// With returns a copy of o with the given keys replaced.
func (o FigureOrder) With(overrides FigureOrder) FigureOrder {
	out := maps.Clone(o)
	if out == nil {
		out = FigureOrder{}
	}
	maps.Copy(out, overrides)
	return out
}

// Validate rejects negative positions and unknown figure keys.
func (o FigureOrder) Validate() error {
	for k, pos := range o {
		switch k {
		case FigureCumCases, FigureDailyCases, FigureCaseStatus:
		default:
			return fmt.Errorf("unknown figure %q", k)
		}
		if pos < 0 {
			return fmt.Errorf("figure %q: negative position %d", k, pos)
		}
	}
	return nil
}

// FileType is an output serialization format.
type FileType string

const (
	FileCSV  FileType = "csv"
	FileJSON FileType = "json"
)

// ParseFileTypes parses a comma-separated list such as "csv,json". An empty
// string or "none" yields no file types, which disables writing.
func ParseFileTypes(raw string) ([]FileType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "none") {
		return nil, nil
	}
	var types []FileType
	for _, part := range strings.Split(raw, ",") {
		ft := FileType(strings.ToLower(strings.TrimSpace(part)))
		switch ft {
		case FileCSV, FileJSON:
		default:
			return nil, fmt.Errorf("unsupported file type %q", part)
		}
		if !slices.Contains(types, ft) {
			types = append(types, ft)
		}
	}
	return types, nil
}

// Document gives access to the inline scripts of a parsed page.
type Document interface {
	// SectionScripts returns the text of every script inside the element
	// with the given id, in document order.
	SectionScripts(id string) ([]string, error)
}
