package domain

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Column names produced by the extractors.
const (
	ColumnCumCases   = "cum_cases"
	ColumnDailyCount = "Daily_count"
	ColumnTestCount  = "test_count"
	ColumnTotalTests = "total_tests"
)

// Region column suffixes. The page has published zone series as cumulative
// totals and, in older revisions, as daily new cases.
const (
	RegionCumulative = "cumulative"
	RegionNewCases   = "newCases"
)

var (
	dailyCaseTraces  = []string{"Confirmed", "Probable"}
	caseStatusTraces = []string{"Active", "Died", "Recovered"}
)

// SelectScript returns the script at the position configured for figure.
func SelectScript(scripts []string, order FigureOrder, figure FigureKey) (string, error) {
	pos, ok := order[figure]
	if !ok {
		return "", fmt.Errorf("%w: no position configured for %s", ErrFigureNotFound, figure)
	}
	if pos < 0 || pos >= len(scripts) {
		return "", fmt.Errorf("%w: %s at position %d, section has %d scripts", ErrFigureNotFound, figure, pos, len(scripts))
	}
	return scripts[pos], nil
}

// ExtractCumulative reads the first trace of the cumulative-cases chart.
func ExtractCumulative(p WidgetPayload) (*Table, error) {
	traces := p.Traces()
	if len(traces) == 0 {
		return nil, shapeErrorf(string(FigureCumCases), "payload has no traces")
	}
	s, err := traces[0].Series(ColumnCumCases)
	if err != nil {
		return nil, err
	}
	return s.Table(), nil
}

// ExtractDailyCases reads the Confirmed and Probable traces as
// "{name}_count" and adds their sum as Daily_count.
func ExtractDailyCases(p WidgetPayload) (*Table, error) {
	t, err := categoryTable(p, string(FigureDailyCases), dailyCaseTraces, "count")
	if err != nil {
		return nil, err
	}
	return t.WithColumn(ColumnDailyCount, t.RowSum(ColumnDailyCount).data[ColumnDailyCount])
}

// ExtractCaseStatus reads the Active, Died and Recovered traces as "{name}_cum".
func ExtractCaseStatus(p WidgetPayload) (*Table, error) {
	return categoryTable(p, string(FigureCaseStatus), caseStatusTraces, "cum")
}

// ExtractRegions reads one trace per health zone as "{zone}_{suffix}".
func ExtractRegions(p WidgetPayload, suffix string) (*Table, error) {
	traces := p.Traces()
	if len(traces) == 0 {
		return nil, shapeErrorf(string(SectionRegions), "payload has no zones")
	}
	tables := make([]*Table, 0, len(traces))
	for _, tr := range traces {
		s, err := tr.Series(ZonePrefix(tr.Name) + "_" + suffix)
		if err != nil {
			return nil, err
		}
		tables = append(tables, s.Table())
	}
	return JoinTables(tables...)
}

// ExtractTesting reads the tests-per-day chart. The section must hold exactly one script.
func ExtractTesting(scripts []string) (*Table, error) {
	if len(scripts) != 1 {
		return nil, shapeErrorf(string(SectionTesting), "expected 1 script, found %d", len(scripts))
	}
	p, err := ParseWidget(scripts[0])
	if err != nil {
		return nil, err
	}
	traces := p.Traces()
	if len(traces) == 0 {
		return nil, shapeErrorf(string(SectionTesting), "payload has no traces")
	}
	s, err := traces[0].Series(ColumnTestCount)
	if err != nil {
		return nil, err
	}
	return s.Table(), nil
}

// ZonePrefix strips a trailing " Zone" from a health zone name.
func ZonePrefix(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), " Zone")
}

// categoryTable requires the payload traces to be exactly the expected names,
// in any order, and joins them as "{name}_{suffix}" in expected order.
func categoryTable(p WidgetPayload, source string, expected []string, suffix string) (*Table, error) {
	traces := p.Traces()
	names := make([]string, len(traces))
	for i, tr := range traces {
		names[i] = tr.Name
	}
	got := slices.Clone(names)
	sort.Strings(got)
	want := slices.Clone(expected)
	sort.Strings(want)
	if !slices.Equal(got, want) {
		return nil, shapeErrorf(source, "expected traces %v, found %v", expected, names)
	}

	tables := make([]*Table, 0, len(expected))
	for _, name := range expected {
		tr := traces[slices.Index(names, name)]
		s, err := tr.Series(name + "_" + suffix)
		if err != nil {
			return nil, err
		}
		tables = append(tables, s.Table())
	}
	return JoinTables(tables...)
}
