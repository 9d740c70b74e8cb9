package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
)

// TransformOptions locates the page data and parameterizes derived columns.
type TransformOptions struct {
	SectionIDs   domain.SectionIDs
	FigureOrder  domain.FigureOrder
	RegionSeries string
	Window       int
}

// SectionTransformer implements Transformer by extracting and normalizing
// each page section, then building the combined report.
type SectionTransformer struct {
	opts   TransformOptions
	logger *slog.Logger
}

// NewTransformer creates a SectionTransformer.
func NewTransformer(opts TransformOptions, logger *slog.Logger) *SectionTransformer {
	if opts.RegionSeries == "" {
		opts.RegionSeries = domain.RegionCumulative
	}
	return &SectionTransformer{opts: opts, logger: logger}
}

// Transform extracts every section and the combined report. The first
// failing section aborts the transform.
func (t *SectionTransformer) Transform(ctx context.Context, doc domain.Document) (domain.Snapshot, error) {
	totals, err := t.Totals(doc, nil)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	regions, err := t.Regions(doc)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	labs, err := t.Testing(doc)
	if err != nil {
		return domain.Snapshot{}, err
	}

	combined, err := domain.BuildReport(totals, regions, labs, domain.ReportOptions{
		RegionSuffix: t.opts.RegionSeries,
		Window:       t.opts.Window,
	})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("combined report: %w", err)
	}
	return domain.Snapshot{Totals: totals, Regions: regions, Testing: labs, Combined: combined}, nil
}

// Totals extracts the cumulative, daily and case-status charts. overrides
// replace individual figure positions for this call only.
func (t *SectionTransformer) Totals(doc domain.Document, overrides domain.FigureOrder) (*domain.Table, error) {
	scripts, err := t.scripts(doc, domain.SectionTotals)
	if err != nil {
		return nil, err
	}
	order := t.opts.FigureOrder.With(overrides)

	extractors := []struct {
		figure  domain.FigureKey
		extract func(domain.WidgetPayload) (*domain.Table, error)
	}{
		{domain.FigureCumCases, domain.ExtractCumulative},
		{domain.FigureDailyCases, domain.ExtractDailyCases},
		{domain.FigureCaseStatus, domain.ExtractCaseStatus},
	}
	tables := make([]*domain.Table, 0, len(extractors))
	for _, e := range extractors {
		script, err := domain.SelectScript(scripts, order, e.figure)
		if err != nil {
			return nil, sectionError(domain.SectionTotals, err)
		}
		payload, err := domain.ParseWidget(script)
		if err != nil {
			return nil, sectionError(domain.SectionTotals, fmt.Errorf("%s: %w", e.figure, err))
		}
		tb, err := e.extract(payload)
		if err != nil {
			return nil, sectionError(domain.SectionTotals, err)
		}
		t.logger.Debug("figure extracted", "section", domain.SectionTotals, "figure", e.figure, "rows", tb.Len())
		tables = append(tables, tb)
	}
	return normalize(domain.SectionTotals, tables...)
}

// Regions extracts one cumulative or daily series per health zone.
func (t *SectionTransformer) Regions(doc domain.Document) (*domain.Table, error) {
	scripts, err := t.scripts(doc, domain.SectionRegions)
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, sectionError(domain.SectionRegions, fmt.Errorf("%w: position 0, section has no scripts", domain.ErrFigureNotFound))
	}
	payload, err := domain.ParseWidget(scripts[0])
	if err != nil {
		return nil, sectionError(domain.SectionRegions, err)
	}
	tb, err := domain.ExtractRegions(payload, t.opts.RegionSeries)
	if err != nil {
		return nil, sectionError(domain.SectionRegions, err)
	}
	return normalize(domain.SectionRegions, tb)
}

// Testing extracts the tests-per-day chart.
func (t *SectionTransformer) Testing(doc domain.Document) (*domain.Table, error) {
	scripts, err := t.scripts(doc, domain.SectionTesting)
	if err != nil {
		return nil, err
	}
	tb, err := domain.ExtractTesting(scripts)
	if err != nil {
		return nil, sectionError(domain.SectionTesting, err)
	}
	return normalize(domain.SectionTesting, tb)
}

func (t *SectionTransformer) scripts(doc domain.Document, s domain.Section) ([]string, error) {
	id, err := t.opts.SectionIDs.Lookup(s)
	if err != nil {
		return nil, sectionError(s, err)
	}
	scripts, err := doc.SectionScripts(id)
	if err != nil {
		return nil, sectionError(s, err)
	}
	return scripts, nil
}

func normalize(s domain.Section, tables ...*domain.Table) (*domain.Table, error) {
	joined, err := domain.JoinTables(tables...)
	if err != nil {
		return nil, sectionError(s, err)
	}
	return joined.Normalize(), nil
}

func sectionError(s domain.Section, err error) error {
	return fmt.Errorf("section %s: %w", s, err)
}
