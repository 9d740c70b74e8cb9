package chart

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gochart "github.com/wcharczuk/go-chart/v2"
)

func reportTable(t *testing.T, rows int) *domain.Table {
	t.Helper()
	start := time.Date(2020, 3, 5, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, rows)
	columns := []string{
		domain.ReportCumCases, domain.ReportDailyCases, domain.ReportRollingDoubled,
		"Calgary_cumulative", "Calgary_dtime_rw", domain.ColumnTotalTests,
	}
	values := make([][]float64, len(columns))
	for i := range index {
		index[i] = start.AddDate(0, 0, i)
		cum := float64(int(1) << i)
		values[0] = append(values[0], cum)
		values[1] = append(values[1], cum/2)
		values[2] = append(values[2], float64(i%3))
		values[3] = append(values[3], cum/4)
		values[4] = append(values[4], 0)
		values[5] = append(values[5], float64(100*i))
	}
	tb, err := domain.NewTable(index, columns, values)
	require.NoError(t, err)
	return tb
}

func newRenderer(dir string) *Renderer {
	figures := domain.DefaultFigures(domain.RegionCumulative, 6)
	return NewRenderer(dir, domain.DefaultTrimDays, figures, observability.NewMetricsForTesting(), slog.Default())
}

func TestRenderer_Render(t *testing.T) {
	r := newRenderer(t.TempDir())
	figs := domain.DefaultFigures(domain.RegionCumulative, 6)

	svg, title, err := r.Render(reportTable(t, 8), figs[0])
	require.NoError(t, err)
	assert.True(t, bytes.Contains(svg, []byte("<svg")))
	assert.Equal(t, "March 12 - Alberta Covid-19: Case Counts and Number of Tests", title)

	svg, _, err = r.Render(reportTable(t, 8), figs[1])
	require.NoError(t, err)
	assert.True(t, bytes.Contains(svg, []byte("Calgary")))
}

func TestRenderer_TestsDrawnAsBars(t *testing.T) {
	r := newRenderer(t.TempDir())
	figs := domain.DefaultFigures(domain.RegionCumulative, 6)

	graph, err := r.build(reportTable(t, 8), figs[0])
	require.NoError(t, err)

	var bars []gochart.HistogramSeries
	for _, s := range graph.Series {
		if h, ok := s.(gochart.HistogramSeries); ok {
			bars = append(bars, h)
		}
	}
	require.Len(t, bars, 1)
	assert.Equal(t, "C19 Tests/day", bars[0].Name)
	assert.Equal(t, gochart.YAxisSecondary, bars[0].YAxis)
	assert.Zero(t, graph.YAxisSecondary.Range.GetMin(), "bar axis starts at zero")
}

func TestRenderer_AnnotatesLastDoublingTime(t *testing.T) {
	r := newRenderer(t.TempDir())
	figs := domain.DefaultFigures(domain.RegionCumulative, 6)
	table := reportTable(t, 8)

	graph, err := r.build(table, figs[1])
	require.NoError(t, err)

	var annotations []gochart.AnnotationSeries
	for _, s := range graph.Series {
		if a, ok := s.(gochart.AnnotationSeries); ok {
			annotations = append(annotations, a)
		}
	}
	require.Len(t, annotations, 2, "one per plotted trace; Edmonton columns are absent")

	last := table.Len() - 1
	alberta := annotations[0].Annotations
	require.Len(t, alberta, 1)
	assert.Equal(t, table.Value(last, domain.ReportCumCases), alberta[0].XValue)
	assert.Equal(t, table.Value(last, domain.ReportRollingDoubled), alberta[0].YValue)
	assert.Equal(t, "1.0", alberta[0].Label)

	svg, _, err := r.Render(table, figs[1])
	require.NoError(t, err)
	assert.True(t, bytes.Contains(svg, []byte("<svg")))
}

func TestRenderer_RenderTooShort(t *testing.T) {
	r := newRenderer(t.TempDir())
	_, _, err := r.Render(reportTable(t, 1), domain.DefaultFigures(domain.RegionCumulative, 6)[0])
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestRenderer_RenderMissingColumns(t *testing.T) {
	r := newRenderer(t.TempDir())
	fig := domain.Figure{
		Title:  "Only missing",
		Traces: []domain.PlotTrace{{Column: "Red Deer_cumulative"}},
	}
	_, _, err := r.Render(reportTable(t, 5), fig)
	assert.ErrorIs(t, err, ErrNothingToPlot)
}

func TestRenderer_Load(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	r := newRenderer(dir)

	err := r.Load(context.Background(), domain.Snapshot{
		RunID:     "run-1",
		ScrapedAt: time.Date(2020, 3, 13, 9, 0, 0, 0, time.UTC),
		Combined:  reportTable(t, 8),
	})
	require.NoError(t, err)

	for _, fig := range domain.DefaultFigures(domain.RegionCumulative, 6) {
		path := r.Path(fig)
		data, err := os.ReadFile(path)
		require.NoError(t, err, path)
		assert.Contains(t, string(data), "<svg")
		assert.Contains(t, string(data), "March 11 - ", "last row is trimmed before plotting")
	}
	assert.FileExists(t, filepath.Join(dir, "alberta-covid-19-case-counts-and-number-of-tests.html"))
}

func TestRenderer_LoadSkipsUnplottable(t *testing.T) {
	dir := t.TempDir()
	r := newRenderer(dir)

	err := r.Load(context.Background(), domain.Snapshot{Combined: reportTable(t, 2)})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
