package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/couchcryptid/covid-alberta-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func newTransformer() *pipeline.SectionTransformer {
	return pipeline.NewTransformer(pipeline.TransformOptions{
		SectionIDs:   domain.DefaultSectionIDs(),
		FigureOrder:  domain.DefaultFigureOrder(),
		RegionSeries: domain.RegionCumulative,
		Window:       2,
	}, slog.Default())
}

func TestPipeline_Run_HappyPath(t *testing.T) {
	fixed := time.Date(2020, time.March, 9, 8, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	first := &recordingLoader{name: "first"}
	second := &recordingLoader{name: "second"}
	p := pipeline.New(&fakeExtractor{doc: newFakeDocument()}, newTransformer(),
		[]pipeline.Loader{first, second}, slog.Default(), newTestMetrics())

	require.Error(t, p.CheckReadiness(context.Background()))

	snap, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.RunID)
	assert.Equal(t, fixed, snap.ScrapedAt)
	require.Len(t, first.loaded, 1)
	require.Len(t, second.loaded, 1)
	assert.Equal(t, snap.RunID, second.loaded[0].RunID)
	assert.True(t, p.Ready())
	assert.NoError(t, p.CheckReadiness(context.Background()))

	assert.Equal(t, []string{
		"cum_cases", "Confirmed_count", "Probable_count", "Daily_count", "Active_cum", "Died_cum", "Recovered_cum",
	}, snap.Totals.Columns())
	assert.Equal(t, []string{"Calgary_cumulative", "Edmonton_cumulative"}, snap.Regions.Columns())
	assert.Equal(t, 5, snap.Testing.Len())

	tests, ok := snap.Testing.Column(domain.ColumnTestCount)
	require.True(t, ok)
	assert.Equal(t, []float64{50, 120, 300, 0, 800}, tests, "null observations are filled with zero")

	daily, ok := snap.Totals.Column(domain.ColumnDailyCount)
	require.True(t, ok)
	assert.Equal(t, []float64{1, 1, 2, 4}, daily)

	assert.Equal(t, 5, snap.Combined.Len(), "combined report is an outer join")
	assert.True(t, snap.Combined.HasColumn(domain.ReportRollingDoubled))
	assert.True(t, snap.Combined.HasColumn("Calgary_dtime_rw"))
	assert.True(t, snap.Combined.HasColumn(domain.ColumnTotalTests))
}

func TestPipeline_Run_SectionNotFound(t *testing.T) {
	doc := newFakeDocument()
	delete(doc, "geospatial")

	ldr := &recordingLoader{name: "files"}
	p := pipeline.New(&fakeExtractor{doc: doc}, newTransformer(), []pipeline.Loader{ldr}, slog.Default(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrSectionNotFound)
	assert.Contains(t, err.Error(), "section regions")
	assert.Empty(t, ldr.loaded, "no loader runs after a failed section")
	assert.False(t, p.Ready())
}

func TestPipeline_Run_FigureNotFound(t *testing.T) {
	doc := newFakeDocument()
	doc["cases"] = doc["cases"][:2]

	p := pipeline.New(&fakeExtractor{doc: doc}, newTransformer(), nil, slog.Default(), newTestMetrics())
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrFigureNotFound)
}

func TestPipeline_Run_ShapeMismatch(t *testing.T) {
	doc := newFakeDocument()
	doc["laboratory-testing"] = []string{testingScript, testingScript}

	ldr := &recordingLoader{name: "files"}
	p := pipeline.New(&fakeExtractor{doc: doc}, newTransformer(), []pipeline.Loader{ldr}, slog.Default(), newTestMetrics())

	_, err := p.Run(context.Background())
	var shapeErr *domain.ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, string(domain.SectionTesting), shapeErr.Source)
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	p := pipeline.New(&fakeExtractor{err: errors.New("connection refused")}, newTransformer(), nil, slog.Default(), newTestMetrics())
	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestPipeline_Run_LoaderError(t *testing.T) {
	failing := &recordingLoader{name: "kafka", err: errors.New("broker unavailable")}
	after := &recordingLoader{name: "chart"}
	p := pipeline.New(&fakeExtractor{doc: newFakeDocument()}, newTransformer(),
		[]pipeline.Loader{failing, after}, slog.Default(), newTestMetrics())

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load kafka")
	assert.Empty(t, after.loaded)
	assert.False(t, p.Ready())
}

func TestSectionTransformer_TotalsFigureOverride(t *testing.T) {
	doc := newFakeDocument()
	doc["cases"] = []string{cumCasesScript, dailyCasesScript, caseStatusScript}

	tfm := newTransformer()
	_, err := tfm.Totals(doc, nil)
	require.ErrorIs(t, err, domain.ErrFigureNotFound)

	totals, err := tfm.Totals(doc, domain.FigureOrder{domain.FigureDailyCases: 1, domain.FigureCaseStatus: 2})
	require.NoError(t, err)
	assert.True(t, totals.HasColumn(domain.ColumnDailyCount))

	_, err = tfm.Totals(doc, nil)
	assert.ErrorIs(t, err, domain.ErrFigureNotFound, "overrides apply to a single call")
}

func TestSectionTransformer_NewCasesRegions(t *testing.T) {
	tfm := pipeline.NewTransformer(pipeline.TransformOptions{
		SectionIDs:   domain.DefaultSectionIDs(),
		FigureOrder:  domain.DefaultFigureOrder(),
		RegionSeries: domain.RegionNewCases,
		Window:       2,
	}, slog.Default())

	snap, err := tfm.Transform(context.Background(), newFakeDocument())
	require.NoError(t, err)
	assert.Equal(t, []string{"Calgary_newCases", "Edmonton_newCases"}, snap.Regions.Columns())

	cum, ok := snap.Combined.Column("Calgary_cumCases")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 1, 2, 5, 10}, cum)
}

func TestPipeline_Schedule_RunsOnceWithoutInterval(t *testing.T) {
	ldr := &recordingLoader{name: "files"}
	p := pipeline.New(&fakeExtractor{doc: newFakeDocument()}, newTransformer(), []pipeline.Loader{ldr}, slog.Default(), newTestMetrics())

	var results []error
	err := p.Schedule(context.Background(), 0, clockwork.NewFakeClock(), func(err error) { results = append(results, err) })
	require.NoError(t, err)
	assert.Len(t, ldr.loaded, 1)
	assert.Equal(t, []error{nil}, results)
}

func TestPipeline_Schedule_TicksOnInterval(t *testing.T) {
	fc := clockwork.NewFakeClock()
	ldr := &recordingLoader{name: "files", signal: make(chan struct{}, 4)}
	p := pipeline.New(&fakeExtractor{doc: newFakeDocument()}, newTransformer(), []pipeline.Loader{ldr}, slog.Default(), newTestMetrics())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Schedule(ctx, time.Hour, fc, nil) }()

	waitForRun := func() {
		t.Helper()
		select {
		case <-ldr.signal:
		case <-ctx.Done():
			t.Fatal("timed out waiting for run")
		}
	}

	waitForRun()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Hour)
	waitForRun()

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, ldr.loaded, 2)
}
