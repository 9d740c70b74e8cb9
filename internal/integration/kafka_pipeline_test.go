//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/filestore"
	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-alberta-etl/internal/config"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/couchcryptid/covid-alberta-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-covid-snapshots"

// publishedRow holds a deserialized message read from the snapshot topic.
type publishedRow struct {
	Row     kafka.RowMessage
	Key     string
	Headers map[string]string
}

func readRow(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedRow {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from snapshot topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var row kafka.RowMessage
	require.NoError(t, json.Unmarshal(msg.Value, &row), "unmarshal snapshot message")
	return publishedRow{Row: row, Key: string(msg.Key), Headers: headers}
}

func widget(traces ...string) string {
	return `<script type="application/json">{"x":{"data":[` + strings.Join(traces, ",") + `]}}</script>`
}

func trace(name string, start time.Time, values ...int) string {
	dates := make([]string, len(values))
	ys := make([]string, len(values))
	for i, v := range values {
		dates[i] = `"` + start.AddDate(0, 0, i).Format(domain.DateLayout) + `"`
		ys[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf(`{"name":%q,"x":[%s],"y":[%s]}`, name, strings.Join(dates, ","), strings.Join(ys, ","))
}

func statisticsPage() string {
	start := time.Date(2020, time.March, 5, 0, 0, 0, 0, time.UTC)
	return `<html><body>` +
		`<div class="section level2" id="cases">` +
		widget(trace("Cases", start, 1, 2, 4, 8, 16, 32, 64, 128)) +
		widget(trace("Active", start, 1, 2, 4, 8, 16, 32, 60, 120), trace("Died", start, 0, 0, 0, 0, 0, 0, 1, 2), trace("Recovered", start, 0, 0, 0, 0, 0, 0, 3, 6)) +
		widget(trace("Age", start, 1)) +
		widget(trace("Confirmed", start, 1, 1, 2, 4, 8, 16, 32, 64), trace("Probable", start, 0, 0, 0, 0, 0, 0, 0, 0)) +
		`</div>` +
		`<div class="section level2" id="geospatial">` +
		widget(trace("Calgary Zone", start, 1, 1, 2, 4, 8, 16, 32, 64), trace("Edmonton Zone", start, 0, 1, 2, 4, 8, 16, 32, 64)) +
		`</div>` +
		`<div class="section level2" id="laboratory-testing">` +
		widget(trace("Tests", start, 100, 200, 300, 400, 500, 600, 700, 800)) +
		`</div></body></html>`
}

// TestPipelineEndToEnd wires the full pipeline (source client, transformer,
// file store and Kafka writer) against an httptest page and a real broker.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(statisticsPage()))
	}))
	t.Cleanup(page.Close)

	outDir := t.TempDir()
	cfg := &config.Config{
		SourceURL:        page.URL,
		FetchTimeout:     10 * time.Second,
		OutputDir:        outDir,
		FileTypes:        []domain.FileType{domain.FileCSV, domain.FileJSON},
		Layout:           config.DefaultLayout(),
		RegionSeries:     domain.RegionCumulative,
		IncubationPeriod: domain.DefaultIncubationPeriod,
		KafkaBrokers:     []string{broker},
		KafkaTopic:       testTopic,
	}
	metrics := observability.NewMetricsForTesting()

	writer := kafka.NewWriter(cfg, metrics, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(
		source.NewClient(cfg.SourceURL, cfg.FetchTimeout, "integration-test", discardLogger()),
		pipeline.NewTransformer(pipeline.TransformOptions{
			SectionIDs:   cfg.Layout.SectionIDs,
			FigureOrder:  cfg.Layout.FigureOrder,
			RegionSeries: cfg.RegionSeries,
			Window:       cfg.Window(),
		}, discardLogger()),
		[]pipeline.Loader{
			filestore.NewLoader(filestore.NewWriter(outDir, discardLogger()), cfg.Layout.FileNames, cfg.FileTypes, metrics, discardLogger()),
			writer,
		},
		discardLogger(),
		metrics,
	)

	snap, err := p.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 8, snap.Combined.Len())

	for _, base := range []string{"alberta_total_data", "alberta_region_data", "alberta_testing_data", "alberta_all_data"} {
		assert.FileExists(t, filepath.Join(outDir, base+".csv"))
		assert.FileExists(t, filepath.Join(outDir, base+".json"))
	}
	f, err := os.Open(filepath.Join(outDir, "alberta_all_data.csv"))
	require.NoError(t, err)
	defer f.Close()
	written, err := filestore.ReadCSV(f)
	require.NoError(t, err)
	assert.Equal(t, snap.Combined.Columns(), written.Columns())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]publishedRow, 0, snap.Combined.Len())
	for len(received) < snap.Combined.Len() {
		received = append(received, readRow(ctx, t, consumer))
	}

	for _, pr := range received {
		assert.Equal(t, snap.RunID, pr.Headers["run_id"])
		assert.Equal(t, kafka.SectionCombined, pr.Headers["section"])
		_, err := time.Parse(time.RFC3339, pr.Headers["scraped_at"])
		assert.NoError(t, err, "scraped_at should be valid RFC3339")
		assert.Equal(t, pr.Key, pr.Row.Date)
		assert.Contains(t, pr.Row.Values, domain.ReportRollingDoubled)
	}

	last := received[len(received)-1]
	assert.Equal(t, "2020-03-12", last.Row.Date)
	require.NotNil(t, last.Row.Values[domain.ReportRollingDoubled])
	assert.InDelta(t, 1.0, *last.Row.Values[domain.ReportRollingDoubled], 1e-9, "cases double daily")
}
