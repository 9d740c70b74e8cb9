package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/google/uuid"
)

// Extractor fetches and parses the statistics page.
type Extractor interface {
	Extract(ctx context.Context) (domain.Document, error)
}

// Transformer turns a parsed page into normalized tables.
type Transformer interface {
	Transform(ctx context.Context, doc domain.Document) (domain.Snapshot, error)
}

// Loader writes a finished snapshot to a destination.
type Loader interface {
	Name() string
	Load(ctx context.Context, snap domain.Snapshot) error
}

// Pipeline orchestrates one extract-transform-load pass over the page.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	mu          sync.Mutex
}

// New creates a Pipeline with the given stages and observability. Loaders run
// in order after a successful transform.
func New(e Extractor, t Transformer, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a successful run yet")
	}
	return nil
}

// Ready reports whether a run has completed successfully.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Run performs one sequential pass: fetch, extract every section, build the
// combined report, then hand the snapshot to each loader. Any failure aborts
// the run; nothing is retried. Concurrent calls are serialized.
func (p *Pipeline) Run(ctx context.Context) (domain.Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)
	logger.Info("run started")

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	start := time.Now()

	snap, err := p.run(ctx, runID, logger)
	if err != nil {
		p.metrics.RunsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, domain.ErrShapeMismatch) {
			p.metrics.ShapeErrors.Inc()
		}
		logger.Error("run failed", "error", err, "duration", time.Since(start))
		return domain.Snapshot{}, err
	}

	p.metrics.RunsTotal.WithLabelValues("success").Inc()
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	p.metrics.LastSuccess.SetToCurrentTime()
	p.ready.Store(true)
	logger.Info("run completed",
		"duration", time.Since(start),
		"days", snap.Combined.Len(),
		"columns", len(snap.Combined.Columns()),
	)
	return snap, nil
}

func (p *Pipeline) run(ctx context.Context, runID string, logger *slog.Logger) (domain.Snapshot, error) {
	fetchStart := time.Now()
	doc, err := p.extractor.Extract(ctx)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("extract: %w", err)
	}
	p.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())

	snap, err := p.transformer.Transform(ctx, doc)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("transform: %w", err)
	}
	snap.RunID = runID
	snap.ScrapedAt = domain.Now()

	for _, s := range domain.Sections {
		if t := snap.SectionTable(s); t != nil {
			p.metrics.SectionRows.WithLabelValues(string(s)).Set(float64(t.Len()))
		}
	}
	if snap.Combined != nil {
		p.metrics.SectionRows.WithLabelValues("combined").Set(float64(snap.Combined.Len()))
	}

	for _, l := range p.loaders {
		if err := ctx.Err(); err != nil {
			return domain.Snapshot{}, err
		}
		if err := l.Load(ctx, snap); err != nil {
			return domain.Snapshot{}, fmt.Errorf("load %s: %w", l.Name(), err)
		}
		logger.Debug("loader finished", "loader", l.Name())
	}
	return snap, nil
}
