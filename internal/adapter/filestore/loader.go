package filestore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-alberta-etl/internal/config"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
)

// Loader writes every table of a snapshot. It implements pipeline.Loader.
type Loader struct {
	writer  *Writer
	names   config.FileNames
	types   []domain.FileType
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewLoader creates a loader that writes snapshot tables under the given base names.
func NewLoader(w *Writer, names config.FileNames, types []domain.FileType, metrics *observability.Metrics, logger *slog.Logger) *Loader {
	return &Loader{writer: w, names: names, types: types, metrics: metrics, logger: logger}
}

// Name identifies the loader in logs.
func (l *Loader) Name() string { return "filestore" }

// Load writes the section tables and the combined report.
func (l *Loader) Load(ctx context.Context, snap domain.Snapshot) error {
	type target struct {
		table *domain.Table
		base  string
	}
	targets := make([]target, 0, len(domain.Sections)+1)
	for _, s := range domain.Sections {
		targets = append(targets, target{table: snap.SectionTable(s), base: l.names.Section(s)})
	}
	targets = append(targets, target{table: snap.Combined, base: l.names.Combined})

	for _, tg := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tg.table == nil {
			continue
		}
		written, err := l.writer.WriteTable(tg.table, tg.base, l.types)
		if err != nil {
			return fmt.Errorf("write %s: %w", tg.base, err)
		}
		if !written {
			continue
		}
		for _, ft := range l.types {
			l.metrics.FilesWritten.WithLabelValues(string(ft)).Inc()
		}
	}
	l.logger.Info("snapshot files written",
		"run_id", snap.RunID,
		"dir", l.writer.Dir(),
		"formats", l.types,
	)
	return nil
}
