package main

import (
	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/chart"
	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/filestore"
	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/kafka"
	"github.com/couchcryptid/covid-alberta-etl/internal/adapter/source"
	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	"github.com/couchcryptid/covid-alberta-etl/internal/pipeline"
)

// buildPipeline wires the configured loaders. The returned cleanup closes the
// Kafka writer when one was created.
func buildPipeline() (*pipeline.Pipeline, func()) {
	client := source.NewClient(cfg.SourceURL, cfg.FetchTimeout, cfg.UserAgent, logger)
	transformer := pipeline.NewTransformer(pipeline.TransformOptions{
		SectionIDs:   cfg.Layout.SectionIDs,
		FigureOrder:  cfg.Layout.FigureOrder,
		RegionSeries: cfg.RegionSeries,
		Window:       cfg.Window(),
	}, logger)

	loaders := []pipeline.Loader{
		filestore.NewLoader(filestore.NewWriter(cfg.OutputDir, logger), cfg.Layout.FileNames, cfg.FileTypes, metrics, logger),
	}
	if cfg.ChartsEnabled {
		figures := domain.DefaultFigures(cfg.RegionSeries, cfg.Window())
		loaders = append(loaders, chart.NewRenderer(cfg.ChartDir, cfg.ChartTrimDays, figures, metrics, logger))
	} else {
		logger.Info("chart rendering disabled")
	}

	cleanup := func() {}
	if cfg.KafkaEnabled() {
		writer := kafka.NewWriter(cfg, metrics, logger)
		loaders = append(loaders, writer)
		cleanup = func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	return pipeline.New(client, transformer, loaders, logger, metrics), cleanup
}
