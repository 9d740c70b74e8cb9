package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/covid-alberta-etl/internal/config"
	"github.com/couchcryptid/covid-alberta-etl/internal/observability"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
)

var rootCmd = &cobra.Command{
	Use:          "covidstats",
	Short:        "covidstats scrapes the Alberta COVID-19 statistics page.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger = observability.NewLogger(cfg)
		metrics = observability.NewMetrics()
		return nil
	},
}

// fail logs err with context and returns it so the command exits non-zero.
func fail(msg string, err error) error {
	logger.Error(msg, "error", err)
	return err
}
