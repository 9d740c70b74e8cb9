package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/covid-alberta-etl/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	SourceURL    string
	UserAgent    string
	FetchTimeout time.Duration

	OutputDir string
	FileTypes []domain.FileType

	// Layout holds the page identifiers and output file names. Defaults are
	// overlaid by OVERRIDES_FILE, then SECTION_IDS and FIGURE_ORDER.
	Layout Layout

	RegionSeries     string
	IncubationPeriod float64

	ChartsEnabled bool
	ChartDir      string
	ChartTrimDays int

	// Kafka publishing is disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	PushgatewayURL string

	HTTPAddr        string
	RefreshInterval time.Duration
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Window returns the doubling-time window derived from the incubation period.
func (c *Config) Window() int {
	return domain.WindowFromIncubation(c.IncubationPeriod)
}

// KafkaEnabled reports whether snapshots are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	if fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT: must be positive")
	}

	refresh, err := parseDuration("REFRESH_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}
	if refresh < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL: must not be negative")
	}

	fileTypes, err := domain.ParseFileTypes(sharedcfg.EnvOrDefault("FILE_TYPES", "csv,json"))
	if err != nil {
		return nil, fmt.Errorf("invalid FILE_TYPES: %w", err)
	}

	incubation, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("INCUBATION_PERIOD_DAYS", "5.2"), 64)
	if err != nil || incubation <= 0 {
		return nil, errors.New("invalid INCUBATION_PERIOD_DAYS: must be a positive number")
	}

	trimDays, err := strconv.Atoi(sharedcfg.EnvOrDefault("CHART_TRIM_DAYS", "1"))
	if err != nil || trimDays < 0 {
		return nil, errors.New("invalid CHART_TRIM_DAYS: must be a non-negative integer")
	}

	chartsEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("CHARTS_ENABLED", "true"))
	if err != nil {
		return nil, errors.New("invalid CHARTS_ENABLED: must be a boolean")
	}

	layout, err := loadLayout()
	if err != nil {
		return nil, err
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		SourceURL:        sharedcfg.EnvOrDefault("SOURCE_URL", "https://covid19stats.alberta.ca/"),
		UserAgent:        sharedcfg.EnvOrDefault("USER_AGENT", "covid-alberta-etl/1.0"),
		FetchTimeout:     fetchTimeout,
		OutputDir:        sharedcfg.EnvOrDefault("OUTPUT_DIR", "data"),
		FileTypes:        fileTypes,
		Layout:           layout,
		RegionSeries:     sharedcfg.EnvOrDefault("REGION_SERIES", domain.RegionCumulative),
		IncubationPeriod: incubation,
		ChartsEnabled:    chartsEnabled,
		ChartDir:         sharedcfg.EnvOrDefault("CHART_DIR", "images"),
		ChartTrimDays:    trimDays,
		KafkaBrokers:     brokers,
		KafkaTopic:       sharedcfg.EnvOrDefault("KAFKA_TOPIC", "covid-alberta-snapshots"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		HTTPAddr:         sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		RefreshInterval:  refresh,
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		ShutdownTimeout:  shutdownTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that CLI flags may have changed after Load.
func (c *Config) Validate() error {
	u, err := url.Parse(c.SourceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid SOURCE_URL %q", c.SourceURL)
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	switch c.RegionSeries {
	case domain.RegionCumulative, domain.RegionNewCases:
	default:
		return fmt.Errorf("invalid REGION_SERIES %q: want %s or %s", c.RegionSeries, domain.RegionCumulative, domain.RegionNewCases)
	}
	if c.ChartsEnabled && c.ChartDir == "" {
		return errors.New("CHART_DIR is required when charts are enabled")
	}
	if c.KafkaEnabled() && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return c.Layout.Validate()
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
