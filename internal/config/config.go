package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
)

// Report output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Inputs.
	DataDir         string
	QuakeCatalog    string
	MagStartYear    int
	MagEndYear      int
	MagStations     []int
	QuakeCutoffYear int

	// Cache.
	CacheEnabled  bool
	CacheDir      string
	CacheCompress bool
	MagCacheKey   string
	QuakeCacheKey string

	TailFill domain.TailFill

	// Outputs.
	PlotDir            string
	PlotWidth          int
	PlotHeight         int
	ReportPath         string
	ReportFormat       string
	MetricsTextfile    string
	ReportKafkaBrokers []string
	ReportKafkaTopic   string

	// Serve mode.
	HTTPAddr        string
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	var errs []error
	intVar := func(key, def string) int {
		n, err := strconv.Atoi(strings.TrimSpace(sharedcfg.EnvOrDefault(key, def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return n
	}
	boolVar := func(key, def string) bool {
		b, err := strconv.ParseBool(strings.TrimSpace(sharedcfg.EnvOrDefault(key, def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
		}
		return b
	}

	stations, err := parseStations(sharedcfg.EnvOrDefault("MAG_STATIONS", "6,8,10"))
	if err != nil {
		errs = append(errs, err)
	}
	tail, err := domain.ParseTailFill(sharedcfg.EnvOrDefault("TAIL_FILL", string(domain.TailForwardFill)))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid TAIL_FILL: %w", err))
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		errs = append(errs, err)
	}

	cfg := &Config{
		DataDir:         sharedcfg.EnvOrDefault("DATA_DIR", "."),
		QuakeCatalog:    sharedcfg.EnvOrDefault("QUAKE_CATALOG", "centennial_Y2K.csv"),
		MagStartYear:    intVar("MAG_START_YEAR", "1986"),
		MagEndYear:      intVar("MAG_END_YEAR", "2008"),
		MagStations:     stations,
		QuakeCutoffYear: intVar("QUAKE_CUTOFF_YEAR", strconv.Itoa(domain.DefaultQuakeCutoffYear)),

		CacheEnabled:  boolVar("CACHE_ENABLED", "true"),
		CacheDir:      sharedcfg.EnvOrDefault("CACHE_DIR", "."),
		CacheCompress: boolVar("CACHE_COMPRESS", "false"),
		MagCacheKey:   sharedcfg.EnvOrDefault("MAG_CACHE_KEY", "mag.cache"),
		QuakeCacheKey: sharedcfg.EnvOrDefault("QUAKE_CACHE_KEY", "quake.cache"),

		TailFill: tail,

		PlotDir:          sharedcfg.EnvOrDefault("PLOT_DIR", ""),
		PlotWidth:        intVar("PLOT_WIDTH", "1200"),
		PlotHeight:       intVar("PLOT_HEIGHT", "600"),
		ReportPath:       sharedcfg.EnvOrDefault("REPORT_PATH", ""),
		ReportFormat:     strings.ToLower(sharedcfg.EnvOrDefault("REPORT_FORMAT", FormatJSON)),
		MetricsTextfile:  sharedcfg.EnvOrDefault("METRICS_TEXTFILE", ""),
		ReportKafkaTopic: sharedcfg.EnvOrDefault("REPORT_KAFKA_TOPIC", "quake-mag-correlations"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		LogLevel:  sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
	}
	if brokers := strings.TrimSpace(sharedcfg.EnvOrDefault("REPORT_KAFKA_BROKERS", "")); brokers != "" {
		cfg.ReportKafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints. It is re-run after CLI flag overrides.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("DATA_DIR is required")
	}
	if c.QuakeCatalog == "" {
		return errors.New("QUAKE_CATALOG is required")
	}
	if c.MagStartYear > c.MagEndYear {
		return fmt.Errorf("MAG_START_YEAR %d is after MAG_END_YEAR %d", c.MagStartYear, c.MagEndYear)
	}
	if len(c.MagStations) == 0 {
		return errors.New("MAG_STATIONS is required")
	}
	if c.CacheEnabled && c.CacheDir == "" {
		return errors.New("CACHE_DIR is required when CACHE_ENABLED is true")
	}
	if c.MagCacheKey == "" || c.QuakeCacheKey == "" {
		return errors.New("MAG_CACHE_KEY and QUAKE_CACHE_KEY must not be empty")
	}
	if c.MagCacheKey == c.QuakeCacheKey {
		return errors.New("MAG_CACHE_KEY and QUAKE_CACHE_KEY must differ")
	}
	if c.PlotWidth <= 0 || c.PlotHeight <= 0 {
		return errors.New("PLOT_WIDTH and PLOT_HEIGHT must be positive")
	}
	if c.ReportFormat != FormatJSON && c.ReportFormat != FormatYAML {
		return fmt.Errorf("invalid REPORT_FORMAT %q (want json or yaml)", c.ReportFormat)
	}
	if len(c.ReportKafkaBrokers) > 0 && c.ReportKafkaTopic == "" {
		return errors.New("REPORT_KAFKA_TOPIC is required when REPORT_KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether correlation reports are published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.ReportKafkaBrokers) > 0
}

func parseStations(s string) ([]int, error) {
	var stations []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid MAG_STATIONS entry %q", part)
		}
		stations = append(stations, n)
	}
	return stations, nil
}
