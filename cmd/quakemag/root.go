package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-mag-etl/internal/config"
)

// options holds flag values. A flag only overrides configuration when the
// user set it explicitly.
type options struct {
	dataDir      string
	cacheDir     string
	plotDir      string
	report       string
	reportFormat string
	noCache      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "quakemag",
		Short: "Correlate geomagnetic field readings with earthquake magnitudes",
		Long: `quakemag loads monthly GOES magnetometer files and the centennial earthquake
catalog, aligns both on an hourly grid and prints Pearson, Kendall and Spearman
correlation matrices at hourly, daily and weekly resolution.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.dataDir, "data-dir", "", "directory holding the raw input files (overrides DATA_DIR)")
	pf.StringVar(&opts.cacheDir, "cache-dir", "", "directory for cache snapshots (overrides CACHE_DIR)")
	pf.StringVar(&opts.plotDir, "plot-dir", "", "write PNG plots into this directory (overrides PLOT_DIR)")
	pf.StringVar(&opts.report, "report", "", "also write the report to this file (overrides REPORT_PATH)")
	pf.StringVar(&opts.reportFormat, "report-format", "", "report file format: json or yaml (overrides REPORT_FORMAT)")
	pf.BoolVar(&opts.noCache, "no-cache", false, "bypass the cache and always parse raw inputs")

	root.AddCommand(newRunCmd(opts), newServeCmd(opts), newCacheCmd(opts))
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
}

// loadConfig reads the environment and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	if f.Changed("data-dir") {
		cfg.DataDir = opts.dataDir
	}
	if f.Changed("cache-dir") {
		cfg.CacheDir = opts.cacheDir
	}
	if f.Changed("plot-dir") {
		cfg.PlotDir = opts.plotDir
	}
	if f.Changed("report") {
		cfg.ReportPath = opts.report
	}
	if f.Changed("report-format") {
		cfg.ReportFormat = opts.reportFormat
	}
	if f.Changed("no-cache") {
		cfg.CacheEnabled = !opts.noCache
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
