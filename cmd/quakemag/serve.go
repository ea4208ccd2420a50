package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/quake-mag-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

func newServeCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline once, then serve the report, health probes and metrics",
		Long: `serve starts an HTTP server, runs the pipeline in the background and keeps
serving until interrupted. /readyz turns healthy and /report becomes available
once the run has published its report. A failed run is logged and the server
stays up so /metrics can be scraped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("http-addr") {
				cfg.HTTPAddr = addr
			}

			logger := observability.NewLogger(cfg)
			latest := &httpadapter.LatestReport{}
			srv := httpadapter.NewServer(cfg.HTTPAddr, latest, logger)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			serveErr := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			pipelineDone := make(chan struct{})
			go func() {
				defer close(pipelineDone)
				if _, err := execute(ctx, cmd.OutOrStdout(), cfg, logger, latest); err != nil {
					logger.Error("pipeline error", "error", err)
				}
			}()

			var runErr error
			select {
			case <-ctx.Done():
			case err, ok := <-serveErr:
				if ok {
					runErr = err
				}
			}
			logger.Info("shutting down")

			// Stop an unfinished run and let it flush its logs and metrics.
			cancel()
			<-pipelineDone

			shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(cmd.Context()), cfg.ShutdownTimeout)
			defer stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			logger.Info("shutdown complete")
			return runErr
		},
	}
	cmd.Flags().StringVar(&addr, "http-addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
