// Command quakemag correlates GOES magnetometer readings with the USGS
// centennial earthquake catalog.
//
// Usage:
//
//	quakemag [run] [--data-dir DIR] [--cache-dir DIR] [--plot-dir DIR] \
//	  [--report FILE] [--report-format json|yaml] [--no-cache]
//	quakemag serve [--http-addr :8080]
//	quakemag cache status
//	quakemag cache clear
//
// Every flag has an environment variable counterpart; flags win when set.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
