// Package httpadapter serves health probes, Prometheus metrics and the most
// recent correlation report over HTTP.
package httpadapter

import (
	"context"
	"errors"
	"sync"

	"github.com/couchcryptid/quake-mag-etl/internal/analysis"
)

// ErrNoReport is returned by readiness checks before the first report lands.
var ErrNoReport = errors.New("no correlation report published yet")

// LatestReport keeps the most recently published report. It is a pipeline
// publisher and the server's readiness checker.
type LatestReport struct {
	mu     sync.RWMutex
	report analysis.Report
	ok     bool
}

// Publish replaces the held report.
func (l *LatestReport) Publish(_ context.Context, r analysis.Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.report = r
	l.ok = true
	return nil
}

// Get returns the held report and whether one has been published.
func (l *LatestReport) Get() (analysis.Report, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report, l.ok
}

// CheckReadiness fails until a report has been published.
func (l *LatestReport) CheckReadiness(_ context.Context) error {
	if _, ok := l.Get(); !ok {
		return ErrNoReport
	}
	return nil
}
