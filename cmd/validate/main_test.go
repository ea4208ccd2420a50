package main

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-mag-etl/internal/cache"
	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

func seed(t *testing.T, mag, quake domain.Table) string {
	t.Helper()
	dir := t.TempDir()
	store := cache.NewStore(dir, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
	require.NoError(t, store.Save("mag.cache", "fp-mag", mag))
	require.NoError(t, store.Save("quake.cache", "fp-quake", quake))
	return dir
}

func validTables() (mag, quake domain.Table) {
	start := time.Date(1995, 2, 1, 0, 0, 0, 0, time.UTC)
	mag = domain.NewTable(domain.MagnetometerColumns...)
	quake = domain.NewTable(domain.QuakeColumns...)
	for i := range 6 {
		ts := start.Add(time.Duration(i) * time.Minute)
		mag.Append(ts, 90, -40, 10, 99.1)
		quake.Append(ts.Add(time.Duration(i)*time.Hour), 6.1)
	}
	return mag, quake
}

func TestRun_ValidCache(t *testing.T) {
	mag, quake := validTables()
	dir := seed(t, mag, quake)

	assert.Equal(t, 0, run(dir, "mag.cache", "quake.cache", domain.DefaultQuakeCutoffYear))
}

func TestRun_MissingSnapshot(t *testing.T) {
	assert.Equal(t, 1, run(t.TempDir(), "mag.cache", "quake.cache", domain.DefaultQuakeCutoffYear))
}

func TestValidateMagnetometer_FindsSentinelAndDisorder(t *testing.T) {
	mag := domain.NewTable(domain.MagnetometerColumns...)
	mag.Append(time.Date(1995, 2, 1, 0, 1, 0, 0, time.UTC), 1, 2, 3, 4)
	mag.Append(time.Date(1995, 2, 1, 0, 0, 0, 0, time.UTC), 1, domain.InvalidReading, 3, 4)

	p := validateMagnetometer(snapshot{key: "mag.cache", table: mag})

	require.False(t, p.passed())
	assert.Len(t, p.errors, 2)
	assert.Contains(t, p.errors[0], "not sorted")
	assert.Contains(t, p.errors[1], "invalid sentinel")
}

func TestValidateQuakes_Cutoff(t *testing.T) {
	quake := domain.NewTable(domain.QuakeColumns...)
	quake.Append(time.Date(1985, 12, 31, 0, 0, 0, 0, time.UTC), 6)
	quake.Append(time.Date(1986, 1, 1, 0, 0, 0, 0, time.UTC), 6)

	p := validateQuakes(snapshot{key: "quake.cache", table: quake}, 1985)

	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "cutoff year 1985")
}

func TestValidateManifests_Disagreement(t *testing.T) {
	mag, quake := validTables()
	dir := seed(t, mag, quake)

	// Replace the magnetometer snapshot without touching its manifest.
	f, err := os.Create(cache.NewStore(dir, slog.New(slog.DiscardHandler), nil).Path("mag.cache"))
	require.NoError(t, err)
	require.NoError(t, cache.Encode(f, mag.Slice(0, 2)))
	require.NoError(t, f.Close())

	store := cache.NewStore(dir, slog.New(slog.DiscardHandler), nil)
	magSnap, err := loadSnapshot(store, "mag.cache")
	require.NoError(t, err)
	quakeSnap, err := loadSnapshot(store, "quake.cache")
	require.NoError(t, err)

	p := validateManifests(magSnap, quakeSnap)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "manifest rows 6, artifact rows 2")
}
