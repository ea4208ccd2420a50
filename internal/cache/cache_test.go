package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-mag-etl/internal/domain"
	"github.com/couchcryptid/quake-mag-etl/internal/observability"
)

const (
	testKey         = "mag.cache"
	testFingerprint = "fp-1"
	testRunID       = "run-1"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- counting loader ---

type countingLoader struct {
	calls int
	table domain.Table
	err   error
}

func (l *countingLoader) load(_ context.Context) (domain.Table, error) {
	l.calls++
	return l.table, l.err
}

func sampleTable() domain.Table {
	t := domain.NewTable(domain.MagnetometerColumns...)
	base := time.Date(1995, 2, 1, 0, 0, 0, 0, time.UTC)
	t.Append(base, 98.1, -12.5, 7.25, 99.4)
	t.Append(base.Add(time.Minute), 0.1+0.2, math.NaN(), 1e-300, -0.0)
	t.Append(base.Add(90*time.Second), math.MaxFloat64, 1.0/3.0, 123456789.123456789, 2)
	return t
}

func newTestStore(dir string, opts ...Option) *Store {
	opts = append([]Option{WithRunID(testRunID)}, opts...)
	return NewStore(dir, discardLogger(), observability.NewMetricsForTesting(), opts...)
}

// --- codec ---

func TestCodec_RoundTripIsExact(t *testing.T) {
	want := sampleTable()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, want))
	got, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, want.Columns, got.Columns)
	if diff := cmp.Diff(want.Data, got.Data, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, got.Index, len(want.Index))
	for i := range want.Index {
		assert.True(t, want.Index[i].Equal(got.Index[i]), "row %d", i)
	}
}

func TestCodec_FirstColumnIsIndex(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable()))

	first, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	assert.Equal(t, "ordtime,hp,he,hn,ht", string(first))
	assert.Contains(t, buf.String(), "1995-02-01 00:01:00,")
	assert.Contains(t, buf.String(), "1995-02-01 00:01:30,")
}

func TestDecode_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"wrong index column", "time,hp\n1995-02-01 00:00:00,1\n"},
		{"bad timestamp", "ordtime,hp\nyesterday,1\n"},
		{"bad value", "ordtime,hp\n1995-02-01 00:00:00,abc\n"},
		{"ragged row", "ordtime,hp,he\n1995-02-01 00:00:00,1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewBufferString(tt.in))
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

// --- store ---

func TestStore_SecondLoadSkipsLoader(t *testing.T) {
	dir := t.TempDir()
	loader := &countingLoader{table: sampleTable()}
	ctx := context.Background()

	first, err := newTestStore(dir).Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)

	second, err := newTestStore(dir).Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)

	assert.Equal(t, 1, loader.calls, "should only call loader once")
	assert.True(t, first.Equal(second))
	assert.True(t, sampleTable().Equal(second))
}

func TestStore_StaleFingerprintRebuilds(t *testing.T) {
	dir := t.TempDir()
	loader := &countingLoader{table: sampleTable()}
	ctx := context.Background()
	store := newTestStore(dir)

	_, err := store.Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)
	_, err = store.Load(ctx, testKey, "fp-2", loader.load)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)

	m, err := store.Manifest(testKey)
	require.NoError(t, err)
	assert.Equal(t, "fp-2", m.Fingerprint)
}

func TestStore_MissingManifestIsStale(t *testing.T) {
	dir := t.TempDir()
	loader := &countingLoader{table: sampleTable()}
	ctx := context.Background()
	store := newTestStore(dir)

	_, err := store.Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, testKey+manifestSuffix)))

	_, err = store.Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestStore_EmptyFingerprintTrustsArtifact(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleTable()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, testKey), buf.Bytes(), 0o644))

	loader := &countingLoader{}
	got, err := newTestStore(dir).Load(context.Background(), testKey, "", loader.load)
	require.NoError(t, err)

	assert.Equal(t, 0, loader.calls)
	assert.Equal(t, 3, got.Len())
}

func TestStore_CorruptArtifactIsFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, testKey), []byte("garbage"), 0o644))

	loader := &countingLoader{table: sampleTable()}
	_, err := newTestStore(dir).Load(context.Background(), testKey, "", loader.load)

	require.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, 0, loader.calls, "corrupt cache must not be silently recomputed")
}

func TestStore_LoaderErrorIsReturned(t *testing.T) {
	dir := t.TempDir()
	boom := errors.New("boom")
	loader := &countingLoader{err: boom}

	_, err := newTestStore(dir).Load(context.Background(), testKey, testFingerprint, loader.load)
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(filepath.Join(dir, testKey))
	assert.True(t, os.IsNotExist(statErr), "nothing is written on failure")
}

func TestStore_Compression(t *testing.T) {
	dir := t.TempDir()
	loader := &countingLoader{table: sampleTable()}
	ctx := context.Background()

	_, err := newTestStore(dir, WithCompression(true)).Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, testKey))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, snappyMagic))

	// A store with compression off still reads the framed artifact.
	got, err := newTestStore(dir).Load(ctx, testKey, testFingerprint, loader.load)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, sampleTable().Equal(got))
}

func TestStore_ManifestContents(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newTestStore(dir, WithClock(clockwork.NewFakeClockAt(now)), WithCompression(true))

	require.NoError(t, store.Save(testKey, testFingerprint, sampleTable()))

	m, err := store.Manifest(testKey)
	require.NoError(t, err)
	assert.Equal(t, Manifest{
		Key:         testKey,
		Fingerprint: testFingerprint,
		Rows:        3,
		Columns:     domain.MagnetometerColumns,
		CreatedAt:   now,
		RunID:       testRunID,
		Compressed:  true,
	}, m)
}

func TestStore_StatusAndClear(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(dir)
	require.NoError(t, store.Save(testKey, testFingerprint, sampleTable()))

	entries, err := store.Status([]string{testKey, "quake.cache"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Exists)
	assert.Positive(t, entries[0].Size)
	require.NotNil(t, entries[0].Manifest)
	assert.Equal(t, 3, entries[0].Manifest.Rows)
	assert.False(t, entries[1].Exists)
	assert.Nil(t, entries[1].Manifest)

	removed, err := store.Clear([]string{testKey, "quake.cache"})
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	entries, err = store.Status([]string{testKey})
	require.NoError(t, err)
	assert.False(t, entries[0].Exists)
}
