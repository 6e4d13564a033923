package watch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

// --- mocks ---

type mockLoader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockLoader) Run(_ context.Context, path string) (*pipeline.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.Result{
		Points: []domain.DerivedPoint{{Reading: domain.Reading{Time: time.Unix(int64(m.calls), 0), Temperature: 20}}},
		Report: pipeline.Report{Source: path},
	}, nil
}

func (m *mockLoader) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type harness struct {
	w       *Watcher
	loader  *mockLoader
	store   *pipeline.Store
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
	events  chan fsnotify.Event
	errs    chan error
	done    chan error
}

func start(t *testing.T, path string, loader *mockLoader) *harness {
	t.Helper()
	h := &harness{
		loader:  loader,
		store:   &pipeline.Store{},
		clock:   clockwork.NewFakeClock(),
		metrics: observability.NewMetricsForTesting(),
		events:  make(chan fsnotify.Event),
		errs:    make(chan error),
		done:    make(chan error, 1),
	}
	h.w = New(path, time.Second, loader, h.store, h.metrics, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.w.clock = h.clock

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.done <- h.w.loop(ctx, h.events, h.errs) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-h.done)
	})
	return h
}

func reloads(h *harness, outcome string) float64 {
	return testutil.ToFloat64(h.metrics.Reloads.WithLabelValues(outcome))
}

func (h *harness) fireDebounce(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, 1))
	h.clock.Advance(time.Second)
}

// --- tests ---

func TestWatcher_ReloadsAfterDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.xlsx")
	h := start(t, path, &mockLoader{})

	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Create}
	assert.Zero(t, h.loader.Calls(), "no reload before the quiet period")

	h.fireDebounce(t)

	require.Eventually(t, func() bool { return reloads(h, "success") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, h.loader.Calls())
	res, ok := h.store.Latest()
	require.True(t, ok)
	assert.Equal(t, path, res.Report.Source)
}

func TestWatcher_IgnoresOtherFilesAndOps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readings.xlsx")
	h := start(t, path, &mockLoader{})

	h.events <- fsnotify.Event{Name: filepath.Join(dir, "~$readings.xlsx"), Op: fsnotify.Write}
	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Chmod}
	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Remove}
	h.errs <- errors.New("queue overflow")

	assert.Never(t, func() bool { return h.loader.Calls() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	_, ok := h.store.Latest()
	assert.False(t, ok)
}

func TestWatcher_FailedReloadKeepsPreviousDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.xlsx")
	loader := &mockLoader{}
	h := start(t, path, loader)

	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	h.fireDebounce(t)
	require.Eventually(t, func() bool { return reloads(h, "success") == 1 }, time.Second, 5*time.Millisecond)
	before, _ := h.store.Latest()

	loader.mu.Lock()
	loader.err = domain.ErrEmptyDataset
	loader.mu.Unlock()

	h.events <- fsnotify.Event{Name: path, Op: fsnotify.Write}
	h.fireDebounce(t)
	require.Eventually(t, func() bool { return reloads(h, "error") == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, loader.Calls())

	after, ok := h.store.Latest()
	require.True(t, ok)
	assert.Same(t, before, after)
}

func TestWatcher_RunWatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "readings.csv")
	require.NoError(t, os.WriteFile(path, []byte("Time,Temperature\n"), 0o600))

	loader := &mockLoader{}
	store := &pipeline.Store{}
	w := New(path, 10*time.Millisecond, loader, store, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte("Time,Temperature\n20250101 00:00:00,20\n"), 0o600); err != nil {
			return false
		}
		return loader.Calls() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	_, ok := store.Latest()
	assert.True(t, ok)
}

func TestWatcher_RunMissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "gone", "readings.xlsx"), 0, &mockLoader{}, &pipeline.Store{},
		observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
}
