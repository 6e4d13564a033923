// Package watch reloads the dataset when its source document changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

// DefaultDebounce is the quiet period after the last change before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Loader produces a fresh dataset from a document.
type Loader interface {
	Run(ctx context.Context, path string) (*pipeline.Result, error)
}

// Publisher receives successfully reloaded datasets.
type Publisher interface {
	Set(r *pipeline.Result)
}

// Watcher re-runs the loader after the document is written or replaced. A
// failed reload leaves the published dataset untouched.
type Watcher struct {
	path     string
	debounce time.Duration
	loader   Loader
	store    Publisher
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Watcher for the document at path.
func New(path string, debounce time.Duration, loader Loader, store Publisher, metrics *observability.Metrics, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		loader:   loader,
		store:    store,
		clock:    clockwork.NewRealClock(),
		metrics:  metrics,
		logger:   logger,
	}
}

// Run watches the document's directory until ctx is cancelled. Editors
// commonly save by writing a temporary file and renaming it over the
// original, so the directory is watched rather than the file itself.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Info("watching source for changes", "source", w.path, "debounce", w.debounce)

	return w.loop(ctx, fw.Events, fw.Errors)
}

func (w *Watcher) loop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	var (
		timer clockwork.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("source changed", "source", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = w.clock.NewTimer(w.debounce)
			} else {
				timer.Stop()
				timer.Reset(w.debounce)
			}
			fire = timer.Chan()

		case err, ok := <-errs:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	return filepath.Clean(ev.Name) == w.path && ev.Has(fsnotify.Write|fsnotify.Create)
}

func (w *Watcher) reload(ctx context.Context) {
	res, err := w.loader.Run(ctx, w.path)
	if err != nil {
		w.metrics.Reloads.WithLabelValues("error").Inc()
		w.logger.Error("reload failed, keeping previous dataset", "source", w.path, "error", err)
		return
	}
	w.store.Set(res)
	w.metrics.Reloads.WithLabelValues("success").Inc()
	w.logger.Info("dataset reloaded", "source", w.path, "readings", len(res.Points))
}
