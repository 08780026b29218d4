// Package watch keeps a schema loaded from SDL files current while the files
// change on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	eventbus "github.com/hanpama/fieldgraph/internal/eventbus"
	events "github.com/hanpama/fieldgraph/internal/events"
	schema "github.com/hanpama/fieldgraph/internal/schema"
)

type snapshot struct {
	schema     *schema.Schema
	generation uint64
}

// Watcher reloads the schema whenever one of its files is written. A failed
// reload keeps the previous schema.
type Watcher struct {
	paths    []string
	watched  map[string]bool
	logger   *zap.Logger
	bus      *eventbus.Bus
	debounce time.Duration

	fsw     *fsnotify.Watcher
	current atomic.Pointer[snapshot]

	reloadMu sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	closed   sync.Once
}

type Option func(*Watcher)

// WithDebounce sets how long to wait for further writes before reloading.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// New loads the schema from paths and starts watching their directories.
func New(paths []string, logger *zap.Logger, bus *eventbus.Bus, opts ...Option) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		paths:    append([]string(nil), paths...),
		watched:  make(map[string]bool, len(paths)),
		logger:   logger.Named("watch"),
		bus:      bus,
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}

	s, err := schema.LoadFiles(w.paths...)
	if err != nil {
		return nil, err
	}
	w.current.Store(&snapshot{schema: s, generation: 1})

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch schema: %w", err)
	}
	dirs := map[string]bool{}
	for _, p := range w.paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch schema: %w", err)
		}
		w.watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			_ = fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		w.logger.Debug("watching directory", zap.String("dir", dir))
	}
	w.fsw = fsw

	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Schema returns the most recently loaded schema.
func (w *Watcher) Schema() *schema.Schema { return w.current.Load().schema }

// Generation counts successful loads, starting at 1.
func (w *Watcher) Generation() uint64 { return w.current.Load().generation }

// Current returns the schema together with its generation.
func (w *Watcher) Current() (*schema.Schema, uint64) {
	snap := w.current.Load()
	return snap.schema, snap.generation
}

// Reload rebuilds the schema from disk.
func (w *Watcher) Reload(ctx context.Context) error {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	prev := w.current.Load()
	s, err := schema.LoadFiles(w.paths...)
	if err != nil {
		w.logger.Error("schema reload failed", zap.Strings("files", w.paths), zap.Error(err))
		eventbus.Publish(ctx, w.bus, events.SchemaReloaded{Files: w.paths, Generation: prev.generation, Err: err})
		return err
	}
	next := &snapshot{schema: s, generation: prev.generation + 1}
	w.current.Store(next)
	w.logger.Info("schema reloaded", zap.Strings("files", w.paths), zap.Uint64("generation", next.generation))
	eventbus.Publish(ctx, w.bus, events.SchemaReloaded{Files: w.paths, Generation: next.generation})
	return nil
}

// Close stops watching. The last schema stays readable.
func (w *Watcher) Close() error {
	var err error
	w.closed.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) || !w.watched[filepath.Clean(ev.Name)] {
				continue
			}
			w.logger.Debug("schema file changed", zap.String("file", ev.Name), zap.Stringer("op", ev.Op))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			_ = w.Reload(context.Background())

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
