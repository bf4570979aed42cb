// Package watch re-runs a generation step whenever the schema directory
// changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/artpar/neris-schemas/domain/schema"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 250 * time.Millisecond

// RunFunc is invoked once per settled burst of changes.
type RunFunc func(ctx context.Context) error

// Watcher watches one directory for schema document changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	run      RunFunc
	initial  bool
	logger   zerolog.Logger
}

// Config contains configuration for a watcher.
type Config struct {
	Dir      string
	Debounce time.Duration // defaults to DefaultDebounce
	Run      RunFunc
	Initial  bool // run once before waiting for changes
	Logger   zerolog.Logger
}

// New creates a new watcher.
func New(cfg Config) *Watcher {
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      cfg.Dir,
		debounce: debounce,
		run:      cfg.Run,
		initial:  cfg.Initial,
		logger:   cfg.Logger,
	}
}

// Run watches until ctx is done. Failures of the run function are logged
// and watching continues. Returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}

	w.logger.Info().Str("dir", w.dir).Msg("watching schemas for changes")

	if w.initial {
		w.invoke(ctx)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}

			w.logger.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("schema changed")

			timer.Reset(w.debounce)

		case <-timer.C:
			w.invoke(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("file watcher error")

		case <-ctx.Done():
			w.logger.Info().Msg("stopped watching schemas")
			return nil
		}
	}
}

func (w *Watcher) invoke(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.run(ctx); err != nil {
		w.logger.Error().Err(err).Msg("regeneration failed, waiting for next change")
	}
}

// relevant reports whether event touches a schema document.
func relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if _, ok := schema.NameFromFile(base); !ok {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
