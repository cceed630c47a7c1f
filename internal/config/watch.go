package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// ReloadHandler receives each config that loaded and validated cleanly.
// A non-nil error stops the watcher and is returned from Run.
type ReloadHandler func(cfg *Config) error

// Watcher reloads a config file when it changes.
//
// The file's directory is watched rather than the file itself, so editors
// that save by renaming a temporary file over it are seen. Bursts of
// events are debounced: the file is reloaded once the debounce window
// passes with no further change. A config that fails to load or validate
// is logged and dropped; the previous one stays in effect.
type Watcher struct {
	path     string
	handler  ReloadHandler
	debounce time.Duration
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for path. debounce <= 0 takes
// DefaultDebounce.
func NewWatcher(path string, debounce time.Duration, handler ReloadHandler) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	return &Watcher{path: abs, handler: handler, debounce: debounce, watcher: fw}, nil
}

// Run delivers reloads until ctx is done or the handler fails. It returns
// nil once ctx is cancelled; the underlying watcher is closed on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
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

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer, timerC = nil, nil
			if err := w.reload(); err != nil {
				return err
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config reload failed, keeping previous config", "path", w.path, "error", err)
		return nil
	}
	if errs := Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			slog.Warn("config reload rejected", "path", w.path, "code", e.Code, "field", e.Field, "error", e.Message)
		}
		return nil
	}
	slog.Info("config reloaded", "path", w.path)
	return w.handler(cfg)
}
