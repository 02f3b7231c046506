// Package watcher invalidates the content cache when post files change on
// disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces editor save bursts into one invalidation.
const DefaultDebounce = 250 * time.Millisecond

// Invalidator drops cached content.
type Invalidator interface {
	Invalidate()
}

// Watcher watches directories for *.json changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	target   Invalidator
	debounce time.Duration
	logger   *slog.Logger
}

// New watches each of dirs, creating missing ones.
func New(target Invalidator, debounce time.Duration, dirs ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	seen := make(map[string]struct{})
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("creating watched dir %s: %w", dir, err)
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	return &Watcher{
		fsw:      fsw,
		target:   target,
		debounce: debounce,
		logger:   slog.Default().With("component", "content-watcher"),
	}, nil
}

// Run dispatches debounced invalidations until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := 0

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending++
			timer.Reset(w.debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case <-timer.C:
			if pending == 0 {
				continue
			}
			w.logger.Info("content changed on disk", "events", pending)
			pending = 0
			w.target.Invalidate()
		}
	}
}

func relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
