package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchLogPrefix = "bootstrap:watch"

// DefaultReloadDebounce is used when Watch is given a non-positive debounce.
const DefaultReloadDebounce = 500 * time.Millisecond

// Watch reloads path whenever it changes and hands every valid document to onReload.
// Bursts of file events within debounce collapse into one reload. Documents that fail
// to parse or validate are logged and skipped. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file so that editors which replace
// the file through a rename keep triggering reloads.
func Watch(ctx context.Context, path string, debounce time.Duration, onReload func(*Config)) error {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("%s - resolve %s: %w", watchLogPrefix, path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s - create watcher: %w", watchLogPrefix, err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("%s - watch %s: %w", watchLogPrefix, filepath.Dir(abs), err)
	}
	slog.Info(fmt.Sprintf("%s - Watching %s (debounce %s)", watchLogPrefix, abs, debounce))

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(debounce)
		timerC = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timerC:
			timerC = nil
			reload(path, onReload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn(fmt.Sprintf("%s - watcher error: %v", watchLogPrefix, err))
		case evt, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if shouldReload(evt, abs) {
				resetTimer()
			}
		}
	}
}

func shouldReload(evt fsnotify.Event, abs string) bool {
	if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
		return false
	}
	name, err := filepath.Abs(evt.Name)
	if err != nil {
		return false
	}
	return name == abs
}

func reload(path string, onReload func(*Config)) {
	cfg, err := LoadFile(path)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - reload failed: %v", watchLogPrefix, err))
		return
	}
	if err := Validate(cfg); err != nil {
		slog.Warn(fmt.Sprintf("%s - reload rejected: %v", watchLogPrefix, err))
		return
	}
	slog.Info(fmt.Sprintf("%s - Reloaded %s (%d services, %d conversions)", watchLogPrefix, path, len(cfg.Services), len(cfg.Conversions)))
	onReload(cfg)
}
