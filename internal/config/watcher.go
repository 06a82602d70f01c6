package config

import (
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 150 * time.Millisecond

// Watch reloads the config file at path whenever it changes and sends
// the result on the returned channel. The directory is watched rather
// than the file, so editors that replace the file on save are handled.
// Reload errors are logged and skipped.
func Watch(path string, logger *slog.Logger) (<-chan *Config, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, nil, err
	}

	target := filepath.Clean(path)
	out := make(chan *Config, 1)

	go func() {
		var debounceTimer *time.Timer
		var closed bool
		var mu sync.Mutex

		defer func() {
			mu.Lock()
			closed = true
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			mu.Unlock()
			close(out)
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				mu.Lock()
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(reloadDebounce, func() {
					cfg, err := LoadFrom(path)

					mu.Lock()
					defer mu.Unlock()
					if closed {
						return
					}
					if err != nil {
						logger.Warn("config: reload failed", "path", path, "err", err)
						return
					}
					// Drop a stale pending config in favour of the newest.
					select {
					case <-out:
					default:
					}
					out <- cfg
				})
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug("config: watch error", "err", err)
			}
		}
	}()

	return out, watcher, nil
}
