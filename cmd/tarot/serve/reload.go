package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/tarot/pkg/throttle"
)

const (
	configFileName = "config.toml"
	reloadDelay    = 250 * time.Millisecond
)

// watchConfig calls onChange when config.toml inside dir is written, created
// or renamed into place. Bursts of events are coalesced by a throttle so an
// editor's save only triggers a couple of reloads. It blocks until ctx is done.
func watchConfig(ctx context.Context, dir string, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory; editors often replace the file rather than
	// writing it in place.
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	reload := throttle.New(func(struct{}) { onChange() }, reloadDelay)
	defer reload.Stop()

	target := filepath.Join(dir, configFileName)
	logger.Debug("watching config", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("config changed", "op", event.Op.String())
			reload.Call(struct{}{})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
