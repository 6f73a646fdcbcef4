package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads the configuration at path whenever the file changes and
// passes each valid result to fn. Invalid files are logged and skipped. The
// parent directory is watched so editors that replace the file on save are
// seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config)) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			config, err := LoadFrom(path)
			if err == nil {
				err = config.Validate()
			}
			if err != nil {
				zap.L().Warn("ignoring invalid config change", zap.String("path", path), zap.Error(err))
				continue
			}
			zap.L().Info("config reloaded", zap.String("path", path))
			fn(config)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zap.L().Warn("config watcher error", zap.Error(err))
		}
	}
}
