package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 500 * time.Millisecond

// Watch reloads the config file whenever it changes and hands the fresh
// config to onChange. The parent directory is watched rather than the file,
// since editors often replace files instead of writing them in place.
// Reloads that fail to parse are logged and skipped. Watch blocks until ctx
// is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	slog.Info("watching config for changes", "path", abs)

	var (
		timer  *time.Timer
		fire   <-chan time.Time
		target = filepath.Clean(abs)
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)

		case <-fire:
			fire = nil
			cfg, err := Load(abs)
			if err != nil {
				slog.Warn("config reload failed, keeping previous config", "path", abs, "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				slog.Warn("reloaded config is invalid, keeping previous config", "error", err)
				continue
			}
			slog.Info("config reloaded", "path", abs)
			onChange(cfg)
		}
	}
}
