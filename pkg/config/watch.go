package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher is a Source backed by the [bot] section of a TOML file. The file is
// re-read whenever it changes; the environment is overlaid on every call.
type Watcher struct {
	path    string
	logger  *zap.Logger
	lookup  func(string) (string, bool)
	watcher *fsnotify.Watcher

	defaults Settings

	mu       sync.RWMutex
	settings Settings
}

// NewWatcher loads path and starts watching its directory. Editors that
// replace the file on save are handled by matching on the file name.
func NewWatcher(path string, defaults Settings, logger *zap.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s: %w", path, err)
	}

	w := &Watcher{
		path:     abs,
		logger:   logger,
		lookup:   os.LookupEnv,
		defaults: defaults,
		settings: defaults,
	}

	if err := w.reload(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("could not watch %s: %w", filepath.Dir(abs), err)
	}
	w.watcher = fw

	return w, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := w.reload(); err != nil {
				w.logger.Warn("keeping previous bot settings", zap.Error(err))
				continue
			}
			w.logger.Info("reloaded bot settings", zap.String("path", w.path))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() error {
	var file struct {
		Bot Settings `toml:"bot"`
	}

	file.Bot = w.defaults
	if _, err := toml.DecodeFile(w.path, &file); err != nil {
		return fmt.Errorf("could not decode %s: %w", w.path, err)
	}

	w.mu.Lock()
	w.settings = file.Bot
	w.mu.Unlock()
	return nil
}

func (w *Watcher) Settings() Settings {
	w.mu.RLock()
	s := w.settings
	w.mu.RUnlock()

	return overlayEnv(s, w.lookup)
}

// Close stops watching the file.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
