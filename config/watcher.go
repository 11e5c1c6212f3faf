package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads configuration when one of its files changes on disk and
// hands the new, validated config to a callback. Invalid edits are logged
// and the previous config stays in effect.
type Watcher struct {
	paths    []string
	watched  map[string]bool
	load     func() (*Config, error)
	debounce time.Duration
	onChange func(*Config)
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	hashMu   sync.Mutex
	lastHash string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for the single config file at path. Each
// reload is defaults plus that file.
func NewWatcher(path string, onChange func(*Config), logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	load := func() (*Config, error) { return LoadFromFile(abs) }
	return newWatcher([]string{abs}, load, onChange, logger, opts...)
}

// NewLayeredWatcher watches every file merged by the loader's last Load. A
// change to any of them rebuilds the full layered config with
// Loader.Reload, so settings from the other layers are kept.
func NewLayeredWatcher(loader *Loader, onChange func(*Config), logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	if loader == nil {
		return nil, fmt.Errorf("loader is required")
	}
	sources := loader.Sources()
	if len(sources) == 0 {
		return nil, fmt.Errorf("loader has no config files to watch")
	}
	paths := make([]string, 0, len(sources))
	for _, source := range sources {
		abs, err := filepath.Abs(source)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		paths = append(paths, abs)
	}
	return newWatcher(paths, loader.Reload, onChange, logger, opts...)
}

func newWatcher(paths []string, load func() (*Config, error), onChange func(*Config), logger *slog.Logger, opts ...WatcherOption) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	w := &Watcher{
		paths:    paths,
		watched:  make(map[string]bool, len(paths)),
		load:     load,
		debounce: DefaultDebounce,
		onChange: onChange,
		watcher:  fsw,
		logger:   logger,
	}
	for _, path := range paths {
		w.watched[filepath.Clean(path)] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	w.lastHash = w.contentHash()
	return w, nil
}

// Start begins watching. Parent directories are watched rather than the
// files so that editors which replace a file on save are still observed.
func (w *Watcher) Start(ctx context.Context) error {
	added := make(map[string]bool)
	for _, path := range w.paths {
		dir := filepath.Dir(path)
		if added[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch config directory: %w", err)
		}
		added[dir] = true
	}

	go w.processEvents(ctx)

	w.logger.Info("Config watcher started",
		"paths", w.paths,
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing.
func (w *Watcher) processEvents(ctx context.Context) {
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.watched[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				settle = time.After(w.debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)

		case <-settle:
			settle = nil
			w.reload()
		}
	}
}

// reload rebuilds, validates and publishes the config if any watched file
// changed.
func (w *Watcher) reload() {
	hash := w.contentHash()
	w.hashMu.Lock()
	unchanged := hash == w.lastHash
	w.hashMu.Unlock()
	if unchanged {
		return
	}

	cfg, err := w.load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Warn("Rejected config change, keeping current config",
			"paths", w.paths,
			"error", err)
		return
	}

	w.hashMu.Lock()
	w.lastHash = hash
	w.hashMu.Unlock()

	w.logger.Info("Config reloaded", "paths", w.paths)
	w.onChange(cfg)
}

// contentHash digests every watched file. Missing files hash as empty.
func (w *Watcher) contentHash() string {
	h := sha256.New()
	for _, path := range w.paths {
		data, err := os.ReadFile(path)
		if err != nil {
			data = nil
		}
		fmt.Fprintf(h, "%s\x00%d\x00", path, len(data))
		h.Write(data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
