package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a config file and reports semantic changes as a [Diff]. It
// uses polling (not fsnotify) to keep dependencies minimal; config edits are
// rare, so a coarse interval is fine.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(cfg *Config, diff Diff)

	mu        sync.Mutex
	current   *Config
	lastMtime time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher creates a config file watcher. It loads the initial config
// immediately and starts polling in a background goroutine. Invalid rewrites
// of the file are logged and skipped; the previous config stays current.
// Rewrites that only change formatting never fire the callback: changes are
// detected on the parsed config, not the file bytes.
func NewWatcher(path string, onChange func(cfg *Config, diff Diff), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, mtime, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastMtime = mtime

	go w.poll()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the file watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check reloads the config file and, if the parsed config differs from the
// current one, swaps it in and reports the Diff through onChange.
func (w *Watcher) check() {
	// Quick mtime check first to avoid reparsing unchanged files.
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	mtime := w.lastMtime
	w.mu.Unlock()

	if info.ModTime().Equal(mtime) {
		return
	}

	cfg, newMtime, err := w.load()
	if err != nil {
		slog.Warn("config watcher: failed to load config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.lastMtime = newMtime
	old := w.current
	if *cfg == *old {
		// Touched or reformatted without a semantic change.
		w.mu.Unlock()
		return
	}
	w.current = cfg
	w.mu.Unlock()

	diff := Compare(old, cfg)
	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Invoke the callback outside the lock so it can safely call Current().
	if w.onChange != nil {
		w.onChange(cfg, diff)
	}
}

// load reads, parses, and validates the config file, returning the config
// alongside the file's modification time.
func (w *Watcher) load() (*Config, time.Time, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	cfg, err := Load(w.path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return cfg, info.ModTime(), nil
}
