// Package config loads cassiad.toml and watches it for changes, the way
// the teacher's engine/assets.AssetManager watches the asset tree:
// a single fsnotify.Watcher, an events/errors channel pair and a
// goroutine reading both until told to stop.
package config

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/cassia-project/compositor/internal/core"
)

// Config is the daemon's full runtime configuration, loaded once at
// startup and mutated in place (behind mu) by the live-reload watcher.
type Config struct {
	// SocketName is the abstract-namespace name clients connect to.
	SocketName string `toml:"socket_name"`
	// ListenBacklog bounds the pending-connection queue.
	ListenBacklog int `toml:"listen_backlog"`
	// FramesInFlight sizes the display loop's rotating frame slots.
	FramesInFlight int `toml:"frames_in_flight"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `toml:"log_level"`
	// ValidationLayers toggles the Vulkan validation/debug-report layer.
	ValidationLayers bool `toml:"validation_layers"`
}

// Default returns the configuration the daemon ships with absent a file
// on disk.
func Default() Config {
	return Config{
		SocketName:       "cassia",
		ListenBacklog:    64,
		FramesInFlight:   3,
		LogLevel:         "info",
		ValidationLayers: false,
	}
}

// Load reads and parses path, falling back to Default() values for any
// field the file does not set (go-toml/v2 unmarshals onto an
// already-populated struct, leaving absent fields untouched).
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher holds the live Config plus the fsnotify machinery that keeps
// it current. Callers read Current() from any goroutine; only the
// watch loop writes to it.
type Watcher struct {
	mu   sync.RWMutex
	cfg  Config
	path string

	onReload []func(Config)
}

// NewWatcher loads path once and returns a Watcher ready to have its Run
// method started in its own goroutine, mirroring AssetManager's
// Initialize/start split.
func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Watcher{cfg: cfg, path: path}, nil
}

// Current returns a snapshot of the live configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// OnReload registers a callback invoked with the new Config every time
// the watched file changes and reparses cleanly. A bad reparse is
// logged and the previous Config is kept.
func (w *Watcher) OnReload(fn func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogWarn("config: reload of %s failed, keeping current config: %v", w.path, err)
		return
	}

	w.mu.Lock()
	w.cfg = cfg
	callbacks := append([]func(Config){}, w.onReload...)
	w.mu.Unlock()

	core.LogInfo("config: reloaded %s", w.path)
	for _, fn := range callbacks {
		fn(cfg)
	}
}

// ParseLogLevel resolves a Config.LogLevel string against the set
// core.SetLevel understands, defaulting to info for anything else.
func ParseLogLevel(level string) string {
	switch level {
	case "debug", "info", "warn", "error":
		return level
	default:
		return "info"
	}
}
