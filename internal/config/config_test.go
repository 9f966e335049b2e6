package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "cassiad.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `socket_name = "custom"`+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.SocketName)
	assert.Equal(t, Default().ListenBacklog, cfg.ListenBacklog)
	assert.Equal(t, Default().FramesInFlight, cfg.FramesInFlight)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedToml(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "socket_name = [[[")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestParseLogLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, "debug", ParseLogLevel("debug"))
	assert.Equal(t, "info", ParseLogLevel("bogus"))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `socket_name = "first"`+"\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	assert.Equal(t, "first", w.Current().SocketName)

	done := make(chan struct{})
	defer close(done)
	go w.Run(done)

	reloaded := make(chan Config, 1)
	w.OnReload(func(cfg Config) { reloaded <- cfg })

	// Give the watcher goroutine time to register its directory watch
	// before the write lands.
	time.Sleep(50 * time.Millisecond)
	writeConfig(t, dir, `socket_name = "second"`+"\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "second", cfg.SocketName)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
	assert.Equal(t, "second", w.Current().SocketName)
}
