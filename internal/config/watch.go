package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/cassia-project/compositor/internal/core"
)

// Run watches the config file for writes and reparses it on every one,
// blocking until done is closed. Call it in its own goroutine, the same
// shape as AssetManager.start: one fsnotify.Watcher, a select over its
// Events/Errors channels plus a stop channel.
func (w *Watcher) Run(done <-chan struct{}) error {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatch.Close()

	// fsnotify watches the containing directory rather than the file
	// itself: editors that replace a file via rename-over (vim, many
	// config management tools) would otherwise orphan the watch on the
	// old inode.
	dir := filepath.Dir(w.path)
	if err := fsWatch.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case e, ok := <-fsWatch.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(e.Name) != filepath.Clean(w.path) {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.reload()
			}

		case err, ok := <-fsWatch.Errors:
			if !ok {
				return nil
			}
			core.LogError("config: watch error: %v", err)

		case <-done:
			return nil
		}
	}
}
