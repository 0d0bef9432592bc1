// Package watch re-runs work when a file changes on disk.
package watch

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/chazu/kerf/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// File calls onChange each time path is written, created or renamed into
// place, until ctx is cancelled. The parent directory is watched rather
// than the file itself so that editors which save by replacing the file
// keep triggering. Events within debounce of each other cause one call.
func File(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return errors.New("watch: event channel closed")
			}
			if filepath.Clean(e.Name) != abs {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debug("watch: %s %s", e.Op, e.Name)
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("watch: error channel closed")
			}
			logging.Error("watch: %v", err)

		case <-timer.C:
			onChange()

		case <-ctx.Done():
			return nil
		}
	}
}
