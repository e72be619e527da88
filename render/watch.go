// Copyright (c) 2026 Stonework Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package render

import (
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the burst of filesystem events editors emit
// per save into a single recompile.
const reloadDebounce = 100 * time.Millisecond

func (r *Renderer) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	err = filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		_ = w.Close()
		return err
	}

	r.done = make(chan struct{})
	r.closeErr = w.Close
	go r.watchLoop(w)
	return nil
}

func (r *Renderer) watchLoop(w *fsnotify.Watcher) {
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := w.Add(ev.Name); err != nil {
						r.logger.Warn("failed to watch new template directory",
							zap.String("dir", ev.Name),
							zap.Error(err),
						)
					}
				}
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn("template watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			if err := r.Reload(); err != nil {
				r.logger.Warn("template reload failed, keeping previous set", zap.Error(err))
			}
		case <-r.done:
			return
		}
	}
}
