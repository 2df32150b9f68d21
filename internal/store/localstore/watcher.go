package localstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rescale/pathbrowser/internal/localfs"
)

// Watch implements store.Watcher. It reports the browser path of every
// directory whose direct children changed, coalescing bursts per directory
// over Options.Debounce. New subdirectories are watched as they appear.
// Watch blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, changed func(dir string)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := s.addTree(w, s.base); err != nil {
		return err
	}

	d := newDebouncer(s.opts.Debounce, changed)
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != s.base && s.filter.Excluded(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.addTree(w, ev.Name); err != nil {
						s.logger.Warn().Err(err).Str("path", ev.Name).Msg("Failed to watch new directory")
					}
				}
			}
			d.trigger(s.browserPath(filepath.Dir(ev.Name)))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// addTree watches dir and every visible directory below it.
func (s *Store) addTree(w *fsnotify.Watcher, dir string) error {
	opts := localfs.WalkOptions{Filter: s.filter, SkipHiddenDirs: true}
	return localfs.Walk(dir, opts, func(e localfs.FileEntry) error {
		if !e.IsDir {
			return nil
		}
		if err := w.Add(e.Path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", e.Path, err)
		}
		return nil
	})
}

// debouncer fires fn once per key after a quiet period.
type debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func(string)
	pending map[string]*time.Timer
	stopped bool
}

func newDebouncer(delay time.Duration, fn func(string)) *debouncer {
	return &debouncer{delay: delay, fn: fn, pending: make(map[string]*time.Timer)}
}

func (d *debouncer) trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if t, ok := d.pending[key]; ok {
		t.Reset(d.delay)
		return
	}
	d.pending[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.pending, key)
		stopped := d.stopped
		d.mu.Unlock()
		if !stopped {
			d.fn(key)
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for k, t := range d.pending {
		t.Stop()
		delete(d.pending, k)
	}
}
