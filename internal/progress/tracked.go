package progress

import (
	"context"
	"io"
	"sync"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/store"
)

// Track wraps a native drop entry so that every file uploaded below it
// draws a bar on ui. Call Complete with the result of each upload.
func Track(e browser.NativeEntry, ui UI) browser.NativeEntry {
	return &trackedEntry{NativeEntry: e, ui: ui}
}

type trackedEntry struct {
	browser.NativeEntry
	ui UI
}

func (t *trackedEntry) File() (store.File, error) {
	f, err := t.NativeEntry.File()
	if err != nil {
		return nil, err
	}
	local := t.Name()
	if p, ok := t.NativeEntry.(interface{ Path() string }); ok {
		local = p.Path()
	}
	return &trackedFile{File: f, ui: t.ui, local: local}, nil
}

func (t *trackedEntry) ReadEntries(ctx context.Context) ([]browser.NativeEntry, error) {
	children, err := t.NativeEntry.ReadEntries(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]browser.NativeEntry, len(children))
	for i, c := range children {
		out[i] = Track(c, t.ui)
	}
	return out, nil
}

type trackedFile struct {
	store.File
	ui    UI
	local string

	mu  sync.Mutex
	bar FileBarHandle
}

func (f *trackedFile) Open() (io.ReadCloser, error) {
	rc, err := f.File.Open()
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	if f.bar == nil {
		f.bar = f.ui.AddFileBar(f.local, f.Size())
	} else {
		f.bar.Restart()
	}
	bar := f.bar
	f.mu.Unlock()
	return struct {
		io.Reader
		io.Closer
	}{NewProgressReader(rc, bar.IncrBy), rc}, nil
}

// Complete reports the result of uploading f. Files that were not opened
// through Track (or never opened) only get a bar when err is set.
func Complete(ui UI, f store.File, err error) {
	tf, ok := f.(*trackedFile)
	if !ok {
		if err != nil && f != nil {
			ui.AddFileBar(f.Name(), f.Size()).Complete(err)
		}
		return
	}
	tf.mu.Lock()
	bar := tf.bar
	if bar == nil {
		bar = ui.AddFileBar(tf.local, tf.Size())
		tf.bar = bar
	}
	tf.mu.Unlock()
	bar.Complete(err)
}
