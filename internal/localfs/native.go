package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/store"
)

// NativeEntry is an OS path offered to the browser as a drop source.
// Directories are read lazily when the upload walk reaches them.
type NativeEntry struct {
	path   string
	info   os.FileInfo
	filter Filter
}

var _ browser.NativeEntry = (*NativeEntry)(nil)

// Open stats path and wraps it as a drop source. Children that f excludes
// are not offered; f.Base defaults to path.
func Open(path string, f Filter) (*NativeEntry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if f.Base == "" {
		f.Base = abs
	}
	return &NativeEntry{path: abs, info: info, filter: f}, nil
}

// OpenAll opens every path, failing on the first that cannot be stat'ed.
func OpenAll(paths []string, f Filter) ([]browser.NativeEntry, error) {
	out := make([]browser.NativeEntry, 0, len(paths))
	for _, p := range paths {
		e, err := Open(p, f)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", p, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// Path returns the absolute OS path.
func (e *NativeEntry) Path() string { return e.path }

func (e *NativeEntry) Name() string { return e.info.Name() }

func (e *NativeEntry) IsDir() bool { return e.info.IsDir() }

func (e *NativeEntry) File() (store.File, error) {
	if e.info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", e.path)
	}
	return &OSFile{path: e.path, name: e.info.Name(), size: e.info.Size()}, nil
}

func (e *NativeEntry) ReadEntries(ctx context.Context) ([]browser.NativeEntry, error) {
	entries, err := ListDirectory(ctx, e.path, e.filter)
	if err != nil {
		return nil, err
	}
	out := make([]browser.NativeEntry, 0, len(entries))
	for _, fe := range entries {
		info, err := os.Stat(fe.Path)
		if err != nil {
			continue
		}
		out = append(out, &NativeEntry{path: fe.Path, info: info, filter: e.filter})
	}
	return out, nil
}

// OSFile is an uploadable file on local disk.
type OSFile struct {
	path string
	name string
	size int64
}

// NewOSFile wraps path as a store.File named after its base name.
func NewOSFile(path string) (*OSFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &OSFile{path: path, name: info.Name(), size: info.Size()}, nil
}

func (f *OSFile) Name() string { return f.name }

func (f *OSFile) Size() int64 { return f.size }

func (f *OSFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }

// Path returns the file's OS path.
func (f *OSFile) Path() string { return f.path }
