package browser

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
)

// NativeEntry is one entry of an OS file drop.
type NativeEntry interface {
	Name() string
	IsDir() bool
	// File returns the uploadable file. Only called when IsDir is false.
	File() (store.File, error)
	// ReadEntries returns the direct children. Only called when IsDir is true.
	ReadEntries(ctx context.Context) ([]NativeEntry, error)
}

// UploadItem is a single file to upload and the directory it goes to.
type UploadItem struct {
	File store.File
	Dest string
}

// WalkUploads yields the files below root depth-first, each paired with
// the directory mirroring its position under dest. Directories are read
// only when the walk reaches them. A read failure is yielded once and ends
// the walk.
func WalkUploads(ctx context.Context, m pathmodel.Model, root NativeEntry, dest string) iter.Seq2[UploadItem, error] {
	return func(yield func(UploadItem, error) bool) {
		walkEntry(ctx, m, root, m.Normalize(dest), yield)
	}
}

func walkEntry(ctx context.Context, m pathmodel.Model, e NativeEntry, dest string, yield func(UploadItem, error) bool) bool {
	if err := ctx.Err(); err != nil {
		yield(UploadItem{}, err)
		return false
	}
	if !e.IsDir() {
		f, err := e.File()
		if err != nil {
			yield(UploadItem{}, fmt.Errorf("open %s: %w", e.Name(), err))
			return false
		}
		return yield(UploadItem{File: f, Dest: dest}, nil)
	}
	children, err := e.ReadEntries(ctx)
	if err != nil {
		yield(UploadItem{}, fmt.Errorf("read %s: %w", e.Name(), err))
		return false
	}
	sub := m.Join(dest, e.Name())
	for _, c := range children {
		if !walkEntry(ctx, m, c, sub, yield) {
			return false
		}
	}
	return true
}

// Uploader pumps native drops into a store one file at a time.
type Uploader struct {
	store  store.DirectoryStore
	paths  pathmodel.Model
	Logger *logging.Logger
	// OnFile, when set, is called after every file upload attempt.
	OnFile func(item UploadItem, err error)
}

// NewUploader creates an uploader for st.
func NewUploader(st store.DirectoryStore, m pathmodel.Model) *Uploader {
	return &Uploader{store: st, paths: m, Logger: logging.NewNopLogger()}
}

// Process uploads every root into dest. Roots are handled in order and a
// root's tree fully settles before the next one starts; a failing root is
// abandoned, reported to onFail and the remaining roots still run.
func (u *Uploader) Process(ctx context.Context, roots []NativeEntry, dest string, onFail func(root string, err error)) error {
	var errs []error
	for _, root := range roots {
		if err := u.Upload(ctx, root, dest); err != nil {
			errs = append(errs, err)
			if onFail != nil {
				onFail(root.Name(), err)
			}
			if ctx.Err() != nil {
				break
			}
		}
	}
	return errors.Join(errs...)
}

// Upload uploads the tree below root sequentially and stops at the first failure.
func (u *Uploader) Upload(ctx context.Context, root NativeEntry, dest string) error {
	count := 0
	for it, err := range WalkUploads(ctx, u.paths, root, dest) {
		if err != nil {
			return fmt.Errorf("upload %s: %w", root.Name(), err)
		}
		err = u.store.Upload(ctx, it.File, it.Dest)
		if u.OnFile != nil {
			u.OnFile(it, err)
		}
		if err != nil {
			return fmt.Errorf("upload %s to %s: %w", it.File.Name(), it.Dest, err)
		}
		count++
	}
	u.Logger.Debug().Str("root", root.Name()).Int("files", count).Str("dest", dest).Msg("Upload finished")
	return nil
}
