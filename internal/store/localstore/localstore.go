// Package localstore implements store.DirectoryStore on a local directory.
//
// Browser paths are mapped onto OS paths below a base directory. Hidden
// entries and exclude patterns are filtered out of listings but can still be
// addressed directly.
package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/diskspace"
	"github.com/rescale/pathbrowser/internal/localfs"
	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/validation"
)

// Options configures a Store.
type Options struct {
	IncludeHidden bool
	// Exclude holds doublestar patterns relative to the base directory.
	Exclude []string
	// Debounce coalesces change notifications per directory. Zero uses
	// constants.WatchDebounce.
	Debounce time.Duration
	Logger   *logging.Logger
}

// Store is a DirectoryStore over a local directory tree.
type Store struct {
	base   string
	paths  pathmodel.Model
	filter localfs.Filter
	opts   Options
	logger *logging.Logger
}

var (
	_ store.DirectoryStore = (*Store)(nil)
	_ store.Watcher        = (*Store)(nil)
)

// New creates a store rooted at base, which must be an existing directory.
func New(base string, m pathmodel.Model, opts Options) (*Store, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", base, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open store root: %w", mapError(err))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", abs, store.ErrInvalidDirectory)
	}
	if err := localfs.ValidatePatterns(opts.Exclude); err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = constants.WatchDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{
		base:  abs,
		paths: m,
		filter: localfs.Filter{
			Base:          abs,
			IncludeHidden: opts.IncludeHidden,
			Exclude:       opts.Exclude,
		},
		opts:   opts,
		logger: logger,
	}, nil
}

// Base returns the absolute OS directory the store is rooted at.
func (s *Store) Base() string { return s.base }

// osPath maps a browser path to an OS path below base.
func (s *Store) osPath(path string) (string, error) {
	tokens := s.paths.Split(path)
	for _, tok := range tokens {
		if err := validation.ValidateSegment(tok); err != nil {
			return "", fmt.Errorf("%s escapes the store root: %w: %v", path, store.ErrUnauthorized, err)
		}
	}
	return filepath.Join(append([]string{s.base}, tokens...)...), nil
}

// browserPath maps an OS path below base back to a browser path.
func (s *Store) browserPath(osPath string) string {
	rel, err := filepath.Rel(s.base, osPath)
	if err != nil || rel == "." {
		return s.paths.Root()
	}
	return s.paths.Join(strings.Split(rel, string(os.PathSeparator))...)
}

// mapError translates OS errors onto the store sentinels.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", store.ErrUnauthorized, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
	default:
		return err
	}
}

// List implements store.DirectoryStore.
func (s *Store) List(ctx context.Context, path string) (store.Listing, error) {
	p, err := s.osPath(path)
	if err != nil {
		return store.Listing{}, fmt.Errorf("%s: %w", path, store.ErrInvalidDirectory)
	}
	entries, err := localfs.ListDirectory(ctx, p, s.filter)
	if err != nil {
		if ctx.Err() != nil {
			return store.Listing{}, err
		}
		return store.Listing{}, fmt.Errorf("%s: %w: %v", path, store.ErrInvalidDirectory, err)
	}

	listing := store.Listing{Dirs: []string{}, Files: []string{}}
	for _, e := range entries {
		if e.IsDir {
			listing.Dirs = append(listing.Dirs, e.Name)
		} else {
			listing.Files = append(listing.Files, e.Name)
		}
	}
	return listing, nil
}

// Create implements store.DirectoryStore.
func (s *Store) Create(ctx context.Context, kind store.Kind, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.osPath(path)
	if err != nil {
		return err
	}
	if err := s.requireDir(filepath.Dir(p)); err != nil {
		return err
	}

	if kind == store.KindDirectory {
		if err := os.Mkdir(p, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", path, mapError(err))
		}
		return nil
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, mapError(err))
	}
	return f.Close()
}

// Rename implements store.DirectoryStore.
func (s *Store) Rename(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, to, err := s.transferPaths(src, dest)
	if err != nil {
		return err
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to rename %s: %w", src, mapError(err))
	}
	s.logger.Debug().Str("src", src).Str("dest", dest).Msg("Renamed")
	return nil
}

// Copy implements store.DirectoryStore. Directories are copied recursively,
// hidden and excluded entries included.
func (s *Store) Copy(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from, to, err := s.transferPaths(src, dest)
	if err != nil {
		return err
	}

	err = localfs.Walk(from, localfs.WalkOptions{Filter: localfs.Filter{IncludeHidden: true}}, func(e localfs.FileEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(from, e.Path)
		if err != nil {
			return err
		}
		target := filepath.Join(to, rel)
		if e.IsDir {
			return os.MkdirAll(target, e.Mode.Perm()|0700)
		}
		if err := diskspace.Check(filepath.Dir(target), e.Size, constants.DiskSpaceMargin); err != nil {
			return err
		}
		return copyFile(e.Path, target, e.Mode.Perm())
	})
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, mapError(err))
	}
	s.logger.Debug().Str("src", src).Str("dest", dest).Msg("Copied")
	return nil
}

// transferPaths validates a rename or copy: src exists, dest does not, dest
// is not inside src and dest's parent is a directory.
func (s *Store) transferPaths(src, dest string) (string, string, error) {
	from, err := s.osPath(src)
	if err != nil {
		return "", "", err
	}
	to, err := s.osPath(dest)
	if err != nil {
		return "", "", err
	}
	if _, err := os.Lstat(from); err != nil {
		return "", "", fmt.Errorf("%s: %w", src, mapError(err))
	}
	if _, err := os.Lstat(to); err == nil {
		return "", "", fmt.Errorf("%s: %w", dest, store.ErrAlreadyExists)
	}
	if s.paths.Within(dest, src) {
		return "", "", fmt.Errorf("cannot move %s into itself", src)
	}
	if err := s.requireDir(filepath.Dir(to)); err != nil {
		return "", "", err
	}
	return from, to, nil
}

func (s *Store) requireDir(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return fmt.Errorf("%s: %w", s.browserPath(p), mapError(err))
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: %w", s.browserPath(p), store.ErrInvalidDirectory)
	}
	return nil
}

func copyFile(src, dest string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeAtomic(dest, in, mode)
}

// writeAtomic streams r to a temporary file next to dest and renames it
// into place.
func writeAtomic(dest string, r io.Reader, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pathbrowser-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if mode != 0 {
		if err := os.Chmod(tmpPath, mode); err != nil {
			os.Remove(tmpPath)
			return err
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Delete implements store.DirectoryStore. Directories are removed recursively.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.paths.IsRoot(path) {
		return fmt.Errorf("cannot delete root: %w", store.ErrUnauthorized)
	}
	p, err := s.osPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(p); err != nil {
		return fmt.Errorf("%s: %w", path, mapError(err))
	}
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, mapError(err))
	}
	s.logger.Debug().Str("path", path).Msg("Deleted")
	return nil
}

// Exists implements store.DirectoryStore.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.osPath(path)
	if err != nil {
		return false, err
	}
	_, err = os.Lstat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, mapError(err)
	}
}

// Upload implements store.DirectoryStore. Missing parents are created and an
// existing file is replaced.
func (s *Store) Upload(ctx context.Context, file store.File, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.osPath(destDir)
	if err != nil {
		return err
	}
	target, err := s.osPath(s.paths.Join(destDir, file.Name()))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", destDir, mapError(err))
	}
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return fmt.Errorf("%s: %w", s.paths.Join(destDir, file.Name()), store.ErrAlreadyExists)
	}
	if err := diskspace.Check(dir, file.Size(), constants.DiskSpaceMargin); err != nil {
		return fmt.Errorf("failed to upload %s: %w", file.Name(), err)
	}

	r, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer r.Close()
	if err := writeAtomic(target, r, 0644); err != nil {
		return fmt.Errorf("failed to upload %s: %w", file.Name(), mapError(err))
	}
	return nil
}

// HomeDir implements store.DirectoryStore. Without a hint the root is home.
func (s *Store) HomeDir(ctx context.Context, path string) (string, error) {
	if path != "" {
		return s.paths.Normalize(path), nil
	}
	return s.paths.Root(), nil
}
