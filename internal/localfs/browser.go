package localfs

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileEntry represents a file or directory in the local filesystem.
type FileEntry struct {
	Path    string      // Full path to the file
	Name    string      // Base name of the file
	Size    int64       // Size in bytes (0 for directories)
	IsDir   bool        // True if this is a directory
	ModTime time.Time   // Last modification time
	Mode    fs.FileMode // File mode/permissions
}

// ListDirectory returns the contents of a directory, filtered by f and
// sorted by name. Entries that cannot be stat'ed are skipped.
func ListDirectory(ctx context.Context, path string, f Filter) ([]FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	result := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(path, entry.Name())
		if f.Excluded(full) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		isDir := entry.IsDir()
		if info.Mode()&fs.ModeSymlink != 0 {
			// Follow symlinks so a linked directory lists as a directory.
			target, err := os.Stat(full)
			if err != nil {
				continue
			}
			info = target
			isDir = target.IsDir()
		}

		result = append(result, FileEntry{
			Path:    full,
			Name:    entry.Name(),
			Size:    info.Size(),
			IsDir:   isDir,
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// WalkFunc is the callback signature for Walk.
// Return filepath.SkipDir to skip a directory, or any other error to stop walking.
type WalkFunc func(entry FileEntry) error

// Walk traverses a directory tree, calling fn for each file and directory.
//
// The walk is depth-first. Directories are visited before their contents.
// The root itself is visited and is never filtered. If fn returns
// filepath.SkipDir for a directory, that directory's contents are skipped.
func Walk(root string, opts WalkOptions, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Error accessing path - skip it
			return nil
		}

		if path != root && opts.Excluded(path) {
			if d.IsDir() && (opts.SkipHiddenDirs || !IsHiddenName(d.Name())) {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		return fn(FileEntry{
			Path:    path,
			Name:    d.Name(),
			Size:    info.Size(),
			IsDir:   d.IsDir(),
			ModTime: info.ModTime(),
			Mode:    info.Mode(),
		})
	})
}

// WalkFiles is a convenience wrapper around Walk that only visits regular files
// (not directories). This is useful for sizing an upload before it starts.
func WalkFiles(root string, opts WalkOptions, fn WalkFunc) error {
	return Walk(root, opts, func(entry FileEntry) error {
		if entry.IsDir {
			return nil
		}
		return fn(entry)
	})
}
