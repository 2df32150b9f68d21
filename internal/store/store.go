// Package store defines the DirectoryStore contract the browser engine drives.
//
// A DirectoryStore exposes a hierarchical namespace of files and directories.
// Paths passed to a store are already normalized by the caller's pathmodel;
// implementations treat them as opaque absolute keys within their own root.
// Every method may block on I/O and must honour ctx cancellation.
package store

import (
	"context"
	"io"
)

// Kind is the type of a namespace entry.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// String returns the kind in its capitalized display form ("File", "Directory").
func (k Kind) String() string {
	switch k {
	case KindDirectory:
		return "Directory"
	case KindFile:
		return "File"
	default:
		return string(k)
	}
}

// ParseKind maps a case-insensitive name to a Kind. Unknown names map to KindFile.
func ParseKind(s string) Kind {
	switch s {
	case "directory", "Directory", "dir", "folder":
		return KindDirectory
	default:
		return KindFile
	}
}

// Entry is a single child of a listed directory.
type Entry struct {
	Name string
	Kind Kind
}

// Listing is the result of resolving a directory path.
// Order within Dirs and Files is not significant.
type Listing struct {
	Dirs  []string
	Files []string
}

// Entries returns directories first, then files.
func (l Listing) Entries() []Entry {
	out := make([]Entry, 0, len(l.Dirs)+len(l.Files))
	for _, d := range l.Dirs {
		out = append(out, Entry{Name: d, Kind: KindDirectory})
	}
	for _, f := range l.Files {
		out = append(out, Entry{Name: f, Kind: KindFile})
	}
	return out
}

// Has reports whether name is present in the listing as either kind.
func (l Listing) Has(name string) bool {
	for _, d := range l.Dirs {
		if d == name {
			return true
		}
	}
	for _, f := range l.Files {
		if f == name {
			return true
		}
	}
	return false
}

// File is an uploadable file handle, typically coming from an OS drop.
type File interface {
	// Name is the base name the file is stored under.
	Name() string
	// Size in bytes, or -1 when unknown.
	Size() int64
	// Open returns a fresh reader for the file contents.
	Open() (io.ReadCloser, error)
}

// DirectoryStore is the capability set the browser consumes.
type DirectoryStore interface {
	// List resolves a directory. Fails with ErrInvalidDirectory when path
	// cannot be enumerated.
	List(ctx context.Context, path string) (Listing, error)
	// Create makes an empty file or directory. Fails with ErrAlreadyExists or ErrUnauthorized.
	Create(ctx context.Context, kind Kind, path string) error
	Rename(ctx context.Context, src, dest string) error
	Delete(ctx context.Context, path string) error
	Copy(ctx context.Context, src, dest string) error
	Exists(ctx context.Context, path string) (bool, error)
	// Upload stores file inside destDir, creating missing parents.
	Upload(ctx context.Context, file File, destDir string) error
	// HomeDir returns the directory to start in. path is a hint and may be empty.
	HomeDir(ctx context.Context, path string) (string, error)
}

// Watcher is an optional capability: stores that can observe out-of-band
// changes report the directory that changed.
type Watcher interface {
	Watch(ctx context.Context, changed func(dir string)) error
}
