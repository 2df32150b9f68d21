// Package memstore is an in-memory DirectoryStore used by tests, demos and
// the CLI "memory" backend.
package memstore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
)

type node struct {
	kind store.Kind
	data []byte
}

// Store is a thread-safe in-memory tree.
type Store struct {
	paths pathmodel.Model
	home  string

	mu    sync.RWMutex
	nodes map[string]*node
}

// New creates an empty store containing only the root directory of m.
func New(m pathmodel.Model) *Store {
	s := &Store{
		paths: m,
		home:  m.Root(),
		nodes: make(map[string]*node),
	}
	s.nodes[m.Root()] = &node{kind: store.KindDirectory}
	return s
}

// SetHome sets the directory HomeDir reports.
func (s *Store) SetHome(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.home = s.paths.Normalize(path)
}

// MkdirAll creates path and every missing parent.
func (s *Store) MkdirAll(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mkdirAllLocked(s.paths.Normalize(path))
}

// WriteFile creates or replaces a file, creating missing parents.
func (s *Store) WriteFile(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = s.paths.Normalize(path)
	s.mkdirAllLocked(s.paths.Parent(path))
	s.nodes[path] = &node{kind: store.KindFile, data: append([]byte(nil), data...)}
}

// ReadFile returns a copy of a file's contents.
func (s *Store) ReadFile(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[s.paths.Normalize(path)]
	if !ok || n.kind != store.KindFile {
		return nil, false
	}
	return append([]byte(nil), n.data...), true
}

// Paths returns every stored path in lexical order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.nodes))
	for p := range s.nodes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (s *Store) mkdirAllLocked(path string) {
	cur := s.paths.Root()
	for _, seg := range s.paths.Split(path) {
		cur = s.paths.Join(cur, seg)
		if _, ok := s.nodes[cur]; !ok {
			s.nodes[cur] = &node{kind: store.KindDirectory}
		}
	}
}

// List implements store.DirectoryStore.
func (s *Store) List(ctx context.Context, path string) (store.Listing, error) {
	if err := ctx.Err(); err != nil {
		return store.Listing{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	path = s.paths.Normalize(path)
	n, ok := s.nodes[path]
	if !ok || n.kind != store.KindDirectory {
		return store.Listing{}, fmt.Errorf("%s: %w", path, store.ErrInvalidDirectory)
	}

	listing := store.Listing{Dirs: []string{}, Files: []string{}}
	for p, child := range s.nodes {
		if p == path || s.paths.Parent(p) != path {
			continue
		}
		if child.kind == store.KindDirectory {
			listing.Dirs = append(listing.Dirs, s.paths.Base(p))
		} else {
			listing.Files = append(listing.Files, s.paths.Base(p))
		}
	}
	sort.Strings(listing.Dirs)
	sort.Strings(listing.Files)
	return listing, nil
}

// Create implements store.DirectoryStore.
func (s *Store) Create(ctx context.Context, kind store.Kind, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path = s.paths.Normalize(path)
	if _, ok := s.nodes[path]; ok {
		return fmt.Errorf("%s: %w", path, store.ErrAlreadyExists)
	}
	if err := s.requireDirLocked(s.paths.Parent(path)); err != nil {
		return err
	}
	s.nodes[path] = &node{kind: kind}
	return nil
}

// Rename implements store.DirectoryStore. Directories move with their subtree.
func (s *Store) Rename(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src, dest = s.paths.Normalize(src), s.paths.Normalize(dest)
	moved, err := s.subtreeLocked(src, dest)
	if err != nil {
		return err
	}
	for old := range moved {
		delete(s.nodes, old)
	}
	for old, n := range moved {
		s.nodes[s.rebase(old, src, dest)] = n
	}
	return nil
}

// Copy implements store.DirectoryStore.
func (s *Store) Copy(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	src, dest = s.paths.Normalize(src), s.paths.Normalize(dest)
	copied, err := s.subtreeLocked(src, dest)
	if err != nil {
		return err
	}
	for old, n := range copied {
		s.nodes[s.rebase(old, src, dest)] = &node{kind: n.kind, data: append([]byte(nil), n.data...)}
	}
	return nil
}

// subtreeLocked validates a move/copy and returns the nodes rooted at src.
func (s *Store) subtreeLocked(src, dest string) (map[string]*node, error) {
	if _, ok := s.nodes[src]; !ok {
		return nil, fmt.Errorf("%s: %w", src, store.ErrNotFound)
	}
	if _, ok := s.nodes[dest]; ok {
		return nil, fmt.Errorf("%s: %w", dest, store.ErrAlreadyExists)
	}
	if s.paths.Within(dest, src) {
		return nil, fmt.Errorf("cannot move %s into itself", src)
	}
	if err := s.requireDirLocked(s.paths.Parent(dest)); err != nil {
		return nil, err
	}
	out := make(map[string]*node)
	for p, n := range s.nodes {
		if s.paths.Within(p, src) {
			out[p] = n
		}
	}
	return out, nil
}

func (s *Store) rebase(path, src, dest string) string {
	if path == src {
		return dest
	}
	return dest + strings.TrimPrefix(path, src)
}

func (s *Store) requireDirLocked(dir string) error {
	n, ok := s.nodes[dir]
	if !ok {
		return fmt.Errorf("%s: %w", dir, store.ErrNotFound)
	}
	if n.kind != store.KindDirectory {
		return fmt.Errorf("%s: %w", dir, store.ErrInvalidDirectory)
	}
	return nil
}

// Delete implements store.DirectoryStore.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path = s.paths.Normalize(path)
	if path == s.paths.Root() {
		return fmt.Errorf("cannot delete root: %w", store.ErrUnauthorized)
	}
	if _, ok := s.nodes[path]; !ok {
		return fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	for p := range s.nodes {
		if s.paths.Within(p, path) {
			delete(s.nodes, p)
		}
	}
	return nil
}

// Exists implements store.DirectoryStore.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[s.paths.Normalize(path)]
	return ok, nil
}

// Upload implements store.DirectoryStore. Existing files are replaced.
func (s *Store) Upload(ctx context.Context, file store.File, destDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read %s: %w", file.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	destDir = s.paths.Normalize(destDir)
	s.mkdirAllLocked(destDir)
	target := s.paths.Join(destDir, file.Name())
	if n, ok := s.nodes[target]; ok && n.kind == store.KindDirectory {
		return fmt.Errorf("%s: %w", target, store.ErrAlreadyExists)
	}
	s.nodes[target] = &node{kind: store.KindFile, data: data}
	return nil
}

// HomeDir implements store.DirectoryStore.
func (s *Store) HomeDir(ctx context.Context, path string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if path != "" {
		return s.paths.Normalize(path), nil
	}
	return s.home, nil
}

// BytesFile is an in-memory store.File.
type BytesFile struct {
	FileName string
	Data     []byte
}

func (f BytesFile) Name() string { return f.FileName }
func (f BytesFile) Size() int64  { return int64(len(f.Data)) }
func (f BytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(string(f.Data))), nil
}
