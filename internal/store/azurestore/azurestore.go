// Package azurestore implements store.DirectoryStore on an Azure Blob container.
//
// Blob names use "/" as the virtual directory delimiter. Empty directories
// are kept alive by a zero-length "dir/" marker blob. Copy streams each blob
// through the client; rename is copy + delete.
package azurestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/http"
	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
)

// Config describes the container to browse.
type Config struct {
	// AccountURL is the service URL, e.g. https://acct.blob.core.windows.net/?<sas>.
	AccountURL  string
	AccountName string
	AccountKey  string
	Container   string
	// Prefix confines the store below a blob name prefix.
	Prefix string

	HTTPClient *nethttp.Client
	Logger     *logging.Logger
}

// Store is a DirectoryStore over an Azure Blob container.
type Store struct {
	blobs  Blobs
	prefix string
	paths  pathmodel.Model
	logger *logging.Logger
	retry  http.Config
}

var _ store.DirectoryStore = (*Store)(nil)

// New connects to the container described by cfg.
func New(cfg Config, m pathmodel.Model) (*Store, error) {
	if cfg.AccountURL == "" || cfg.Container == "" {
		return nil, errors.New("account url and container are required")
	}
	blobs, err := NewContainerBlobs(cfg.AccountURL, cfg.AccountName, cfg.AccountKey, cfg.Container, cfg.HTTPClient)
	if err != nil {
		return nil, err
	}
	return NewWithBlobs(blobs, cfg, m), nil
}

// NewWithBlobs creates a store over an existing Blobs implementation.
func NewWithBlobs(blobs Blobs, cfg Config, m pathmodel.Model) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	s := &Store{blobs: blobs, prefix: prefix, paths: m, logger: logger}
	s.retry = http.Config{
		MaxRetries:   constants.MaxRetries,
		InitialDelay: constants.RetryInitialDelay,
		MaxDelay:     constants.RetryMaxDelay,
		OnRetry: func(attempt int, err error, errorType http.ErrorType) {
			s.logger.Debug().Int("attempt", attempt).Str("type", http.ErrorTypeName(errorType)).Err(err).Msg("Retrying Azure request")
		},
	}
	return s
}

// SetRetry replaces the retry policy applied to each request.
func (s *Store) SetRetry(cfg http.Config) { s.retry = cfg }

func (s *Store) do(ctx context.Context, fn func() error) error {
	return http.ExecuteWithRetry(ctx, s.retry, fn)
}

func (s *Store) name(path string) string {
	return s.prefix + strings.Join(s.paths.Split(path), "/")
}

func (s *Store) dirName(path string) string {
	if s.paths.IsRoot(path) {
		return s.prefix
	}
	return s.name(path) + "/"
}

func (s *Store) blobExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.do(ctx, func() error {
		var err error
		ok, err = s.blobs.Exists(ctx, name)
		return err
	})
	return ok, err
}

func (s *Store) listFlat(ctx context.Context, prefix string, max int) ([]string, error) {
	var names []string
	err := s.do(ctx, func() error {
		var err error
		names, err = s.blobs.ListFlat(ctx, prefix, max)
		return err
	})
	return names, err
}

func (s *Store) dirExists(ctx context.Context, path string) (bool, error) {
	if s.paths.IsRoot(path) {
		return true, nil
	}
	names, err := s.listFlat(ctx, s.dirName(path), 1)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// List implements store.DirectoryStore.
func (s *Store) List(ctx context.Context, path string) (store.Listing, error) {
	prefix := s.dirName(path)
	var dirs, blobs []string
	err := s.do(ctx, func() error {
		var err error
		dirs, blobs, err = s.blobs.ListHierarchy(ctx, prefix)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return store.Listing{}, err
		}
		return store.Listing{}, fmt.Errorf("%s: %w: %v", path, store.ErrInvalidDirectory, err)
	}
	if len(dirs) == 0 && len(blobs) == 0 && !s.paths.IsRoot(path) {
		return store.Listing{}, fmt.Errorf("%s: %w", path, store.ErrInvalidDirectory)
	}

	listing := store.Listing{Dirs: []string{}, Files: []string{}}
	for _, d := range dirs {
		if name := strings.TrimSuffix(strings.TrimPrefix(d, prefix), "/"); name != "" {
			listing.Dirs = append(listing.Dirs, name)
		}
	}
	for _, b := range blobs {
		if name := strings.TrimPrefix(b, prefix); name != "" {
			listing.Files = append(listing.Files, name)
		}
	}
	return listing, nil
}

// Exists implements store.DirectoryStore.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if s.paths.IsRoot(path) {
		return true, nil
	}
	ok, err := s.blobExists(ctx, s.name(path))
	if err != nil || ok {
		return ok, err
	}
	return s.dirExists(ctx, path)
}

func (s *Store) requireDir(ctx context.Context, path string) error {
	ok, err := s.dirExists(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	return nil
}

func (s *Store) upload(ctx context.Context, name string, open func() (io.ReadCloser, error)) error {
	return s.do(ctx, func() error {
		r, err := open()
		if err != nil {
			return err
		}
		defer r.Close()
		return s.blobs.Upload(ctx, name, r)
	})
}

func emptyBlob() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

// Create implements store.DirectoryStore.
func (s *Store) Create(ctx context.Context, kind store.Kind, path string) error {
	exists, err := s.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%s: %w", path, store.ErrAlreadyExists)
	}
	if err := s.requireDir(ctx, s.paths.Parent(path)); err != nil {
		return err
	}
	name := s.name(path)
	if kind == store.KindDirectory {
		name += "/"
	}
	if err := s.upload(ctx, name, emptyBlob); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// transferPairs validates a copy or rename and returns (from, to) name pairs.
func (s *Store) transferPairs(ctx context.Context, src, dest string) ([][2]string, error) {
	if s.paths.Within(dest, src) {
		return nil, fmt.Errorf("cannot move %s into itself", src)
	}
	exists, err := s.Exists(ctx, dest)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%s: %w", dest, store.ErrAlreadyExists)
	}
	if err := s.requireDir(ctx, s.paths.Parent(dest)); err != nil {
		return nil, err
	}

	isBlob, err := s.blobExists(ctx, s.name(src))
	if err != nil {
		return nil, err
	}
	if isBlob {
		return [][2]string{{s.name(src), s.name(dest)}}, nil
	}
	srcDir, destDir := s.dirName(src), s.dirName(dest)
	names, err := s.listFlat(ctx, srcDir, 0)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%s: %w", src, store.ErrNotFound)
	}
	pairs := make([][2]string, 0, len(names))
	for _, n := range names {
		pairs = append(pairs, [2]string{n, destDir + strings.TrimPrefix(n, srcDir)})
	}
	return pairs, nil
}

func (s *Store) copyBlob(ctx context.Context, from, to string) error {
	return s.upload(ctx, to, func() (io.ReadCloser, error) {
		return s.blobs.Download(ctx, from)
	})
}

// Copy implements store.DirectoryStore.
func (s *Store) Copy(ctx context.Context, src, dest string) error {
	pairs, err := s.transferPairs(ctx, src, dest)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := s.copyBlob(ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("failed to copy %s: %w", src, err)
		}
	}
	return nil
}

// Rename implements store.DirectoryStore.
func (s *Store) Rename(ctx context.Context, src, dest string) error {
	pairs, err := s.transferPairs(ctx, src, dest)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if err := s.copyBlob(ctx, p[0], p[1]); err != nil {
			return fmt.Errorf("failed to rename %s: %w", src, err)
		}
	}
	for _, p := range pairs {
		if err := s.deleteBlob(ctx, p[0]); err != nil {
			return fmt.Errorf("failed to remove %s after copy: %w", src, err)
		}
	}
	return nil
}

func (s *Store) deleteBlob(ctx context.Context, name string) error {
	return s.do(ctx, func() error { return s.blobs.Delete(ctx, name) })
}

// Delete implements store.DirectoryStore.
func (s *Store) Delete(ctx context.Context, path string) error {
	if s.paths.IsRoot(path) {
		return fmt.Errorf("cannot delete root: %w", store.ErrUnauthorized)
	}
	name := s.name(path)
	isBlob, err := s.blobExists(ctx, name)
	if err != nil {
		return err
	}
	var names []string
	if isBlob {
		names = []string{name}
	}
	under, err := s.listFlat(ctx, name+"/", 0)
	if err != nil {
		return err
	}
	names = append(names, under...)
	if len(names) == 0 {
		return fmt.Errorf("%s: %w", path, store.ErrNotFound)
	}
	for _, n := range names {
		if err := s.deleteBlob(ctx, n); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	s.logger.Debug().Str("path", path).Int("blobs", len(names)).Msg("Deleted")
	return nil
}

// Upload implements store.DirectoryStore. An existing blob is replaced.
func (s *Store) Upload(ctx context.Context, file store.File, destDir string) error {
	target := s.paths.Join(destDir, file.Name())
	isDir, err := s.dirExists(ctx, target)
	if err != nil {
		return err
	}
	if isDir {
		return fmt.Errorf("%s: %w", target, store.ErrAlreadyExists)
	}
	if err := s.upload(ctx, s.name(target), file.Open); err != nil {
		return fmt.Errorf("failed to upload %s: %w", file.Name(), err)
	}
	return nil
}

// HomeDir implements store.DirectoryStore.
func (s *Store) HomeDir(ctx context.Context, path string) (string, error) {
	if path != "" {
		return s.paths.Normalize(path), nil
	}
	return s.paths.Root(), nil
}
