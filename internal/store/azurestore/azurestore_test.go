package azurestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/pathbrowser/internal/http"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/store/memstore"
)

type fakeBlobs struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	failures map[string][]error
	calls    map[string]int
}

func newFakeBlobs(names ...string) *fakeBlobs {
	f := &fakeBlobs{blobs: map[string][]byte{}, failures: map[string][]error{}, calls: map[string]int{}}
	for _, n := range names {
		f.blobs[n] = []byte(n)
	}
	return f
}

func (f *fakeBlobs) fail(op string) error {
	f.calls[op]++
	if errs := f.failures[op]; len(errs) > 0 {
		f.failures[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (f *fakeBlobs) sorted() []string {
	out := make([]string, 0, len(f.blobs))
	for n := range f.blobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (f *fakeBlobs) ListHierarchy(_ context.Context, prefix string) ([]string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListHierarchy"); err != nil {
		return nil, nil, err
	}
	var dirs, blobs []string
	seen := map[string]bool{}
	for _, n := range f.sorted() {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		rest := n[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			d := prefix + rest[:i+1]
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
			continue
		}
		blobs = append(blobs, n)
	}
	return dirs, blobs, nil
}

func (f *fakeBlobs) ListFlat(_ context.Context, prefix string, max int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListFlat"); err != nil {
		return nil, err
	}
	var names []string
	for _, n := range f.sorted() {
		if strings.HasPrefix(n, prefix) {
			names = append(names, n)
			if max > 0 && len(names) == max {
				break
			}
		}
	}
	return names, nil
}

func (f *fakeBlobs) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Exists"); err != nil {
		return false, err
	}
	_, ok := f.blobs[name]
	return ok, nil
}

func (f *fakeBlobs) Upload(_ context.Context, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Upload"); err != nil {
		return err
	}
	f.blobs[name] = data
	return nil
}

func (f *fakeBlobs) Download(_ context.Context, name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Download"); err != nil {
		return nil, err
	}
	data, ok := f.blobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobs) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Delete"); err != nil {
		return err
	}
	if _, ok := f.blobs[name]; !ok {
		return fmt.Errorf("%w: %s", store.ErrNotFound, name)
	}
	delete(f.blobs, name)
	return nil
}

func newTestStore(b *fakeBlobs, prefix string) *Store {
	s := NewWithBlobs(b, Config{Prefix: prefix}, pathmodel.New("/", "/"))
	s.SetRetry(http.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})
	return s
}

func TestNameMapping(t *testing.T) {
	s := newTestStore(newFakeBlobs(), "/team/")
	assert.Equal(t, "team/a/b.txt", s.name("/a/b.txt"))
	assert.Equal(t, "team/a/", s.dirName("/a"))
	assert.Equal(t, "team/", s.dirName("/"))

	bare := newTestStore(newFakeBlobs(), "")
	assert.Equal(t, "", bare.dirName("/"))
	assert.Equal(t, "x", bare.name("/x"))
}

func TestList(t *testing.T) {
	b := newFakeBlobs("team/a.txt", "team/docs/", "team/src/main.go", "team/src/util/", "other/z")
	s := newTestStore(b, "team")
	ctx := context.Background()

	l, err := s.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "src"}, l.Dirs)
	assert.Equal(t, []string{"a.txt"}, l.Files)

	l, err = s.List(ctx, "/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"util"}, l.Dirs)
	assert.Equal(t, []string{"main.go"}, l.Files)

	l, err = s.List(ctx, "/docs")
	require.NoError(t, err, "marker-only directories list as empty")
	assert.Empty(t, l.Dirs)
	assert.Empty(t, l.Files)

	_, err = s.List(ctx, "/missing")
	assert.ErrorIs(t, err, store.ErrInvalidDirectory)
}

func TestCreateAndExists(t *testing.T) {
	b := newFakeBlobs("dir/", "file.txt")
	s := newTestStore(b, "")
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, store.KindDirectory, "/dir/sub"))
	require.NoError(t, s.Create(ctx, store.KindFile, "/dir/new.txt"))
	assert.Contains(t, b.blobs, "dir/sub/")
	assert.Contains(t, b.blobs, "dir/new.txt")

	for _, p := range []string{"/", "/dir", "/dir/sub", "/file.txt"} {
		ok, err := s.Exists(ctx, p)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
	ok, err := s.Exists(ctx, "/nope")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, s.Create(ctx, store.KindFile, "/file.txt"), store.ErrAlreadyExists)
	assert.ErrorIs(t, s.Create(ctx, store.KindDirectory, "/dir"), store.ErrAlreadyExists)
	assert.ErrorIs(t, s.Create(ctx, store.KindFile, "/missing/x"), store.ErrNotFound)
}

func TestCopyRenameDelete(t *testing.T) {
	b := newFakeBlobs("a/one.txt", "a/deep/two.txt", "b/", "taken.txt")
	s := newTestStore(b, "")
	ctx := context.Background()

	require.NoError(t, s.Copy(ctx, "/a", "/b/a"))
	assert.Equal(t, []byte("a/deep/two.txt"), b.blobs["b/a/deep/two.txt"])
	assert.Contains(t, b.blobs, "a/one.txt")

	require.NoError(t, s.Rename(ctx, "/a/one.txt", "/b/one.txt"))
	assert.NotContains(t, b.blobs, "a/one.txt")
	assert.Equal(t, []byte("a/one.txt"), b.blobs["b/one.txt"])

	require.NoError(t, s.Rename(ctx, "/b", "/c"))
	for n := range b.blobs {
		assert.False(t, strings.HasPrefix(n, "b/"), n)
	}
	assert.Contains(t, b.blobs, "c/")
	assert.Contains(t, b.blobs, "c/a/deep/two.txt")

	assert.ErrorIs(t, s.Copy(ctx, "/c", "/taken.txt"), store.ErrAlreadyExists)
	assert.ErrorIs(t, s.Copy(ctx, "/missing", "/x"), store.ErrNotFound)
	assert.Error(t, s.Rename(ctx, "/c", "/c/inner"))

	require.NoError(t, s.Delete(ctx, "/c"))
	assert.Equal(t, []string{"a/deep/two.txt", "taken.txt"}, b.sorted())
	assert.ErrorIs(t, s.Delete(ctx, "/c"), store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "/"), store.ErrUnauthorized)
}

func TestUpload(t *testing.T) {
	b := newFakeBlobs("in/", "in/taken/")
	s := newTestStore(b, "")
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, memstore.BytesFile{FileName: "r.csv", Data: []byte("1,2")}, "/in/new"))
	assert.Equal(t, []byte("1,2"), b.blobs["in/new/r.csv"])

	require.NoError(t, s.Upload(ctx, memstore.BytesFile{FileName: "r.csv", Data: []byte("3,4")}, "/in/new"))
	assert.Equal(t, []byte("3,4"), b.blobs["in/new/r.csv"])

	err := s.Upload(ctx, memstore.BytesFile{FileName: "taken", Data: []byte("x")}, "/in")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUploadRetriesWithFreshBody(t *testing.T) {
	b := newFakeBlobs()
	b.failures["Upload"] = []error{errors.New("503 server busy")}
	s := newTestStore(b, "")

	require.NoError(t, s.Upload(context.Background(), memstore.BytesFile{FileName: "f", Data: []byte("payload")}, "/"))
	assert.Equal(t, 2, b.calls["Upload"])
	assert.Equal(t, []byte("payload"), b.blobs["f"])
}

func TestUnauthorizedIsNotRetried(t *testing.T) {
	b := newFakeBlobs()
	b.failures["ListHierarchy"] = []error{fmt.Errorf("%w: AuthorizationFailure", store.ErrUnauthorized)}
	s := newTestStore(b, "")

	_, err := s.List(context.Background(), "/")
	assert.ErrorIs(t, err, store.ErrInvalidDirectory)
	assert.Equal(t, 1, b.calls["ListHierarchy"])
}

func TestNewRequiresContainer(t *testing.T) {
	_, err := New(Config{AccountURL: "https://acct.blob.core.windows.net/"}, pathmodel.New("/", "/"))
	assert.Error(t, err)
}

func TestMapErrorPassesThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
	plain := errors.New("boom")
	assert.Equal(t, plain, mapError(plain))
}
