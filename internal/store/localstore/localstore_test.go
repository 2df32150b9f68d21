package localstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/diskspace"
	"github.com/rescale/pathbrowser/internal/localfs"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/store/memstore"
)

func newStore(t *testing.T, opts Options, files ...string) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	for _, f := range files {
		full := filepath.Join(base, filepath.FromSlash(f))
		if f[len(f)-1] == '/' {
			require.NoError(t, os.MkdirAll(full, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(f), 0644))
	}
	s, err := New(base, pathmodel.New("/", "/"), opts)
	require.NoError(t, err)
	return s, base
}

func TestNewRejectsFiles(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0644))

	_, err := New(f, pathmodel.New("/", "/"), Options{})
	assert.ErrorIs(t, err, store.ErrInvalidDirectory)

	_, err = New(filepath.Join(t.TempDir(), "missing"), pathmodel.New("/", "/"), Options{})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = New(t.TempDir(), pathmodel.New("/", "/"), Options{Exclude: []string{"[bad"}})
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	s, _ := newStore(t, Options{Exclude: []string{"*.tmp"}},
		"b.txt", "a.txt", "scratch.tmp", ".env", "docs/", "src/main.go")
	ctx := context.Background()

	l, err := s.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "src"}, l.Dirs)
	assert.Equal(t, []string{"a.txt", "b.txt"}, l.Files)

	l, err = s.List(ctx, "/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, l.Files)

	_, err = s.List(ctx, "/a.txt")
	assert.ErrorIs(t, err, store.ErrInvalidDirectory)
	_, err = s.List(ctx, "/nope")
	assert.ErrorIs(t, err, store.ErrInvalidDirectory)
	_, err = s.List(ctx, "/../etc")
	assert.ErrorIs(t, err, store.ErrInvalidDirectory)
}

func TestCustomSeparatorMapsToOSPaths(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "a", "b"), 0755))

	s, err := New(base, pathmodel.New("fs:", ":"), Options{})
	require.NoError(t, err)

	l, err := s.List(context.Background(), "fs:a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, l.Dirs)
	assert.Equal(t, "fs:a:b", s.browserPath(filepath.Join(base, "a", "b")))
	assert.Equal(t, "fs:", s.browserPath(base))
}

func TestCreate(t *testing.T) {
	s, base := newStore(t, Options{}, "existing.txt", "dir/")
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, store.KindFile, "/dir/new.txt"))
	require.NoError(t, s.Create(ctx, store.KindDirectory, "/dir/sub"))

	info, err := os.Stat(filepath.Join(base, "dir", "sub"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	_, err = os.Stat(filepath.Join(base, "dir", "new.txt"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Create(ctx, store.KindFile, "/existing.txt"), store.ErrAlreadyExists)
	assert.ErrorIs(t, s.Create(ctx, store.KindDirectory, "/dir"), store.ErrAlreadyExists)
	assert.ErrorIs(t, s.Create(ctx, store.KindFile, "/missing/x"), store.ErrNotFound)
	assert.ErrorIs(t, s.Create(ctx, store.KindFile, "/existing.txt/x"), store.ErrInvalidDirectory)
}

func TestRenameAndCopy(t *testing.T) {
	s, base := newStore(t, Options{}, "a/one.txt", "a/.hidden", "a/deep/two.txt", "b/", "taken.txt")
	ctx := context.Background()

	require.NoError(t, s.Copy(ctx, "/a", "/b/a"))
	data, err := os.ReadFile(filepath.Join(base, "b", "a", "deep", "two.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a/deep/two.txt", string(data))
	_, err = os.Stat(filepath.Join(base, "b", "a", ".hidden"))
	assert.NoError(t, err, "copies include hidden entries")

	require.NoError(t, s.Copy(ctx, "/a/one.txt", "/one-copy.txt"))
	require.NoError(t, s.Rename(ctx, "/one-copy.txt", "/b/moved.txt"))
	ok, err := s.Exists(ctx, "/one-copy.txt")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.Exists(ctx, "/b/moved.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.Rename(ctx, "/missing", "/x"), store.ErrNotFound)
	assert.ErrorIs(t, s.Rename(ctx, "/a/one.txt", "/taken.txt"), store.ErrAlreadyExists)
	assert.Error(t, s.Copy(ctx, "/a", "/a/deep/a"), "copy into itself")
	assert.ErrorIs(t, s.Copy(ctx, "/taken.txt", "/nowhere/x"), store.ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, base := newStore(t, Options{}, "tree/x/y.txt", "file.txt")
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "/tree"))
	_, err := os.Stat(filepath.Join(base, "tree"))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, s.Delete(ctx, "/tree"), store.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "/"), store.ErrUnauthorized)
}

func TestUploadCreatesParentsAndReplaces(t *testing.T) {
	s, base := newStore(t, Options{}, "in/dir/")
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, memstore.BytesFile{FileName: "r.csv", Data: []byte("v1")}, "/in/new/deeper"))
	require.NoError(t, s.Upload(ctx, memstore.BytesFile{FileName: "r.csv", Data: []byte("v2")}, "/in/new/deeper"))
	data, err := os.ReadFile(filepath.Join(base, "in", "new", "deeper", "r.csv"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	err = s.Upload(ctx, memstore.BytesFile{FileName: "dir", Data: []byte("x")}, "/in")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	entries, err := os.ReadDir(filepath.Join(base, "in", "new", "deeper"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

// hugeFile claims a size no filesystem can hold.
type hugeFile struct{}

func (hugeFile) Name() string { return "huge.bin" }
func (hugeFile) Size() int64  { return 1 << 62 }
func (hugeFile) Open() (io.ReadCloser, error) {
	return nil, errors.New("must not be opened")
}

func TestUploadChecksFreeSpace(t *testing.T) {
	s, base := newStore(t, Options{}, "in/")
	if _, ok := diskspace.Available(base); !ok {
		t.Skip("free space not reported for the temp filesystem")
	}

	err := s.Upload(context.Background(), hugeFile{}, "/in")
	assert.ErrorIs(t, err, diskspace.ErrInsufficientSpace)
	_, statErr := os.Stat(filepath.Join(base, "in", "huge.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHomeDir(t *testing.T) {
	s, _ := newStore(t, Options{})
	home, err := s.HomeDir(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "/", home)

	home, err = s.HomeDir(context.Background(), "projects/")
	require.NoError(t, err)
	assert.Equal(t, "/projects", home)
}

func TestWatchReportsChangedDirectories(t *testing.T) {
	s, base := newStore(t, Options{Debounce: 20 * time.Millisecond}, "watched/")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]int{}
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(dir string) {
			mu.Lock()
			seen[dir]++
			mu.Unlock()
		})
	}()

	// Give the watcher time to register the tree before mutating it.
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(base, "watched", "f.txt"), []byte{byte(i)}, 0644))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["/watched"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	// A directory created after Watch started is watched too.
	require.NoError(t, os.Mkdir(filepath.Join(base, "later"), 0755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(base, "later", "x"), nil, 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["/later"] > 0 && seen["/"] > 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	d := newDebouncer(30*time.Millisecond, func(k string) {
		mu.Lock()
		calls = append(calls, k)
		mu.Unlock()
	})
	for i := 0; i < 10; i++ {
		d.trigger("/a")
	}
	d.trigger("/b")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 2
	}, time.Second, 5*time.Millisecond)
	assert.ElementsMatch(t, []string{"/a", "/b"}, calls)

	d.stop()
	d.trigger("/c")
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Len(t, calls, 2)
	mu.Unlock()
}

func TestBrowserOverLocalStore(t *testing.T) {
	s, base := newStore(t, Options{}, "projects/plan.md", "incoming/")
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "batch", "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "batch", "sub", "data.bin"), []byte("123"), 0644))

	ctx := context.Background()
	reg := browser.NewRegistry(nil)
	opts := browser.DefaultOptions()
	opts.RefreshTimer = 0
	opts.StartDirectory = "/incoming"
	inst := browser.New(reg, s, opts)
	require.NoError(t, inst.Start(ctx))

	native, err := localfs.Open(filepath.Join(src, "batch"), localfs.Filter{})
	require.NoError(t, err)
	require.NoError(t, inst.Drop(ctx, browser.Drop{Native: []browser.NativeEntry{native}}))

	data, err := os.ReadFile(filepath.Join(base, "incoming", "batch", "sub", "data.bin"))
	require.NoError(t, err)
	assert.Equal(t, "123", string(data))

	var names []string
	for _, it := range inst.Items() {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"batch"}, names)
}
