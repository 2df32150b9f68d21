package browser

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/store/memstore"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// After fires immediately; tests never wait on real time.
func (c *fakeClock) After(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}

type call struct {
	Op   string
	Args []string
}

// recordingStore wraps a memstore and records every mutating call. It also
// tracks how many uploads are in flight at once.
type recordingStore struct {
	*memstore.Store

	mu          sync.Mutex
	calls       []call
	inFlight    int
	maxInFlight int
	uploadDelay time.Duration
	failUpload  map[string]error
	listGate    map[string]chan struct{}
	listErr     map[string]error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		Store:      memstore.New(pathmodel.New("/", "/")),
		failUpload: make(map[string]error),
		listGate:   make(map[string]chan struct{}),
		listErr:    make(map[string]error),
	}
}

func (s *recordingStore) record(op string, args ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{Op: op, Args: args})
}

func (s *recordingStore) Calls(op string) []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []call
	for _, c := range s.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (s *recordingStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *recordingStore) List(ctx context.Context, path string) (store.Listing, error) {
	s.mu.Lock()
	gate := s.listGate[path]
	err := s.listErr[path]
	s.mu.Unlock()
	s.record("list", path)
	if gate != nil {
		<-gate
	}
	if err != nil {
		return store.Listing{}, err
	}
	return s.Store.List(ctx, path)
}

func (s *recordingStore) Create(ctx context.Context, kind store.Kind, path string) error {
	s.record("create", string(kind), path)
	return s.Store.Create(ctx, kind, path)
}

func (s *recordingStore) Rename(ctx context.Context, src, dest string) error {
	s.record("rename", src, dest)
	return s.Store.Rename(ctx, src, dest)
}

func (s *recordingStore) Copy(ctx context.Context, src, dest string) error {
	s.record("copy", src, dest)
	return s.Store.Copy(ctx, src, dest)
}

func (s *recordingStore) Delete(ctx context.Context, path string) error {
	s.record("delete", path)
	return s.Store.Delete(ctx, path)
}

func (s *recordingStore) Exists(ctx context.Context, path string) (bool, error) {
	s.record("exists", path)
	return s.Store.Exists(ctx, path)
}

func (s *recordingStore) Upload(ctx context.Context, file store.File, destDir string) error {
	s.mu.Lock()
	s.calls = append(s.calls, call{Op: "upload", Args: []string{file.Name(), destDir}})
	s.inFlight++
	s.maxInFlight = max(s.maxInFlight, s.inFlight)
	fail := s.failUpload[file.Name()]
	delay := s.uploadDelay
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()
	if delay > 0 {
		time.Sleep(delay)
	}
	if fail != nil {
		return fail
	}
	return s.Store.Upload(ctx, file, destDir)
}

type harness struct {
	t        *testing.T
	store    *recordingStore
	registry *Registry
	clock    *fakeClock
	errors   []string
	opened   []string
	mu       sync.Mutex
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		t:        t,
		store:    newRecordingStore(),
		registry: NewRegistry(nil),
		clock:    newFakeClock(),
	}
}

func (h *harness) options(name string) Options {
	opts := DefaultOptions()
	opts.Name = name
	opts.Clock = h.clock
	opts.RefreshTimer = 0
	opts.Layout = GridLayout{Width: 300, CellWidth: 100, CellHeight: 50}
	opts.OnError = func(msg string) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.errors = append(h.errors, msg)
	}
	opts.OnOpen = func(p string) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.opened = append(h.opened, p)
	}
	return opts
}

// open creates an instance of namespace name and shows dir.
func (h *harness) open(name, dir string) *Instance {
	h.t.Helper()
	return h.openWith(h.options(name), dir)
}

func (h *harness) openWith(opts Options, dir string) *Instance {
	h.t.Helper()
	opts.StartDirectory = dir
	inst := New(h.registry, h.store, opts)
	require.NoError(h.t, inst.Start(context.Background()))
	return inst
}

func (h *harness) Errors() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.errors)
}

func (h *harness) Opened() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.opened)
}

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func selectedNames(items []Item) []string {
	var out []string
	for _, it := range items {
		if it.Selected {
			out = append(out, it.Name)
		}
	}
	return out
}

// nativeFile and nativeDir are in-memory NativeEntry values.
type nativeFile struct {
	name string
	data string
}

func (f nativeFile) Name() string { return f.name }
func (f nativeFile) IsDir() bool  { return false }
func (f nativeFile) File() (store.File, error) {
	return memstore.BytesFile{FileName: f.name, Data: []byte(f.data)}, nil
}
func (f nativeFile) ReadEntries(context.Context) ([]NativeEntry, error) { return nil, nil }

type nativeDir struct {
	name     string
	children []NativeEntry
	reads    *int
}

func (d nativeDir) Name() string              { return d.name }
func (d nativeDir) IsDir() bool               { return true }
func (d nativeDir) File() (store.File, error) { return nil, nil }
func (d nativeDir) ReadEntries(context.Context) ([]NativeEntry, error) {
	if d.reads != nil {
		*d.reads++
	}
	return d.children, nil
}
