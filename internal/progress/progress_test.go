package progress

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rescale/pathbrowser/internal/browser"
	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
	"github.com/rescale/pathbrowser/internal/store/memstore"
)

type recordingReporter struct {
	total   int64
	current int64
	desc    string
	errs    []error
	done    bool
}

func (r *recordingReporter) Start(total int64, d string) { r.total, r.desc = total, d }
func (r *recordingReporter) Add(n int64)                 { r.current += n }
func (r *recordingReporter) Finish()                     { r.done = true }
func (r *recordingReporter) Error(err error)             { r.errs = append(r.errs, err) }
func (r *recordingReporter) SetDescription(d string)     { r.desc = d }

// fileEntry is a NativeEntry over an in-memory file.
type fileEntry struct{ f memstore.BytesFile }

func (e fileEntry) Name() string              { return e.f.FileName }
func (e fileEntry) IsDir() bool               { return false }
func (e fileEntry) File() (store.File, error) { return e.f, nil }
func (e fileEntry) ReadEntries(context.Context) ([]browser.NativeEntry, error) {
	return nil, errors.New("not a directory")
}

type dirEntry struct {
	name     string
	children []browser.NativeEntry
}

func (e dirEntry) Name() string              { return e.name }
func (e dirEntry) IsDir() bool               { return true }
func (e dirEntry) File() (store.File, error) { return nil, errors.New("directory") }
func (e dirEntry) ReadEntries(context.Context) ([]browser.NativeEntry, error) {
	return e.children, nil
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		n    int
		want string
	}{
		{"file.txt", 2, "file.txt"},
		{"/a/b/c/d/file.txt", 3, "…/c/d/file.txt"},
		{"d/file.txt", 2, "file.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, truncatePath(tt.path, tt.n))
		})
	}
}

func TestProgressReader(t *testing.T) {
	var total int
	r := NewProgressReader(strings.NewReader("hello world"), func(n int) { total += n })
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
	assert.Equal(t, 11, total)
}

func TestBatchUIThroughUploader(t *testing.T) {
	st := memstore.New(pathmodel.New("/", "/"))
	st.MkdirAll("/in")
	rep := &recordingReporter{}
	var out bytes.Buffer
	ui := NewBatchUI(rep, 7, "upload", &out, false)

	root := dirEntry{name: "batch", children: []browser.NativeEntry{
		fileEntry{memstore.BytesFile{FileName: "a", Data: []byte("abc")}},
		fileEntry{memstore.BytesFile{FileName: "b", Data: []byte("defg")}},
	}}
	up := browser.NewUploader(st, pathmodel.New("/", "/"))
	up.OnFile = func(it browser.UploadItem, err error) { Complete(ui, it.File, err) }
	require.NoError(t, up.Upload(context.Background(), Track(root, ui), "/in"))
	ui.Wait()

	assert.Equal(t, int64(7), rep.total)
	assert.Equal(t, int64(7), rep.current)
	assert.True(t, rep.done)
	assert.Zero(t, ui.Failed())
	data, ok := st.ReadFile("/in/batch/b")
	require.True(t, ok)
	assert.Equal(t, "defg", string(data))
}

func TestTrackedFileRestartsOnReopen(t *testing.T) {
	rep := &recordingReporter{}
	ui := NewBatchUI(rep, 3, "", io.Discard, false)
	f, err := Track(fileEntry{memstore.BytesFile{FileName: "a", Data: []byte("abc")}}, ui).File()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		rc, err := f.Open()
		require.NoError(t, err)
		_, err = io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
	}
	assert.Equal(t, int64(3), rep.current, "a retried file is only counted once")

	Complete(ui, f, errors.New("boom"))
	assert.Equal(t, 1, ui.Failed())
	require.Len(t, rep.errs, 1)
	assert.Contains(t, rep.errs[0].Error(), "boom")
}

func TestUploadUINonTerminal(t *testing.T) {
	var out bytes.Buffer
	ui := newUploadUI(2, "/in", &out, false)
	assert.False(t, ui.IsTerminal())

	bar := ui.AddFileBar("/src/a.txt", 3)
	bar.IncrBy(3)
	bar.Complete(nil)
	ui.AddFileBar("/src/b.txt", 1).Complete(errors.New("denied"))
	ui.Wait()

	completed, failed := ui.Counts()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, failed)
	assert.Contains(t, out.String(), "Uploading [1/2]")
	assert.Contains(t, out.String(), "✓")
	assert.Contains(t, out.String(), "✗")
	assert.Contains(t, out.String(), "denied")
}

func TestEventProgressPublishes(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(EventUploadProgress)
	failed := bus.Subscribe(EventUploadFailed)

	p := NewEventProgress(bus)
	p.Start(10, "upload")
	p.Add(4)
	p.Finish()
	p.Error(errors.New("x"))

	var last *UploadProgressEvent
	for i := 0; i < 3; i++ {
		select {
		case ev := <-ch:
			last = ev.(*UploadProgressEvent)
		case <-time.After(time.Second):
			t.Fatal("missing progress event")
		}
	}
	assert.Equal(t, int64(10), last.BytesCurrent)
	assert.Equal(t, int64(10), last.BytesTotal)

	select {
	case ev := <-failed:
		assert.EqualError(t, ev.(*UploadFailedEvent).Error, "x")
	case <-time.After(time.Second):
		t.Fatal("missing failure event")
	}
}
