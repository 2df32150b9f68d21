// Package progress reports upload progress on the terminal (progress bars)
// or on an event bus for embedding hosts.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/rescale/pathbrowser/internal/events"
)

// Reporter is the interface for reporting the progress of one byte stream.
type Reporter interface {
	Start(total int64, description string)
	Add(n int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress implements progress reporting for CLI mode using progress bars.
type CLIProgress struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

// NewCLIProgress creates a new CLI progress reporter writing to stderr.
func NewCLIProgress() *CLIProgress {
	return &CLIProgress{out: os.Stderr}
}

// Start initializes the progress bar with total size and description.
func (p *CLIProgress) Start(total int64, description string) {
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// Add advances the progress bar by n bytes.
func (p *CLIProgress) Add(n int64) {
	if p.bar != nil {
		_ = p.bar.Add64(n)
	}
}

// Finish completes the progress bar.
func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Error displays an error message.
func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

// SetDescription updates the progress bar description.
func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// Upload progress event types
const (
	EventUploadProgress events.EventType = "upload_progress"
	EventUploadFailed   events.EventType = "upload_failed"
)

// UploadProgressEvent carries the byte count of a running upload batch.
type UploadProgressEvent struct {
	events.BaseEvent
	Stage        string
	BytesCurrent int64
	BytesTotal   int64
}

// UploadFailedEvent is published when an upload batch reports an error.
type UploadFailedEvent struct {
	events.BaseEvent
	Error error
}

// EventProgress implements Reporter by publishing on an event bus.
type EventProgress struct {
	eventBus *events.EventBus
	mu       sync.Mutex
	stage    string
	total    int64
	current  int64
}

// NewEventProgress creates a reporter publishing on eventBus.
func NewEventProgress(eventBus *events.EventBus) *EventProgress {
	return &EventProgress{eventBus: eventBus}
}

func (p *EventProgress) publish() {
	p.eventBus.Publish(&UploadProgressEvent{
		BaseEvent:    events.NewBase(EventUploadProgress),
		Stage:        p.stage,
		BytesCurrent: p.current,
		BytesTotal:   p.total,
	})
}

// Start initializes progress tracking.
func (p *EventProgress) Start(total int64, description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.current, p.stage = total, 0, description
	p.publish()
}

// Add publishes an update.
func (p *EventProgress) Add(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current += n
	p.publish()
}

// Finish publishes completion.
func (p *EventProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	p.publish()
}

// Error publishes a failure event.
func (p *EventProgress) Error(err error) {
	if err != nil {
		p.eventBus.Publish(&UploadFailedEvent{BaseEvent: events.NewBase(EventUploadFailed), Error: err})
	}
}

// SetDescription updates the stage description.
func (p *EventProgress) SetDescription(desc string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stage = desc
	p.publish()
}

// NoOpProgress is a progress reporter that does nothing (for background/silent operations).
type NoOpProgress struct{}

func (NoOpProgress) Start(total int64, description string) {}
func (NoOpProgress) Add(n int64)                           {}
func (NoOpProgress) Finish()                               {}
func (NoOpProgress) Error(err error)                       {}
func (NoOpProgress) SetDescription(desc string)            {}

// BatchUI implements UI on top of a single Reporter covering every file
// of the batch.
type BatchUI struct {
	reporter Reporter
	out      io.Writer
	terminal bool
	mu       sync.Mutex
	failed   int
}

var _ UI = (*BatchUI)(nil)

// NewBatchUI starts reporter with the batch total.
func NewBatchUI(reporter Reporter, totalBytes int64, description string, out io.Writer, terminal bool) *BatchUI {
	reporter.Start(totalBytes, description)
	return &BatchUI{reporter: reporter, out: out, terminal: terminal}
}

type batchBar struct {
	ui   *BatchUI
	path string
	read int64
}

// AddFileBar implements UI.
func (b *BatchUI) AddFileBar(localPath string, size int64) FileBarHandle {
	b.reporter.SetDescription(truncatePath(localPath, 2))
	return &batchBar{ui: b, path: localPath}
}

func (f *batchBar) IncrBy(n int) {
	f.read += int64(n)
	f.ui.reporter.Add(int64(n))
}

func (f *batchBar) Restart() {
	// Rewind the shared bar by what this file had already contributed.
	f.ui.reporter.Add(-f.read)
	f.read = 0
}

func (f *batchBar) Complete(err error) {
	if err != nil {
		f.ui.mu.Lock()
		f.ui.failed++
		f.ui.mu.Unlock()
		f.ui.reporter.Error(fmt.Errorf("%s: %w", f.path, err))
	}
}

// Wait finishes the batch bar.
func (b *BatchUI) Wait() { b.reporter.Finish() }

// Writer implements UI.
func (b *BatchUI) Writer() io.Writer { return b.out }

// IsTerminal implements UI.
func (b *BatchUI) IsTerminal() bool { return b.terminal }

// Failed returns how many files reported an error.
func (b *BatchUI) Failed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// ProgressReader wraps an io.Reader to report progress.
type ProgressReader struct {
	reader io.Reader
	onRead func(n int)
}

// NewProgressReader creates a reader calling onRead with every chunk size.
func NewProgressReader(reader io.Reader, onRead func(n int)) *ProgressReader {
	return &ProgressReader{reader: reader, onRead: onRead}
}

// Read implements io.Reader interface with progress reporting.
func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.onRead(n)
	}
	return n, err
}
