package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// UploadUI manages one progress bar per concurrent file upload using mpb
type UploadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool
	dest       string
	totalFiles int
	started    int32 // Atomic counter for file index (1, 2, 3, ...)
	completed  int32
	failed     int32
}

var _ UI = (*UploadUI)(nil)

// FileBar represents a single file upload progress bar
type FileBar struct {
	bar       *mpb.Bar
	ui        *UploadUI
	index     int
	localPath string
	size      int64
	read      int64
	attempts  int32
	startTime time.Time
}

// NewUploadUI creates an upload UI for totalFiles files going to dest.
// Bars are only drawn when stderr is a terminal.
func NewUploadUI(totalFiles int, dest string) *UploadUI {
	isTerminal := term.IsTerminal(int(os.Stderr.Fd()))
	return newUploadUI(totalFiles, dest, os.Stderr, isTerminal)
}

func newUploadUI(totalFiles int, dest string, out io.Writer, isTerminal bool) *UploadUI {
	if f, ok := out.(*os.File); ok && isTerminal {
		isTerminal = consoleSupportsANSI(f)
	}

	var p *mpb.Progress
	if isTerminal {
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(300*time.Millisecond),
			mpb.WithWidth(100),
		)
	} else {
		// Non-TTY: disable progress bars, just use text output
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadUI{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		dest:       dest,
		totalFiles: totalFiles,
	}
}

// AddFileBar creates a new progress bar for a file upload
func (u *UploadUI) AddFileBar(localPath string, size int64) FileBarHandle {
	index := int(atomic.AddInt32(&u.started, 1))
	fb := &FileBar{
		ui:        u,
		index:     index,
		localPath: localPath,
		size:      size,
		startTime: time.Now(),
	}

	label := fmt.Sprintf("[%d/%d] %s → %s", index, u.totalFiles, truncatePath(localPath, 2), u.dest)
	if u.isTerminal {
		fb.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(s decor.Statistics) string {
					if n := atomic.LoadInt32(&fb.attempts); n > 1 {
						return fmt.Sprintf("%s (retry %d)", label, n-1)
					}
					return label
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		fmt.Fprintf(u.out, "Uploading %s (%.1f MiB)\n", label, float64(size)/(1024*1024))
	}
	return fb
}

// IncrBy implements FileBarHandle.
func (f *FileBar) IncrBy(n int) {
	atomic.AddInt64(&f.read, int64(n))
	if f.bar != nil {
		f.bar.EwmaIncrBy(n, time.Since(f.startTime))
	}
}

// Restart implements FileBarHandle.
func (f *FileBar) Restart() {
	atomic.AddInt32(&f.attempts, 1)
	atomic.StoreInt64(&f.read, 0)
	if f.bar != nil {
		f.bar.SetCurrent(0)
	}
}

// Complete marks the upload as finished and prints a summary
func (f *FileBar) Complete(err error) {
	elapsed := time.Since(f.startTime)

	var msg string
	if err == nil {
		if f.bar != nil {
			f.bar.SetCurrent(f.size)
			f.bar.SetTotal(f.size, true)
		}
		msg = fmt.Sprintf("✓ %s → %s (%.1f MiB, %s)\n",
			truncatePath(f.localPath, 2), f.ui.dest,
			float64(f.size)/(1024*1024), elapsed.Round(time.Millisecond))
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		atomic.AddInt32(&f.ui.failed, 1)
		msg = fmt.Sprintf("✗ %s → %s: %v\n", truncatePath(f.localPath, 2), f.ui.dest, err)
	}

	// Write through mpb's writer so the bars are not corrupted.
	fmt.Fprint(f.ui.Writer(), msg)
	atomic.AddInt32(&f.ui.completed, 1)
}

// Wait blocks until all progress bars complete
func (u *UploadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer that safely prints above the progress bars
func (u *UploadUI) Writer() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return u.out
}

// IsTerminal returns true if output is to a terminal (progress bars are active).
func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}

// Counts returns how many files have completed and how many of them failed.
func (u *UploadUI) Counts() (completed, failed int) {
	return int(atomic.LoadInt32(&u.completed)), int(atomic.LoadInt32(&u.failed))
}

// truncatePath truncates a file path to show only the last N components
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	relevant := parts[len(parts)-maxComponents:]
	return "…/" + strings.Join(relevant, "/")
}
