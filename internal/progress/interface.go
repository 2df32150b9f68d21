package progress

import "io"

// UI reports progress for a batch of file uploads. UploadUI draws one bar
// per file; BatchUI draws a single bar for the whole batch.
type UI interface {
	// AddFileBar starts tracking a file upload
	AddFileBar(localPath string, size int64) FileBarHandle

	// Wait blocks until all progress bars complete
	Wait()

	// Writer returns an io.Writer that safely outputs above the progress bars.
	Writer() io.Writer

	// IsTerminal returns true if output is to a terminal (progress bars are active)
	IsTerminal() bool
}

// FileBarHandle represents a handle to a single file's progress bar
type FileBarHandle interface {
	// IncrBy records n more bytes read from the file
	IncrBy(n int)

	// Restart rewinds the bar when the file is reopened for a retry
	Restart()

	// Complete marks the upload as finished and prints a summary
	Complete(err error)
}
