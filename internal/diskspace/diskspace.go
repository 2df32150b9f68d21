// Package diskspace checks free space on the filesystem behind a local store
// before data is written to it.
package diskspace

import (
	"errors"
	"fmt"
)

// ErrInsufficientSpace is matched by every InsufficientSpaceError.
var ErrInsufficientSpace = errors.New("insufficient disk space")

// InsufficientSpaceError reports a write that would not fit.
type InsufficientSpaceError struct {
	Dir            string
	RequiredBytes  int64
	AvailableBytes int64
}

func (e *InsufficientSpaceError) Error() string {
	requiredMB := float64(e.RequiredBytes) / (1024 * 1024)
	availableMB := float64(e.AvailableBytes) / (1024 * 1024)
	return fmt.Sprintf("insufficient disk space in %s: need %.2f MB, have %.2f MB available",
		e.Dir, requiredMB, availableMB)
}

func (e *InsufficientSpaceError) Unwrap() error { return ErrInsufficientSpace }

// Check fails when the filesystem holding dir has less than required bytes
// times margin available. dir must exist. When the free space cannot be
// determined (network and virtual filesystems) the write is allowed and left
// to fail on its own.
func Check(dir string, required int64, margin float64) error {
	if required <= 0 {
		return nil
	}
	available, ok := Available(dir)
	if !ok {
		return nil
	}
	need := int64(float64(required) * margin)
	if available < need {
		return &InsufficientSpaceError{Dir: dir, RequiredBytes: need, AvailableBytes: available}
	}
	return nil
}
