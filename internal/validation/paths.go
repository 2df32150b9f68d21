// Package validation checks path segments before they become OS file names.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSegment is matched by every error ValidateSegment returns.
var ErrInvalidSegment = errors.New("invalid path segment")

// ValidateSegment checks a single path segment: a file or directory name as
// it will be written to disk. It rejects empty names, "." and "..", names
// holding a NUL byte and names holding a path separator of any platform.
// Dots inside a name ("data..v2.csv") are fine.
func ValidateSegment(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidSegment)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidSegment, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: name contains a null byte", ErrInvalidSegment)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSegment, name)
	}
	return nil
}
