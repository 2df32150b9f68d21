package localfs

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter decides which entries below Base are visible.
type Filter struct {
	// Base is the directory Exclude patterns are relative to.
	Base string

	// IncludeHidden keeps entries IsHidden reports. They are dropped by default.
	IncludeHidden bool

	// Exclude holds doublestar patterns. A pattern without a slash matches
	// the entry name at any depth ("*.tmp"); otherwise it matches the
	// slash-separated path relative to Base (".git/**").
	Exclude []string
}

// Excluded reports whether the entry at path is filtered out.
func (f Filter) Excluded(path string) bool {
	name := filepath.Base(path)
	if !f.IncludeHidden && IsHidden(path) {
		return true
	}
	if len(f.Exclude) == 0 {
		return false
	}

	rel := name
	if f.Base != "" {
		if r, err := filepath.Rel(f.Base, path); err == nil {
			rel = filepath.ToSlash(r)
		}
	}
	for _, pattern := range f.Exclude {
		target := rel
		if !strings.Contains(pattern, "/") {
			target = name
		}
		if ok, err := doublestar.Match(pattern, target); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePatterns returns the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}

// PatternError reports a malformed exclude pattern.
type PatternError struct {
	Pattern string
}

func (e *PatternError) Error() string {
	return "invalid exclude pattern: " + e.Pattern
}

// WalkOptions configures the behavior of Walk.
type WalkOptions struct {
	Filter

	// SkipHiddenDirs skips descending into hidden directories entirely.
	// Only meaningful when IncludeHidden is false.
	SkipHiddenDirs bool
}
