// Package localfs lists and walks the local filesystem for the disk-backed
// store and turns OS paths into native upload sources for the browser.
package localfs

import (
	"path/filepath"
	"strings"
)

// IsHidden reports whether the entry at path is hidden: a dot name anywhere,
// or the hidden attribute on Windows. "." and ".." are never hidden.
func IsHidden(path string) bool {
	return IsHiddenName(filepath.Base(path)) || hiddenAttribute(path)
}

// IsHiddenName applies the dot-name rule to a bare name.
func IsHiddenName(name string) bool {
	return name != "." && name != ".." && strings.HasPrefix(name, ".")
}
