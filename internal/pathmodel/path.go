// Package pathmodel normalizes browser paths against a configured root and separator.
//
// A normalized path always starts with the root and never ends with the
// separator, unless it is the root itself. Join and Split are total and are
// inverses of each other for any path inside the root.
package pathmodel

import "strings"

// Default root and separator, matching a POSIX-style namespace.
const (
	DefaultRoot      = "/"
	DefaultSeparator = "/"
)

// Model holds the root and separator a browser instance is confined to.
// The zero value is not usable; construct with New.
type Model struct {
	root      string
	separator string
	// prefix is what tokens are appended to: root without its trailing separator.
	prefix string
}

// New creates a Model. Empty arguments fall back to the defaults.
func New(root, separator string) Model {
	if separator == "" {
		separator = DefaultSeparator
	}
	if root == "" {
		root = DefaultRoot
	}
	return Model{
		root:      root,
		separator: separator,
		prefix:    strings.TrimSuffix(root, separator),
	}
}

// Root returns the configured root.
func (m Model) Root() string { return m.root }

// Separator returns the configured separator.
func (m Model) Separator() string { return m.separator }

// Join builds a normalized path from segments. Empty segments and repeated
// separators are dropped and the root is prefixed when missing.
func (m Model) Join(segments ...string) string {
	tokens := make([]string, 0, len(segments))
	for _, seg := range segments {
		tokens = append(tokens, m.Split(seg)...)
	}
	if len(tokens) == 0 {
		return m.root
	}
	return m.prefix + m.separator + strings.Join(tokens, m.separator)
}

// Split strips the root and any trailing separator, then splits on the
// separator. Empty tokens are dropped, so the root splits to an empty slice.
func (m Model) Split(path string) []string {
	path = m.stripRoot(path)
	if path == "" {
		return []string{}
	}
	parts := strings.Split(path, m.separator)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// stripRoot removes the root only on a segment boundary so that a root of
// "/home" does not swallow the start of "/homework".
func (m Model) stripRoot(path string) string {
	if !strings.HasPrefix(path, m.root) {
		return path
	}
	rest := path[len(m.root):]
	if strings.HasSuffix(m.root, m.separator) || rest == "" || strings.HasPrefix(rest, m.separator) {
		return rest
	}
	return path
}

// Normalize is Join of a single path.
func (m Model) Normalize(path string) string {
	return m.Join(path)
}

// Base returns the last segment of path, or "" for the root.
func (m Model) Base(path string) string {
	tokens := m.Split(path)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}

// Parent returns the directory containing path. The parent of the root is the root.
func (m Model) Parent(path string) string {
	tokens := m.Split(path)
	if len(tokens) == 0 {
		return m.root
	}
	return m.Join(tokens[:len(tokens)-1]...)
}

// IsRoot reports whether path normalizes to the root.
func (m Model) IsRoot(path string) bool {
	return len(m.Split(path)) == 0
}

// Within reports whether path is dir itself or lies below it.
func (m Model) Within(path, dir string) bool {
	path, dir = m.Normalize(path), m.Normalize(dir)
	if path == dir {
		return true
	}
	if m.IsRoot(dir) {
		return true
	}
	return strings.HasPrefix(path, dir+m.separator)
}

// SameRoot reports whether moving or copying src to dest is a no-op or would
// place src inside itself: dest is src, or dest's parent is src or below it.
func (m Model) SameRoot(src, dest string) bool {
	src, dest = m.Normalize(src), m.Normalize(dest)
	if src == dest {
		return true
	}
	return m.Within(m.Parent(dest), src)
}

// Display returns path in address-bar form: a trailing separator is added
// unless path is the root or already ends with one.
func (m Model) Display(path string) string {
	if path == m.root || strings.HasSuffix(path, m.separator) {
		return path
	}
	return path + m.separator
}

// Walk calls fn for each segment of path in order. last is true for the
// final segment; acc is the value fn returned for the previous segment.
func Walk[T any](m Model, path string, fn func(segment string, last bool, acc T) T) T {
	var acc T
	tokens := m.Split(path)
	for i, tok := range tokens {
		acc = fn(tok, i == len(tokens)-1, acc)
	}
	return acc
}
