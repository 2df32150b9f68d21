package pathmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	m := New("/", "/")
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"no segments", nil, "/"},
		{"root only", []string{"/"}, "/"},
		{"simple", []string{"/a", "b"}, "/a/b"},
		{"trailing separators", []string{"/a/", "b/"}, "/a/b"},
		{"duplicate separators", []string{"/a//b", "//c"}, "/a/b/c"},
		{"missing root", []string{"a", "b"}, "/a/b"},
		{"empty segments", []string{"", "a", "", "b", ""}, "/a/b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Join(tt.segments...))
		})
	}
}

func TestSplit(t *testing.T) {
	m := New("/", "/")
	assert.Equal(t, []string{}, m.Split("/"))
	assert.Equal(t, []string{}, m.Split(""))
	assert.Equal(t, []string{"a", "b"}, m.Split("/a/b/"))
	assert.Equal(t, []string{"a", "b"}, m.Split("a//b"))
}

func TestCustomRootAndSeparator(t *testing.T) {
	t.Run("root without trailing separator", func(t *testing.T) {
		m := New("/home", "/")
		assert.Equal(t, "/home", m.Join())
		assert.Equal(t, "/home/user", m.Join("user"))
		assert.Equal(t, []string{"user", "docs"}, m.Split("/home/user/docs"))
		// not a segment boundary, so the root is not stripped
		assert.Equal(t, "/home/homework", m.Join("/homework"))
	})

	t.Run("windows style", func(t *testing.T) {
		m := New(`C:\`, `\`)
		assert.Equal(t, `C:\Users\me`, m.Join(`C:\Users\`, "me"))
		assert.Equal(t, []string{"Users", "me"}, m.Split(`C:\Users\me\`))
		assert.Equal(t, `C:\`, m.Join())
	})

	t.Run("url style root", func(t *testing.T) {
		m := New("s3://bucket/", "/")
		assert.Equal(t, "s3://bucket/logs/a.txt", m.Join("logs", "a.txt"))
		assert.Equal(t, []string{"logs"}, m.Split("s3://bucket/logs/"))
	})
}

func TestJoinSplitInverse(t *testing.T) {
	models := []Model{New("/", "/"), New("/srv", "/"), New(`C:\`, `\`)}
	for _, m := range models {
		paths := []string{
			m.Root(),
			m.Join("a"),
			m.Join("a", "b", "c"),
			m.Join("a") + m.Separator(),
			m.Join("a") + m.Separator() + m.Separator() + "b",
		}
		for _, p := range paths {
			assert.Equal(t, m.Normalize(p), m.Join(m.Split(p)...), "path %q", p)
		}

		segments := [][]string{{"a"}, {"a", "b"}, {"x", "y", "z"}}
		for _, segs := range segments {
			assert.Equal(t, segs, m.Split(m.Join(segs...)))
		}
	}
}

func TestParentAndBase(t *testing.T) {
	m := New("/", "/")
	assert.Equal(t, "/a", m.Parent("/a/b"))
	assert.Equal(t, "/", m.Parent("/a"))
	assert.Equal(t, "/", m.Parent("/"))
	assert.Equal(t, "b", m.Base("/a/b/"))
	assert.Equal(t, "", m.Base("/"))
	assert.True(t, m.IsRoot("//"))
}

func TestSameRoot(t *testing.T) {
	m := New("/", "/")
	tests := []struct {
		src, dest string
		want      bool
	}{
		{"/x/f.txt", "/x/f.txt", true},
		{"/x/report.csv", "/x/logs/report.csv", false},
		{"/x/a", "/x/b", false},
		{"/x/dir", "/x/dir/sub/dir", true},
		{"/x/dir", "/x/dir/dir", true},
		{"/x/dir", "/x/dirty/dir", false},
		{"/a/f", "/b/f", false},
	}
	for _, tt := range tests {
		t.Run(tt.src+"->"+tt.dest, func(t *testing.T) {
			assert.Equal(t, tt.want, m.SameRoot(tt.src, tt.dest))
		})
	}
}

func TestDisplay(t *testing.T) {
	m := New("/", "/")
	assert.Equal(t, "/", m.Display("/"))
	assert.Equal(t, "/a/", m.Display("/a"))
	assert.Equal(t, "/a/", m.Display("/a/"))
}

func TestWalk(t *testing.T) {
	m := New("/", "/")
	crumbs := Walk(m, "/a/b/c", func(seg string, last bool, acc []string) []string {
		if last {
			seg = "[" + seg + "]"
		}
		return append(acc, seg)
	})
	assert.Equal(t, []string{"a", "b", "[c]"}, crumbs)
}
