package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "real", "sub"), 0o755))

	got, err := Resolve(filepath.Join(dir, "real", "sub"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "real", "sub"), got)

	got, err = Resolve(filepath.Join(dir, "real", "missing", "deeper"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "real", "missing", "deeper"), got, "missing components are kept")

	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")); err == nil {
		got, err = Resolve(filepath.Join(dir, "link", "sub"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "real", "sub"), got)
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	got, err = Resolve("")
	require.NoError(t, err)
	assert.Equal(t, wd, got)
}

func TestResolveHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := Resolve("~/pathbrowser-test-missing")
	require.NoError(t, err)
	want, err := Resolve(filepath.Join(home, "pathbrowser-test-missing"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = Resolve("~user-not-expanded")
	require.NoError(t, err)
	assert.Equal(t, "~user-not-expanded", filepath.Base(got))
}
