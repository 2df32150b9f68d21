package browser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipboardHoldsLatestCall(t *testing.T) {
	h := newHarness(t)
	h.store.WriteFile("/src/a.txt", nil)
	h.store.WriteFile("/src/b.txt", nil)
	inst := h.open("fs1", "/src")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	inst.Copy()
	inst.ClickItem(ctx, "b.txt", Click{Zone: ZoneItem})
	inst.Cut()

	cb, ok := h.registry.Clipboard()
	require.True(t, ok)
	assert.Equal(t, []string{"/src/b.txt"}, cb.Entries)
	assert.True(t, cb.Cut)
	assert.Equal(t, "/src", cb.SourcePath)
	assert.Same(t, inst, cb.Source)
}

func TestCutPasteMovesEntries(t *testing.T) {
	h := newHarness(t)
	h.store.WriteFile("/src/a.txt", []byte("a"))
	h.store.WriteFile("/src/b.txt", []byte("b"))
	h.store.MkdirAll("/dst")
	src := h.open("fs1", "/src")
	dst := h.open("fs1", "/dst")
	ctx := context.Background()

	src.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem, Ctrl: true})
	src.ClickItem(ctx, "b.txt", Click{Zone: ZoneItem, Ctrl: true})
	src.Cut()
	require.NoError(t, dst.Paste(ctx))

	assert.Empty(t, src.Items())
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(dst.Items()))
	assert.Len(t, h.store.Calls("rename"), 2)
	assert.Empty(t, h.store.Calls("copy"))
}

func TestCopyPasteSkipsSameNode(t *testing.T) {
	h := newHarness(t)
	h.store.WriteFile("/src/a.txt", nil)
	h.store.MkdirAll("/src/dir")
	inst := h.open("fs1", "/src")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem, Ctrl: true})
	inst.ClickItem(ctx, "dir", Click{Zone: ZoneItem, Ctrl: true})
	inst.Copy()

	require.NoError(t, inst.Paste(ctx))
	assert.Empty(t, h.store.Calls("copy"))

	require.NoError(t, inst.Show(ctx, "/src/dir"))
	require.NoError(t, inst.Paste(ctx))
	copies := h.store.Calls("copy")
	require.Len(t, copies, 1)
	assert.Equal(t, []string{"/src/a.txt", "/src/dir/a.txt"}, copies[0].Args)
}

func TestPasteAcrossNamespacesIsRefused(t *testing.T) {
	h := newHarness(t)
	h.store.WriteFile("/src/a.txt", nil)
	h.store.MkdirAll("/dst")
	a := h.open("fs1", "/src")
	other := h.open("fs2", "/dst")
	ctx := context.Background()

	a.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	a.Copy()
	err := other.Paste(ctx)

	require.ErrorIs(t, err, ErrCrossNamespace)
	assert.Equal(t, []string{"You can't paste across different filesystems"}, h.Errors())
	assert.Empty(t, h.store.Calls("copy"))
}

func TestPasteWithEmptyClipboard(t *testing.T) {
	h := newHarness(t)
	inst := h.open("fs1", "/")
	assert.NoError(t, inst.Paste(context.Background()))
	assert.Empty(t, h.Errors())
}

func TestDeleteSelected(t *testing.T) {
	h := newHarness(t)
	h.store.WriteFile("/d/a.txt", nil)
	h.store.WriteFile("/d/b.txt", nil)
	h.store.WriteFile("/d/c.txt", nil)
	a := h.open("fs1", "/d")
	b := h.open("fs1", "/d")
	ctx := context.Background()

	a.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem, Ctrl: true})
	a.ClickItem(ctx, "c.txt", Click{Zone: ZoneItem, Ctrl: true})
	require.NoError(t, a.DeleteSelected(ctx))

	assert.Equal(t, []string{"b.txt"}, names(a.Items()))
	assert.Equal(t, []string{"b.txt"}, names(b.Items()))
	assert.Empty(t, a.Selected())
}
