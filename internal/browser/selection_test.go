package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSelection(h *harness) {
	h.store.MkdirAll("/d/sub")
	h.store.WriteFile("/d/a.txt", nil)
	h.store.WriteFile("/d/b.txt", nil)
	h.store.WriteFile("/d/c.txt", nil)
}

func TestClickSelection(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())

	inst.ClickItem(ctx, "b.txt", Click{Zone: ZoneItem})
	assert.Equal(t, []string{"/d/b.txt"}, inst.Selected())

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem, Ctrl: true})
	assert.Equal(t, []string{"/d/b.txt", "/d/a.txt"}, inst.Selected())

	inst.ClickItem(ctx, "b.txt", Click{Zone: ZoneItem, Ctrl: true})
	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	assert.Empty(t, inst.Selected())
}

func TestPlainClickOnSelectedClearsSiblings(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem, Ctrl: true})
	inst.ClickItem(ctx, "b.txt", Click{Zone: ZoneItem, Ctrl: true})
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	assert.Empty(t, inst.Selected())
}

func TestSelectionSharedAcrossNamespace(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	a := h.open("fs1", "/d")
	b := h.open("fs1", "/d")
	other := h.open("fs2", "/d")

	a.ClickItem(context.Background(), "c.txt", Click{Zone: ZoneItem})
	assert.Equal(t, []string{"c.txt"}, selectedNames(b.Items()))
	assert.Empty(t, selectedNames(other.Items()))
}

func TestSlowSecondClickRenames(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	h.clock.Advance(500 * time.Millisecond)
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})

	items := inst.Items()
	assert.Equal(t, EditRename, items[1].Edit)
	assert.Equal(t, "a.txt", items[1].EditText)
	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())

	// Clicks on the row while renaming are swallowed.
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())
}

func TestFastSecondClickTogglesAndDoubleClickOpens(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	h.clock.Advance(100 * time.Millisecond)
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	assert.Empty(t, inst.Selected())
	assert.Equal(t, EditNone, inst.Items()[1].Edit)

	h.clock.Advance(50 * time.Millisecond)
	require.NoError(t, inst.DoubleClickItem(ctx, "a.txt", Click{}))
	assert.Equal(t, []string{"/d/a.txt"}, h.Opened())
}

func TestClickAfterDoubleClickDelayRestarts(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	h.clock.Advance(2 * time.Second)
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	assert.Empty(t, inst.Selected())
	assert.Equal(t, EditNone, inst.Items()[1].Edit)

	// The restarted pair renames on a slow follow-up.
	h.clock.Advance(time.Second)
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneLabel})
	assert.Equal(t, EditRename, inst.Items()[1].Edit)
}

func TestSlowDoubleClickDoesNothing(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "sub", Click{Zone: ZoneLabel})
	h.clock.Advance(400 * time.Millisecond)
	require.NoError(t, inst.DoubleClickItem(ctx, "sub", Click{}))
	assert.Equal(t, "/d", inst.Path())
}

func TestDoubleClickDirectoryNavigates(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	inst.ClickItem(ctx, "sub", Click{Zone: ZoneLabel})
	h.clock.Advance(100 * time.Millisecond)
	inst.ClickItem(ctx, "sub", Click{Zone: ZoneLabel})
	h.clock.Advance(50 * time.Millisecond)
	require.NoError(t, inst.DoubleClickItem(ctx, "sub", Click{}))

	assert.Equal(t, "/d/sub", inst.Path())
	assert.Empty(t, inst.Selected())
}

func TestNavigationClearsSelection(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	require.NoError(t, inst.Show(ctx, "/d/sub"))
	assert.Empty(t, inst.Selected())

	require.NoError(t, inst.Back(ctx))
	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	require.NoError(t, inst.ShowWith(ctx, "/d/sub", ShowOptions{Push: true, KeepSelection: true}))
	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())
}

func TestCtrlDoubleClickKeepsSelection(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	inst.ClickItem(ctx, "sub", Click{Zone: ZoneLabel, Ctrl: true})
	assert.Equal(t, []string{"/d/a.txt", "/d/sub"}, inst.Selected())

	h.clock.Advance(20 * time.Millisecond)
	require.NoError(t, inst.DoubleClickItem(ctx, "sub", Click{Ctrl: true}))

	assert.Equal(t, "/d/sub", inst.Path())
	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())
}

func TestSelectionPrunedOnRefresh(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem, Ctrl: true})
	inst.ClickItem(ctx, "b.txt", Click{Zone: ZoneItem, Ctrl: true})
	require.NoError(t, h.store.Store.Delete(ctx, "/d/b.txt"))
	require.NoError(t, inst.Refresh(ctx))

	assert.Equal(t, []string{"/d/a.txt"}, inst.Selected())
}

func TestContentClickClearsSelection(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	inst.ClickWidget(ctx, ZoneContent, true)
	assert.Len(t, inst.Selected(), 1)

	inst.ClickWidget(ctx, ZoneToolbar, false)
	assert.Len(t, inst.Selected(), 1)

	inst.ClickWidget(ctx, ZoneContent, false)
	assert.Empty(t, inst.Selected())
	assert.Same(t, inst, h.registry.Focused())
}

func TestKeyboardNavigation(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	// Three items per row: sub a.txt b.txt / c.txt
	require.NoError(t, inst.KeyDown(ctx, KeyRight, false))
	assert.Equal(t, "sub", inst.Active())
	require.NoError(t, inst.KeyDown(ctx, KeyRight, false))
	assert.Equal(t, "a.txt", inst.Active())
	require.NoError(t, inst.KeyDown(ctx, KeyDown, false))
	assert.Equal(t, "c.txt", inst.Active())
	require.NoError(t, inst.KeyDown(ctx, KeyUp, false))
	assert.Equal(t, "sub", inst.Active())
	require.NoError(t, inst.KeyDown(ctx, KeyLeft, false))
	assert.Equal(t, "sub", inst.Active())

	require.NoError(t, inst.KeyDown(ctx, KeySpace, false))
	assert.Equal(t, []string{"/d/sub"}, inst.Selected())
	require.NoError(t, inst.KeyDown(ctx, KeySpace, false))
	assert.Empty(t, inst.Selected())

	require.NoError(t, inst.KeyDown(ctx, KeyEnter, false))
	assert.Equal(t, "/d/sub", inst.Path())

	require.NoError(t, inst.KeyDown(ctx, KeyBackspace, false))
	assert.Equal(t, "/d", inst.Path())
}

func TestArrowWithoutCtrlClearsSelection(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "a.txt", Click{Zone: ZoneItem})
	require.NoError(t, inst.KeyDown(ctx, KeyRight, true))
	assert.Equal(t, "b.txt", inst.Active())
	assert.Len(t, inst.Selected(), 1)

	require.NoError(t, inst.KeyDown(ctx, KeyRight, false))
	assert.Equal(t, "c.txt", inst.Active())
	assert.Empty(t, inst.Selected())
}

func TestOnlyLabelClicksArmRename(t *testing.T) {
	tests := []struct {
		name  string
		first func(inst *Instance)
	}{
		{"row body", func(inst *Instance) {
			inst.ClickItem(context.Background(), "a.txt", Click{Zone: ZoneItem})
		}},
		{"space", func(inst *Instance) {
			inst.ClickWidget(context.Background(), ZoneItem, false)
			inst.ClickItem(context.Background(), "a.txt", Click{Zone: ZoneLabel})
			require.NoError(t, inst.KeyDown(context.Background(), KeySpace, false))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			seedSelection(h)
			inst := h.open("fs1", "/d")

			tt.first(inst)
			h.clock.Advance(500 * time.Millisecond)
			inst.ClickItem(context.Background(), "a.txt", Click{Zone: ZoneLabel})
			assert.Equal(t, EditNone, inst.Items()[1].Edit)

			// The label click opened a pair of its own.
			h.clock.Advance(500 * time.Millisecond)
			inst.ClickItem(context.Background(), "a.txt", Click{Zone: ZoneLabel})
			assert.Equal(t, EditRename, inst.Items()[1].Edit)
		})
	}
}

func TestRowClickStillFeedsDoubleClick(t *testing.T) {
	h := newHarness(t)
	seedSelection(h)
	inst := h.open("fs1", "/d")
	ctx := context.Background()

	inst.ClickItem(ctx, "sub", Click{Zone: ZoneItem})
	h.clock.Advance(50 * time.Millisecond)
	require.NoError(t, inst.DoubleClickItem(ctx, "sub", Click{}))
	assert.Equal(t, "/d/sub", inst.Path())
}
