package browser

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rescale/pathbrowser/internal/store"
)

// TargetKind is what a context menu was opened on.
type TargetKind int

const (
	TargetContent TargetKind = iota
	TargetItem
)

// MenuTarget is the element a context menu acts on.
type MenuTarget struct {
	Kind TargetKind
	// Item is the row key for TargetItem.
	Item     string
	Instance *Instance
}

// MenuEntry is a leaf action or a submenu. Entries keep their order.
type MenuEntry struct {
	Label   string
	Action  func(ctx context.Context, target MenuTarget) error
	Submenu Menu
}

// Menu is an ordered list of entries.
type Menu []MenuEntry

// Leaf builds an action entry.
func Leaf(label string, action func(ctx context.Context, target MenuTarget) error) MenuEntry {
	return MenuEntry{Label: label, Action: action}
}

// Sub builds a submenu entry.
func Sub(label string, entries ...MenuEntry) MenuEntry {
	return MenuEntry{Label: label, Submenu: Menu(entries)}
}

// Lookup follows a chain of labels.
func (m Menu) Lookup(labels ...string) (MenuEntry, bool) {
	if len(labels) == 0 {
		return MenuEntry{}, false
	}
	for _, e := range m {
		if e.Label != labels[0] {
			continue
		}
		if len(labels) == 1 {
			return e, true
		}
		return e.Submenu.Lookup(labels[1:]...)
	}
	return MenuEntry{}, false
}

// Labels returns the entry labels in order.
func (m Menu) Labels() []string {
	out := make([]string, 0, len(m))
	for _, e := range m {
		out = append(out, e.Label)
	}
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

// ClassName is the css class of a menu entry: the lowercased label with
// whitespace runs replaced by "-".
func ClassName(label string) string {
	return whitespace.ReplaceAllString(strings.ToLower(label), "-")
}

// DefaultMenu is the built-in menu: rename and delete on items, new
// directory and new file on the content area.
func DefaultMenu(kind TargetKind) Menu {
	if kind == TargetItem {
		return Menu{
			Leaf("rename", func(_ context.Context, t MenuTarget) error {
				t.Instance.BeginRename(t.Item)
				return nil
			}),
			Leaf("delete", func(ctx context.Context, t MenuTarget) error {
				return t.Instance.DeleteSelected(ctx)
			}),
		}
	}
	return Menu{
		Sub("new",
			Leaf("directory", func(_ context.Context, t MenuTarget) error {
				t.Instance.Create(store.KindDirectory)
				return nil
			}),
			Leaf("file", func(_ context.Context, t MenuTarget) error {
				t.Instance.Create(store.KindFile)
				return nil
			}),
		),
	}
}

func (i *Instance) menuFor(kind TargetKind) Menu {
	if i.opts.Menu != nil {
		if m := i.opts.Menu(kind); m != nil {
			return m
		}
	}
	return DefaultMenu(kind)
}

// ContextMenu opens the menu for a target, closing any menu open on any
// widget of the registry. A right click on an unselected item selects it
// first.
func (i *Instance) ContextMenu(ctx context.Context, kind TargetKind, key string) {
	i.registry.HideMenus()
	if kind == TargetItem {
		i.mu.Lock()
		_, it := i.findLocked(key)
		var full string
		if it != nil {
			full = i.paths.Join(i.path, it.name)
		}
		i.mu.Unlock()
		if it == nil {
			return
		}
		if !i.registry.IsSelected(i.opts.Name, full) {
			i.ClickItem(ctx, key, Click{Zone: ZoneItem})
		}
	}
	i.registry.openMenu(OpenMenu{
		Owner:  i,
		Target: MenuTarget{Kind: kind, Item: key, Instance: i},
		Menu:   i.menuFor(kind),
	})
}

// MenuSelect activates the entry at labels in this widget's open menu. A
// submenu is expanded; a leaf closes every menu and then runs its action.
func (i *Instance) MenuSelect(ctx context.Context, labels ...string) error {
	om, ok := i.registry.Menu()
	if !ok || om.Owner != i {
		return nil
	}
	entry, ok := om.Menu.Lookup(labels...)
	if !ok {
		return fmt.Errorf("no menu entry %q", strings.Join(labels, " > "))
	}
	if entry.Submenu != nil {
		om.Path = slices.Clone(labels)
		i.registry.openMenu(om)
		return nil
	}
	i.registry.HideMenus()
	if entry.Action == nil {
		return nil
	}
	return entry.Action(ctx, om.Target)
}
