package browser

import (
	"context"
	"strings"
	"time"

	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/store"
)

// Zone is the part of a widget a pointer event landed on.
type Zone int

const (
	ZoneOutside Zone = iota
	ZoneContent
	ZoneItem
	ZoneLabel
	ZoneTextField
	ZoneToolbar
	ZoneAddress
	ZoneMenu
)

// Key names a keyboard key.
type Key string

const (
	KeyLeft      Key = "ArrowLeft"
	KeyUp        Key = "ArrowUp"
	KeyRight     Key = "ArrowRight"
	KeyDown      Key = "ArrowDown"
	KeyEnter     Key = "Enter"
	KeyEscape    Key = "Escape"
	KeySpace     Key = " "
	KeyBackspace Key = "Backspace"
)

// Click is a pointer click gesture.
type Click struct {
	Ctrl bool
	// Zone is ZoneLabel for the name label, ZoneItem for the rest of the row
	// and ZoneTextField for an open inline editor.
	Zone Zone
	// At defaults to the instance clock.
	At time.Time
}

type marqueeState struct {
	active       bool
	wasSelecting bool
	start        Point
	rect         Rect
}

func (i *Instance) now(at time.Time) time.Time {
	if at.IsZero() {
		return i.opts.Clock.Now()
	}
	return at
}

// Selected returns the selected paths of this instance's namespace.
func (i *Instance) Selected() []string {
	return i.registry.Selected(i.opts.Name)
}

// Active returns the key of the keyboard-active item.
func (i *Instance) Active() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// ClickItem handles a click on a row. Without ctrl it replaces the
// namespace selection with the entry, or clears it when the entry was
// already selected; with ctrl it toggles only the entry. A slow second
// click on the label opens the rename editor instead.
func (i *Instance) ClickItem(ctx context.Context, key string, c Click) {
	now := i.now(c.At)

	i.mu.Lock()
	_, it := i.findLocked(key)
	if it == nil || i.marquee.active || it.edit == EditNew {
		i.mu.Unlock()
		return
	}
	if c.Zone == ZoneTextField {
		i.mu.Unlock()
		return
	}
	action := actionSelect
	if c.Zone == ZoneLabel {
		action = i.clicks.label(key, now, i.opts.RenameDelay, i.opts.DoubleClickDelay)
	} else {
		i.clicks.touch(key, now)
	}
	if action == actionIgnore {
		i.mu.Unlock()
		return
	}
	if action == actionRename {
		i.mu.Unlock()
		i.BeginRename(key)
		return
	}
	i.active = key
	full := i.paths.Join(i.path, it.name)
	i.mu.Unlock()

	i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool {
		if !s.has(full) {
			if c.Ctrl {
				return s.add(full)
			}
			changed := s.clear()
			return s.add(full) || changed
		}
		if c.Ctrl {
			return s.remove(full)
		}
		return s.clear()
	})
}

// DoubleClickItem opens an entry when the pair's first click was less than
// RenameDelay ago: directories are shown, files go to OnOpen. With ctrl the
// selection of the directory being left is kept.
func (i *Instance) DoubleClickItem(ctx context.Context, key string, c Click) error {
	now := i.now(c.At)

	i.mu.Lock()
	_, it := i.findLocked(key)
	if it == nil || it.edit != EditNone {
		i.mu.Unlock()
		return nil
	}
	if !i.clicks.double(key, now, i.opts.RenameDelay, i.opts.DoubleClickDelay) {
		i.mu.Unlock()
		return nil
	}
	i.clicks.done(key)
	full := i.paths.Join(i.path, it.name)
	kind := it.kind
	i.mu.Unlock()

	if kind == store.KindDirectory {
		i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool { return s.remove(full) })
		return i.ShowWith(ctx, full, ShowOptions{Push: true, KeepSelection: c.Ctrl})
	}
	if i.opts.OnOpen != nil {
		i.opts.OnOpen(full)
	}
	return nil
}

// ClickWidget handles a click anywhere inside the widget. It focuses the
// widget, clears the selection on a plain click on empty content unless a
// marquee just ended, and commits open editors unless the click landed in
// a text field.
func (i *Instance) ClickWidget(ctx context.Context, zone Zone, ctrl bool) {
	i.registry.focus(i)

	i.mu.Lock()
	wasSelecting := i.marquee.wasSelecting
	i.mu.Unlock()
	if zone == ZoneContent && !ctrl && !wasSelecting {
		i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool { return s.clear() })
	}
	if zone != ZoneTextField {
		i.CommitEditors(ctx)
	}
}

// MouseDown starts a marquee when pressed on empty content.
func (i *Instance) MouseDown(zone Zone, p Point, vp Viewport) {
	if zone != ZoneContent {
		return
	}
	i.mu.Lock()
	i.marquee = marqueeState{active: true, start: vp.ToContent(p)}
	i.mu.Unlock()
}

// MouseMove extends an active marquee to p. Every item whose rectangle
// overlaps the marquee is selected; without ctrl the namespace selection is
// replaced, with ctrl it is extended.
func (i *Instance) MouseMove(p Point, vp Viewport, ctrl bool) {
	i.mu.Lock()
	if !i.marquee.active {
		i.mu.Unlock()
		return
	}
	cur := vp.ToContent(p)
	layout := i.opts.Layout
	cur.X = clamp(cur.X, 0, layout.ContainerWidth())
	cur.Y = clamp(cur.Y, 0, max(layout.ContentHeight(len(i.items)), i.marquee.start.Y))
	rect := RectFromPoints(i.marquee.start, cur)
	i.marquee.rect = rect
	i.marquee.wasSelecting = true
	var hits []string
	for n, it := range i.items {
		if it.edit == EditNew {
			continue
		}
		if layout.ItemRect(n).Overlaps(rect) {
			hits = append(hits, i.paths.Join(i.path, it.name))
		}
	}
	i.mu.Unlock()

	i.bus.Publish(&MarqueeChangedEvent{
		BaseEvent:  events.NewBase(EventMarqueeChanged),
		InstanceID: i.id,
		Active:     true,
		Rect:       rect,
	})
	i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool {
		changed := false
		if !ctrl {
			changed = s.clear()
		}
		for _, h := range hits {
			changed = s.add(h) || changed
		}
		return changed
	})
}

// MouseUp ends the marquee.
func (i *Instance) MouseUp() {
	i.mu.Lock()
	was := i.marquee.active
	i.marquee.active = false
	i.mu.Unlock()
	if was {
		i.bus.Publish(&MarqueeChangedEvent{
			BaseEvent:  events.NewBase(EventMarqueeChanged),
			InstanceID: i.id,
		})
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// KeyDown handles a key pressed while the widget has focus.
func (i *Instance) KeyDown(ctx context.Context, key Key, ctrl bool) error {
	if ctrl {
		switch strings.ToLower(string(key)) {
		case "c":
			i.Copy()
			return nil
		case "x":
			i.Cut()
			return nil
		case "v":
			return i.Paste(ctx)
		}
	}
	switch key {
	case KeyLeft, KeyRight, KeyUp, KeyDown:
		i.moveActive(key, ctrl)
	case KeyBackspace:
		return i.Back(ctx)
	case KeyEnter:
		active := i.Active()
		if active == "" {
			return nil
		}
		now := i.opts.Clock.Now()
		i.mu.Lock()
		i.clicks.touch(active, now)
		i.mu.Unlock()
		return i.DoubleClickItem(ctx, active, Click{At: now})
	case KeySpace:
		if active := i.Active(); active != "" {
			i.ClickItem(ctx, active, Click{Ctrl: true, Zone: ZoneItem})
		}
	}
	return nil
}

// moveActive moves the active item by one column or one row. Without ctrl
// the selection is cleared first.
func (i *Instance) moveActive(key Key, ctrl bool) {
	if !ctrl {
		i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool { return s.clear() })
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if len(i.items) == 0 {
		return
	}
	idx, _ := i.findLocked(i.active)
	if idx < 0 {
		i.active = i.items[0].key
		return
	}
	perRow := ItemsPerRow(i.opts.Layout)
	switch key {
	case KeyLeft:
		idx--
	case KeyRight:
		idx++
	case KeyUp:
		idx -= perRow
	case KeyDown:
		idx += perRow
	}
	idx = max(0, min(idx, len(i.items)-1))
	i.active = i.items[idx].key
}
