package browser

import (
	"context"
	"errors"
	"sync"
)

// DocEventKind is a document-level event type.
type DocEventKind int

const (
	DocClick DocEventKind = iota
	DocKeyDown
	DocMouseDown
	DocMouseMove
	DocMouseUp
)

// Target is where a document event landed.
type Target struct {
	// Instance is the widget under the pointer, nil outside every widget.
	Instance *Instance
	Zone     Zone
	// Item is the row key for ZoneItem, ZoneLabel and ZoneTextField.
	Item string
	// MenuPath is the label chain of a clicked menu entry for ZoneMenu.
	MenuPath []string
}

// DocEvent is an event observed on the whole document.
type DocEvent struct {
	Kind     DocEventKind
	Key      Key
	Ctrl     bool
	Point    Point
	Viewport Viewport
	Target   Target
}

// DocHandler handles a document event.
type DocHandler func(ctx context.Context, ev DocEvent)

// Document fans document-level events out to the widgets mounted on it.
type Document struct {
	mu       sync.RWMutex
	handlers map[DocEventKind]map[int]DocHandler
	next     int
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{handlers: make(map[DocEventKind]map[int]DocHandler)}
}

// On registers h for kind and returns the function that removes it.
func (d *Document) On(kind DocEventKind, h DocHandler) (off func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.next
	d.next++
	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[int]DocHandler)
	}
	d.handlers[kind][id] = h
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[kind], id)
	}
}

// HandlerCount returns the number of registered handlers.
func (d *Document) HandlerCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n := 0
	for _, hs := range d.handlers {
		n += len(hs)
	}
	return n
}

// Dispatch delivers ev to every handler registered for its kind.
func (d *Document) Dispatch(ctx context.Context, ev DocEvent) {
	d.mu.RLock()
	hs := make([]DocHandler, 0, len(d.handlers[ev.Kind]))
	for _, h := range d.handlers[ev.Kind] {
		hs = append(hs, h)
	}
	d.mu.RUnlock()
	for _, h := range hs {
		h(ctx, ev)
	}
}

// Subscription is the set of document handlers a widget registered.
type Subscription struct {
	once sync.Once
	offs []func()
}

// Dispose removes every handler. It is safe to call more than once.
func (s *Subscription) Dispose() {
	s.once.Do(func() {
		for _, off := range s.offs {
			off()
		}
	})
}

// ErrMounted is returned when mounting an instance twice.
var ErrMounted = errors.New("browser already mounted")

// Mount attaches the instance's document handlers: focus and menu closing
// on click, keyboard routing, and marquee tracking. Destroy disposes them.
func (i *Instance) Mount(doc *Document) (*Subscription, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.destroyed {
		return nil, ErrDestroyed
	}
	if i.sub != nil {
		return nil, ErrMounted
	}
	sub := &Subscription{offs: []func(){
		doc.On(DocClick, i.onDocClick),
		doc.On(DocKeyDown, i.onDocKeyDown),
		doc.On(DocMouseDown, i.onDocMouseDown),
		doc.On(DocMouseMove, i.onDocMouseMove),
		doc.On(DocMouseUp, i.onDocMouseUp),
	}}
	i.sub = sub
	return sub, nil
}

func (i *Instance) ownsMenu() bool {
	m, ok := i.registry.Menu()
	return ok && m.Owner == i
}

func (i *Instance) onDocClick(ctx context.Context, ev DocEvent) {
	if ev.Target.Instance != i {
		i.registry.blur(i)
	}
	if !i.ownsMenu() {
		return
	}
	if ev.Target.Zone == ZoneMenu {
		if err := i.MenuSelect(ctx, ev.Target.MenuPath...); err != nil {
			i.log.Debug().Err(err).Msg("Menu action failed")
		}
		return
	}
	i.registry.HideMenus()
}

func (i *Instance) onDocKeyDown(ctx context.Context, ev DocEvent) {
	if i.registry.Focused() != i || ev.Target.Zone == ZoneTextField {
		return
	}
	_ = i.KeyDown(ctx, ev.Key, ev.Ctrl)
}

func (i *Instance) onDocMouseDown(_ context.Context, ev DocEvent) {
	if ev.Target.Zone != ZoneMenu && i.ownsMenu() {
		i.registry.HideMenus()
	}
}

func (i *Instance) onDocMouseMove(_ context.Context, ev DocEvent) {
	i.MouseMove(ev.Point, ev.Viewport, ev.Ctrl)
}

func (i *Instance) onDocMouseUp(context.Context, DocEvent) {
	i.MouseUp()
}
