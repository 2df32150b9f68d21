package browser

import (
	"context"
	"slices"
	"sync"

	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/store"
)

// Clipboard is the shared copy/cut buffer.
type Clipboard struct {
	SourcePath string
	Entries    []string
	Source     *Instance
	Cut        bool
}

// DragContext describes an in-flight internal drag.
type DragContext struct {
	Name             string
	Path             string
	Source           *Instance
	IsMultiSelection bool
}

// OpenMenu is the single context menu chain open across a registry.
type OpenMenu struct {
	Owner  *Instance
	Target MenuTarget
	Menu   Menu
	// Path is the chain of submenu labels currently expanded.
	Path []string
}

// selectionSet is an insertion-ordered set of paths.
type selectionSet struct {
	paths []string
	index map[string]struct{}
}

func newSelectionSet() *selectionSet {
	return &selectionSet{index: make(map[string]struct{})}
}

func (s *selectionSet) has(p string) bool {
	_, ok := s.index[p]
	return ok
}

func (s *selectionSet) add(p string) bool {
	if s.has(p) {
		return false
	}
	s.index[p] = struct{}{}
	s.paths = append(s.paths, p)
	return true
}

func (s *selectionSet) remove(p string) bool {
	if !s.has(p) {
		return false
	}
	delete(s.index, p)
	s.paths = slices.DeleteFunc(s.paths, func(q string) bool { return q == p })
	return true
}

func (s *selectionSet) removeFunc(fn func(string) bool) bool {
	changed := false
	for _, p := range slices.Clone(s.paths) {
		if fn(p) {
			changed = s.remove(p) || changed
		}
	}
	return changed
}

func (s *selectionSet) clear() bool {
	if len(s.paths) == 0 {
		return false
	}
	s.paths = nil
	s.index = make(map[string]struct{})
	return true
}

// Registry is the state shared by every Instance created on it. Hosts
// normally create one per page.
type Registry struct {
	mu         sync.Mutex
	bus        *events.EventBus
	selections map[string]*selectionSet
	clipboard  *Clipboard
	drag       *DragContext
	instances  []*Instance
	focused    *Instance
	menu       *OpenMenu
}

// NewRegistry creates an empty registry. bus may be nil.
func NewRegistry(bus *events.EventBus) *Registry {
	return &Registry{
		bus:        bus,
		selections: make(map[string]*selectionSet),
	}
}

func (r *Registry) set(name string) *selectionSet {
	s, ok := r.selections[name]
	if !ok {
		s = newSelectionSet()
		r.selections[name] = s
	}
	return s
}

// Selected returns the selected paths of a namespace in selection order.
func (r *Registry) Selected(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.set(name).paths)
}

// IsSelected reports whether path is selected in the namespace.
func (r *Registry) IsSelected(name, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.set(name).has(path)
}

// updateSelection applies fn to a namespace and publishes when it changed.
func (r *Registry) updateSelection(name string, fn func(s *selectionSet) bool) {
	r.mu.Lock()
	s := r.set(name)
	changed := fn(s)
	snapshot := slices.Clone(s.paths)
	r.mu.Unlock()
	if changed {
		r.bus.Publish(&SelectionChangedEvent{
			BaseEvent: events.NewBase(EventSelectionChanged),
			Namespace: name,
			Selected:  snapshot,
		})
	}
}

// Clipboard returns a copy of the clipboard, if one is set.
func (r *Registry) Clipboard() (Clipboard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.clipboard == nil {
		return Clipboard{}, false
	}
	cb := *r.clipboard
	cb.Entries = slices.Clone(cb.Entries)
	return cb, true
}

func (r *Registry) setClipboard(cb Clipboard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clipboard = &cb
}

// Drag returns the in-flight drag, if any.
func (r *Registry) Drag() (DragContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drag == nil {
		return DragContext{}, false
	}
	return *r.drag, true
}

func (r *Registry) setDrag(d DragContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drag = &d
}

// takeDrag returns and clears the drag context.
func (r *Registry) takeDrag() (DragContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drag == nil {
		return DragContext{}, false
	}
	d := *r.drag
	r.drag = nil
	return d, true
}

// Menu returns the open menu chain, if any.
func (r *Registry) Menu() (OpenMenu, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.menu == nil {
		return OpenMenu{}, false
	}
	m := *r.menu
	m.Path = slices.Clone(m.Path)
	return m, true
}

func (r *Registry) openMenu(m OpenMenu) {
	r.mu.Lock()
	r.menu = &m
	r.mu.Unlock()
	r.bus.Publish(&MenuChangedEvent{
		BaseEvent:  events.NewBase(EventMenuChanged),
		InstanceID: m.Owner.ID(),
		Open:       true,
		Path:       slices.Clone(m.Path),
	})
}

// HideMenus closes every open menu.
func (r *Registry) HideMenus() {
	r.mu.Lock()
	m := r.menu
	r.menu = nil
	r.mu.Unlock()
	if m == nil {
		return
	}
	r.bus.Publish(&MenuChangedEvent{
		BaseEvent:  events.NewBase(EventMenuChanged),
		InstanceID: m.Owner.ID(),
	})
}

// Focused returns the widget keyboard input is routed to.
func (r *Registry) Focused() *Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

func (r *Registry) focus(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused = inst
}

func (r *Registry) blur(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.focused == inst {
		r.focused = nil
	}
}

// Instances returns the live instances in creation order.
func (r *Registry) Instances() []*Instance {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.instances)
}

func (r *Registry) register(inst *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances = append(r.instances, inst)
}

func (r *Registry) unregister(inst *Instance) {
	r.mu.Lock()
	r.instances = slices.DeleteFunc(r.instances, func(o *Instance) bool { return o == inst })
	if r.focused == inst {
		r.focused = nil
	}
	if r.drag != nil && r.drag.Source == inst {
		r.drag = nil
	}
	menuOwned := r.menu != nil && r.menu.Owner == inst
	r.mu.Unlock()
	if menuOwned {
		r.HideMenus()
	}
}

// Showing returns the instances of a namespace currently displaying path.
func (r *Registry) Showing(name, path string) []*Instance {
	var out []*Instance
	for _, inst := range r.Instances() {
		if inst.Name() == name && inst.Path() == inst.paths.Normalize(path) {
			out = append(out, inst)
		}
	}
	return out
}

// RefreshSame refreshes every instance of a namespace displaying path and
// waits for them.
func (r *Registry) RefreshSame(ctx context.Context, name, path string) {
	refreshAll(ctx, r.Showing(name, path))
}

// Follow watches w and refreshes the instances of a namespace showing a
// directory the watcher reports as changed. It blocks until ctx is done or
// the watcher fails.
func (r *Registry) Follow(ctx context.Context, name string, w store.Watcher) error {
	return w.Watch(ctx, func(dir string) {
		r.RefreshSame(ctx, name, dir)
	})
}
