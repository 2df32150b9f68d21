package browser

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathmodel"
	"github.com/rescale/pathbrowser/internal/store"
)

// ErrDestroyed is returned by operations on a destroyed instance.
var ErrDestroyed = errors.New("browser destroyed")

// ErrCrossNamespace is returned when a drop or paste mixes namespaces.
var ErrCrossNamespace = errors.New("cross-namespace operation")

// User-facing messages.
const (
	msgInvalidDirectory = "Invalid directory"
	msgCrossDrag        = "You can't drag across different filesystems"
	msgCrossPaste       = "You can't paste across different filesystems"
)

// EditState is the inline editor state of a rendered item.
type EditState int

const (
	EditNone EditState = iota
	// EditNew marks a placeholder row for an entry not yet created.
	EditNew
	// EditRename marks an existing row whose name is being edited.
	EditRename
)

// Item is a rendered entry of the current listing.
type Item struct {
	// Key identifies the row. It is the entry name, or a generated key for
	// a placeholder row.
	Key      string
	Name     string
	Kind     store.Kind
	Classes  []string
	Selected bool
	Active   bool
	Edit     EditState
	EditText string
}

type item struct {
	key      string
	name     string
	kind     store.Kind
	classes  []string
	edit     EditState
	editText string
}

// Instance is one mounted browser widget.
type Instance struct {
	id       string
	opts     Options
	paths    pathmodel.Model
	store    store.DirectoryStore
	registry *Registry
	bus      *events.EventBus
	log      *logging.Logger
	uploader *Uploader

	mu          sync.Mutex
	path        string
	address     string
	history     []string
	items       []*item
	active      string
	generation  uint64
	loading     bool
	refreshing  int
	clicks      clickTracker
	marquee     marqueeState
	newSeq      int
	sub         *Subscription
	initialized bool
	listed      bool
	destroyed   bool
}

// New creates an instance bound to st and registers it on reg. Nothing is
// listed until Start.
func New(reg *Registry, st store.DirectoryStore, opts Options) *Instance {
	opts = opts.withDefaults()
	bus := opts.Bus
	if bus == nil {
		bus = reg.bus
	}
	m := pathmodel.New(opts.Root, opts.Separator)
	id := uuid.New().String()
	inst := &Instance{
		id:       id,
		opts:     opts,
		paths:    m,
		store:    st,
		registry: reg,
		bus:      bus,
		log: opts.Logger.Child(func(c zerolog.Context) zerolog.Context {
			return c.Str("browser", id).Str("namespace", opts.Name)
		}),
		path:    m.Root(),
		address: m.Display(m.Root()),
	}
	inst.uploader = NewUploader(st, m)
	inst.uploader.Logger = inst.log
	reg.register(inst)
	return inst
}

// ID is the unique id of the instance.
func (i *Instance) ID() string { return i.id }

// Name is the selection namespace.
func (i *Instance) Name() string { return i.opts.Name }

// Paths is the path model the instance is confined to.
func (i *Instance) Paths() pathmodel.Model { return i.paths }

// Registry returns the registry the instance belongs to.
func (i *Instance) Registry() *Registry { return i.registry }

// Uploader returns the uploader native drops go through.
func (i *Instance) Uploader() *Uploader { return i.uploader }

// Path is the directory currently displayed.
func (i *Instance) Path() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.path
}

// Address is the address bar text.
func (i *Instance) Address() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.address
}

// History returns the navigation history, oldest first.
func (i *Instance) History() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.history)
}

// Visible reports whether the content is shown, i.e. no listing or
// refresh gate is pending.
func (i *Instance) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return !i.loading && i.refreshing == 0
}

// Destroyed reports whether Destroy has been called.
func (i *Instance) Destroyed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.destroyed
}

// SetLayout replaces the geometry used for the marquee and arrow keys.
func (i *Instance) SetLayout(l Layout) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.opts.Layout = l
}

// Items returns the rendered listing.
func (i *Instance) Items() []Item {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.itemsLocked()
}

func (i *Instance) itemsLocked() []Item {
	sel := i.registry.Selected(i.opts.Name)
	selected := make(map[string]bool, len(sel))
	for _, p := range sel {
		selected[p] = true
	}
	out := make([]Item, 0, len(i.items))
	for _, it := range i.items {
		out = append(out, Item{
			Key:      it.key,
			Name:     it.name,
			Kind:     it.kind,
			Classes:  slices.Clone(it.classes),
			Selected: it.edit != EditNew && selected[i.paths.Join(i.path, it.name)],
			Active:   it.key == i.active,
			Edit:     it.edit,
			EditText: it.editText,
		})
	}
	return out
}

func (i *Instance) findLocked(key string) (int, *item) {
	for n, it := range i.items {
		if it.key == key {
			return n, it
		}
	}
	return -1, nil
}

// Start lists the start directory: StartDirectory, else the store's home,
// else the root. OnInit runs once the first listing succeeds.
func (i *Instance) Start(ctx context.Context) error {
	start := i.opts.StartDirectory
	if start == "" {
		home, err := i.store.HomeDir(ctx, "")
		if err != nil {
			i.log.Warn().Err(err).Msg("Home directory unavailable, starting at root")
			home = i.paths.Root()
		}
		start = home
	}
	if err := i.Show(ctx, start); err != nil {
		return err
	}
	i.mu.Lock()
	first := !i.initialized
	i.initialized = true
	i.mu.Unlock()
	if first && i.opts.OnInit != nil {
		i.opts.OnInit(i)
	}
	return nil
}

// Destroy detaches document handlers and unregisters the instance.
func (i *Instance) Destroy() {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return
	}
	i.destroyed = true
	i.generation++
	sub := i.sub
	i.sub = nil
	i.mu.Unlock()
	if sub != nil {
		sub.Dispose()
	}
	i.registry.unregister(i)
	i.log.Debug().Msg("Browser destroyed")
}

// ItemClasses returns the classes of an entry: its extension when the name
// has one, plus whatever Options.ItemClass adds.
func (i *Instance) ItemClasses(dir, name string) []string {
	var classes []string
	if strings.Contains(name, ".") {
		if ext := strings.TrimPrefix(path.Ext(name), "."); ext != "" {
			classes = append(classes, ext)
		}
	}
	if i.opts.ItemClass != nil {
		if c := i.opts.ItemClass(dir, name); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

// report logs a failure, publishes it and hands the message to OnError.
func (i *Instance) report(err error, message string) {
	if message == "" {
		message = err.Error()
	}
	i.log.Warn().Err(err).Msg(message)
	i.bus.Publish(&ErrorEvent{
		BaseEvent:  events.NewBase(EventBrowserError),
		InstanceID: i.id,
		Message:    message,
		Error:      err,
	})
	if i.opts.OnError != nil {
		i.opts.OnError(message)
	}
}

func (i *Instance) publishListing() {
	i.mu.Lock()
	ev := &ListingChangedEvent{
		BaseEvent:  events.NewBase(EventListingChanged),
		InstanceID: i.id,
		Path:       i.path,
		Items:      i.itemsLocked(),
	}
	i.mu.Unlock()
	i.bus.Publish(ev)
}

func (i *Instance) publishLoading(loading bool) {
	i.bus.Publish(&LoadingChangedEvent{
		BaseEvent:  events.NewBase(EventLoadingChanged),
		InstanceID: i.id,
		Loading:    loading,
	})
}

func (i *Instance) publishEditor(it item) {
	i.bus.Publish(&EditorChangedEvent{
		BaseEvent:  events.NewBase(EventEditorChanged),
		InstanceID: i.id,
		Key:        it.key,
		Edit:       it.edit,
		Text:       it.editText,
	})
}

// broadcast refreshes extra plus every instance of this namespace showing
// one of dirs, each once, and waits for all of them.
func (i *Instance) broadcast(ctx context.Context, extra []*Instance, dirs ...string) {
	var targets []*Instance
	seen := make(map[*Instance]bool)
	add := func(inst *Instance) {
		if inst == nil || seen[inst] || inst.Destroyed() {
			return
		}
		seen[inst] = true
		targets = append(targets, inst)
	}
	for _, inst := range extra {
		add(inst)
	}
	for _, dir := range dirs {
		for _, inst := range i.registry.Showing(i.opts.Name, dir) {
			add(inst)
		}
	}
	refreshAll(ctx, targets)
}

// refreshAll refreshes instances concurrently. Each reports its own failure.
func refreshAll(ctx context.Context, targets []*Instance) {
	var g errgroup.Group
	for _, inst := range targets {
		g.Go(func() error {
			_ = inst.Refresh(ctx)
			return nil
		})
	}
	_ = g.Wait()
}

func (i *Instance) String() string {
	return fmt.Sprintf("browser(%s %s)", i.opts.Name, i.Path())
}
