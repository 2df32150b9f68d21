package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/store"
)

// ShowOptions control a navigation.
type ShowOptions struct {
	// Push appends the path to the history.
	Push bool
	// Force lists the path even when it is already displayed.
	Force bool
	// KeepSelection keeps the selection of the directory being left.
	KeepSelection bool

	retried bool
	// popHistory drops the newest history entry once the listing succeeds.
	popHistory bool
}

// Show navigates to dir and records it in the history.
func (i *Instance) Show(ctx context.Context, dir string) error {
	return i.ShowWith(ctx, dir, ShowOptions{Push: true})
}

// Navigate shows the path typed into the address bar.
func (i *Instance) Navigate(ctx context.Context, text string) error {
	return i.Show(ctx, text)
}

// ShowWith navigates to dir. Only the latest navigation may apply its
// result: a listing that resolves after a newer Show started is dropped
// and ShowWith returns nil. A directory that cannot be enumerated makes the
// instance retry once at its parent; a second failure is surfaced and the
// previous listing stays on screen.
func (i *Instance) ShowWith(ctx context.Context, dir string, opts ShowOptions) error {
	dir = i.paths.Normalize(dir)

	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return ErrDestroyed
	}
	if dir == i.path && !opts.Force && i.listed {
		i.mu.Unlock()
		return nil
	}
	i.generation++
	gen := i.generation
	prev := i.path
	pushed := opts.Push && (len(i.history) == 0 || i.history[len(i.history)-1] != dir)
	if pushed {
		i.history = append(i.history, dir)
	}
	i.path = dir
	i.loading = true
	// During a refresh only Refresh reports loading, after its timer.
	quiet := i.refreshing > 0
	i.mu.Unlock()
	if !quiet {
		i.publishLoading(true)
	}

	listing, err := i.store.List(ctx, dir)

	i.mu.Lock()
	if gen != i.generation {
		i.mu.Unlock()
		i.log.Debug().Str("path", dir).Msg("Discarding superseded listing")
		return nil
	}
	i.loading = false
	quiet = i.refreshing > 0
	if err != nil {
		i.path = prev
		if pushed {
			i.history = i.history[:len(i.history)-1]
		}
		i.mu.Unlock()
		if !quiet {
			i.publishLoading(false)
		}

		if errors.Is(err, store.ErrInvalidDirectory) && !opts.retried && !i.paths.IsRoot(dir) {
			i.log.Debug().Str("path", dir).Msg("Invalid directory, trying parent")
			up := opts
			up.Push = true
			up.Force = true
			up.retried = true
			up.popHistory = false
			return i.ShowWith(ctx, i.paths.Parent(dir), up)
		}
		msg := ""
		if errors.Is(err, store.ErrInvalidDirectory) {
			msg = msgInvalidDirectory
		}
		i.report(err, msg)
		return fmt.Errorf("show %s: %w", dir, err)
	}

	i.applyListingLocked(listing, prev, opts.KeepSelection)
	i.listed = true
	if opts.popHistory && len(i.history) > 1 {
		i.history = i.history[:len(i.history)-1]
	}
	i.address = i.paths.Display(dir)
	address := i.address
	i.mu.Unlock()

	if !quiet {
		i.publishLoading(false)
	}
	i.bus.Publish(&PathChangedEvent{
		BaseEvent:  events.NewBase(EventPathChanged),
		InstanceID: i.id,
		Path:       dir,
		Address:    address,
	})
	i.publishListing()
	if i.opts.OnChange != nil {
		i.opts.OnChange(i)
	}
	return nil
}

// applyListingLocked replaces the rendered items and reconciles the
// selection: entries of the displayed directory that vanished are dropped,
// and leaving a directory clears what was selected in it.
func (i *Instance) applyListingLocked(listing store.Listing, prev string, keepSelection bool) {
	items := make([]*item, 0, len(listing.Dirs)+len(listing.Files))
	for _, e := range listing.Entries() {
		items = append(items, &item{
			key:     e.Name,
			name:    e.Name,
			kind:    e.Kind,
			classes: i.ItemClasses(i.path, e.Name),
		})
	}
	i.items = items
	i.newSeq = 0
	i.clicks.reset()
	if _, it := i.findLocked(i.active); it == nil {
		i.active = ""
	}

	cur := i.path
	leaving := prev != cur && !keepSelection
	i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool {
		return s.removeFunc(func(p string) bool {
			parent := i.paths.Parent(p)
			if parent == cur {
				return !listing.Has(i.paths.Base(p))
			}
			return leaving && parent == prev
		})
	})
}

// Up shows the parent directory.
func (i *Instance) Up(ctx context.Context) error {
	return i.Show(ctx, i.paths.Parent(i.Path()))
}

// Back shows the previous history entry and pops the current one once that
// listing succeeds. With a single entry it does nothing.
func (i *Instance) Back(ctx context.Context) error {
	i.mu.Lock()
	if len(i.history) <= 1 {
		i.mu.Unlock()
		return nil
	}
	target := i.history[len(i.history)-2]
	i.mu.Unlock()
	return i.ShowWith(ctx, target, ShowOptions{popHistory: true})
}

// Refresh re-lists the current directory without touching the history.
// The content stays hidden until both the listing and RefreshTimer are done.
func (i *Instance) Refresh(ctx context.Context) error {
	i.mu.Lock()
	if i.destroyed {
		i.mu.Unlock()
		return ErrDestroyed
	}
	dir := i.path
	i.refreshing++
	i.mu.Unlock()
	i.publishLoading(true)

	var gate <-chan time.Time
	if i.opts.RefreshTimer > 0 {
		gate = i.opts.Clock.After(i.opts.RefreshTimer)
	}
	err := i.ShowWith(ctx, dir, ShowOptions{Force: true, KeepSelection: true})
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
		}
	}

	i.mu.Lock()
	i.refreshing--
	visible := !i.loading && i.refreshing == 0
	i.mu.Unlock()
	if visible {
		i.publishLoading(false)
	}
	return err
}

// CanBack reports whether Back would navigate.
func (i *Instance) CanBack() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.history) > 1
}

// CanUp reports whether Up would navigate.
func (i *Instance) CanUp() bool {
	return !i.paths.IsRoot(i.Path())
}

// ToolbarButton is a rendered toolbar control.
type ToolbarButton struct {
	Name     string
	Label    string
	Disabled bool
}

// Toolbar returns the toolbar in display order.
func (i *Instance) Toolbar() []ToolbarButton {
	buttons := []ToolbarButton{
		{Name: "back", Label: "back", Disabled: !i.CanBack()},
		{Name: "up", Label: "up", Disabled: !i.CanUp()},
		{Name: "refresh", Label: "refresh"},
		{Name: "forward", Label: "Forward"},
	}
	if !i.opts.Labels {
		for n := range buttons {
			buttons[n].Label = ""
		}
	}
	return buttons
}

// PressToolbar runs a toolbar button. Disabled buttons do nothing; forward
// hands the current path to OnOpen.
func (i *Instance) PressToolbar(ctx context.Context, name string) error {
	switch name {
	case "back":
		return i.Back(ctx)
	case "up":
		if !i.CanUp() {
			return nil
		}
		return i.Up(ctx)
	case "refresh":
		return i.Refresh(ctx)
	case "forward":
		if i.opts.OnOpen != nil {
			i.opts.OnOpen(i.Path())
		}
		return nil
	default:
		return fmt.Errorf("unknown toolbar button %q", name)
	}
}
