package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Copy puts the namespace selection on the clipboard, replacing whatever
// was there.
func (i *Instance) Copy() {
	i.setClipboard(false)
}

// Cut is Copy for a move.
func (i *Instance) Cut() {
	i.setClipboard(true)
}

func (i *Instance) setClipboard(cut bool) {
	i.registry.setClipboard(Clipboard{
		SourcePath: i.Path(),
		Entries:    i.Selected(),
		Source:     i,
		Cut:        cut,
	})
}

// Paste copies or moves the clipboard entries into the current directory.
// A clipboard filled by another namespace is refused before anything is
// issued. Entries that would land on themselves or inside themselves are
// skipped. All operations run concurrently; once they all settle the
// source widget and every widget showing the destination are refreshed.
func (i *Instance) Paste(ctx context.Context) error {
	cb, ok := i.registry.Clipboard()
	if !ok || len(cb.Entries) == 0 {
		return nil
	}
	if cb.Source == nil || cb.Source.Name() != i.Name() {
		i.report(ErrCrossNamespace, msgCrossPaste)
		return ErrCrossNamespace
	}

	dir := i.Path()
	op, verb := i.store.Copy, "copy"
	if cb.Cut {
		op, verb = i.store.Rename, "move"
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, src := range cb.Entries {
		dest := i.paths.Join(dir, i.paths.Base(src))
		if i.paths.SameRoot(src, dest) {
			continue
		}
		g.Go(func() error {
			if err := op(ctx, src, dest); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s %s: %w", verb, src, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	i.broadcast(ctx, []*Instance{cb.Source}, dir)
	if err := errors.Join(errs...); err != nil {
		i.report(err, "")
		return err
	}
	return nil
}

// Delete removes entries of the current directory concurrently, then
// refreshes the widgets showing it.
func (i *Instance) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	dir := i.Path()
	var (
		g       errgroup.Group
		mu      sync.Mutex
		errs    []error
		removed []string
	)
	for _, name := range names {
		full := i.paths.Join(dir, name)
		g.Go(func() error {
			err := i.store.Delete(ctx, full)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("delete %s: %w", full, err))
				return nil
			}
			removed = append(removed, full)
			return nil
		})
	}
	_ = g.Wait()

	i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool {
		changed := false
		for _, p := range removed {
			changed = s.remove(p) || changed
		}
		return changed
	})
	i.broadcast(ctx, nil, dir)
	if err := errors.Join(errs...); err != nil {
		i.report(err, "")
		return err
	}
	return nil
}

// DeleteSelected deletes the selected entries of the current listing.
func (i *Instance) DeleteSelected(ctx context.Context) error {
	var names []string
	for _, it := range i.Items() {
		if it.Selected {
			names = append(names, it.Name)
		}
	}
	return i.Delete(ctx, names...)
}
