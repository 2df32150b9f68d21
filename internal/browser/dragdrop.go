package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/rescale/pathbrowser/internal/store"
)

// DragStart records an internal drag of the entry key. The drag moves the
// whole namespace selection when the entry is part of it.
func (i *Instance) DragStart(key string) {
	i.mu.Lock()
	_, it := i.findLocked(key)
	if it == nil || it.edit == EditNew {
		i.mu.Unlock()
		return
	}
	dir, name := i.path, it.name
	i.mu.Unlock()
	i.registry.setDrag(DragContext{
		Name:             name,
		Path:             dir,
		Source:           i,
		IsMultiSelection: i.registry.IsSelected(i.opts.Name, i.paths.Join(dir, name)),
	})
}

// DragEnd ends a drag gesture that was not dropped on a widget.
func (i *Instance) DragEnd() {
	i.registry.takeDrag()
}

// Drop describes what was released over the widget.
type Drop struct {
	// Item is the key of the row dropped on. Dropping on a directory row
	// targets that directory; any other drop targets the current one.
	Item string
	// Native holds the roots of an OS file drop. When set the drop is an
	// upload and the drag context is ignored.
	Native []NativeEntry
}

// Drop handles a release over the widget: native entries are uploaded,
// otherwise the dragged entries are moved. Afterwards the drag source, the
// widgets showing the destination and those showing this widget's
// directory are refreshed.
func (i *Instance) Drop(ctx context.Context, d Drop) error {
	cur := i.Path()
	dest := cur
	if d.Item != "" {
		i.mu.Lock()
		_, it := i.findLocked(d.Item)
		if it != nil && it.kind == store.KindDirectory && it.edit != EditNew {
			dest = i.paths.Join(cur, it.name)
		}
		i.mu.Unlock()
	}

	if len(d.Native) > 0 {
		i.registry.takeDrag()
		err := i.uploader.Process(ctx, d.Native, dest, func(root string, err error) {
			i.report(err, "")
		})
		i.broadcast(ctx, nil, dest, cur)
		return err
	}

	drag, ok := i.registry.takeDrag()
	if !ok {
		return nil
	}
	if drag.Source == nil || drag.Source.Name() != i.Name() {
		i.report(ErrCrossNamespace, msgCrossDrag)
		return ErrCrossNamespace
	}

	var errs []error
	move := func(src string) {
		target := i.paths.Join(dest, i.paths.Base(src))
		if i.paths.SameRoot(src, target) {
			return
		}
		if err := i.store.Rename(ctx, src, target); err != nil {
			errs = append(errs, fmt.Errorf("move %s: %w", src, err))
			return
		}
		i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool { return s.remove(src) })
	}
	if drag.IsMultiSelection {
		for _, src := range i.Selected() {
			move(src)
		}
	} else {
		move(i.paths.Join(drag.Path, drag.Name))
	}

	i.broadcast(ctx, []*Instance{drag.Source}, dest, cur)
	if err := errors.Join(errs...); err != nil {
		i.report(err, "")
		return err
	}
	return nil
}
