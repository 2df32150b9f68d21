package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/store"
)

// Create appends an editable placeholder row for a new entry of kind and
// returns its key. Nothing is created until the editor is committed.
func (i *Instance) Create(kind store.Kind) string {
	i.mu.Lock()
	i.newSeq++
	it := &item{
		key:      "new:" + strconv.Itoa(i.newSeq),
		kind:     kind,
		edit:     EditNew,
		editText: constants.NewEntryPrefix + kind.String(),
	}
	i.items = append(i.items, it)
	snapshot := *it
	i.mu.Unlock()
	i.publishEditor(snapshot)
	return snapshot.key
}

// CreateAt creates an entry at p. An existing entry is reported as
// "<Kind> already exists" and removes every placeholder row; otherwise the
// entry is created and every widget showing the current directory or the
// parent of p is refreshed.
func (i *Instance) CreateAt(ctx context.Context, kind store.Kind, p string) error {
	p = i.paths.Normalize(p)
	exists, err := i.store.Exists(ctx, p)
	if err != nil {
		i.dropPlaceholders()
		i.report(err, "")
		return fmt.Errorf("exists %s: %w", p, err)
	}
	if exists {
		i.dropPlaceholders()
		i.report(store.ErrAlreadyExists, kind.String()+" already exists")
		return fmt.Errorf("create %s: %w", p, store.ErrAlreadyExists)
	}
	if err := i.store.Create(ctx, kind, p); err != nil {
		i.dropPlaceholders()
		msg := ""
		if errors.Is(err, store.ErrAlreadyExists) {
			msg = kind.String() + " already exists"
		}
		i.report(err, msg)
		return fmt.Errorf("create %s: %w", p, err)
	}
	i.broadcast(ctx, nil, i.Path(), i.paths.Parent(p))
	return nil
}

// RefreshSame refreshes every widget of the namespace showing this
// instance's directory, this one included.
func (i *Instance) RefreshSame(ctx context.Context) {
	i.broadcast(ctx, nil, i.Path())
}

func (i *Instance) dropPlaceholders() {
	i.mu.Lock()
	var dropped []item
	kept := i.items[:0]
	for _, it := range i.items {
		if it.edit == EditNew {
			dropped = append(dropped, *it)
			continue
		}
		kept = append(kept, it)
	}
	i.items = kept
	i.mu.Unlock()
	for _, it := range dropped {
		it.edit = EditNone
		i.publishEditor(it)
	}
}

// BeginRename opens the rename editor on an existing row. Rows already
// being edited are left alone.
func (i *Instance) BeginRename(key string) {
	i.mu.Lock()
	_, it := i.findLocked(key)
	if it == nil || it.edit != EditNone {
		i.mu.Unlock()
		return
	}
	it.edit = EditRename
	it.editText = it.name
	i.clicks.renaming(key)
	snapshot := *it
	i.mu.Unlock()
	i.publishEditor(snapshot)
}

// SetEditText records the text typed into an open editor.
func (i *Instance) SetEditText(key, text string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, it := i.findLocked(key); it != nil && it.edit != EditNone {
		it.editText = text
	}
}

// EditKey handles Enter or Escape in the editor of row key. Enter commits.
// Escape removes a placeholder; on a rename it applies a changed name too,
// unless EscapeCancelsRename is set.
func (i *Instance) EditKey(ctx context.Context, key string, k Key, text string) error {
	if k != KeyEnter && k != KeyEscape {
		return nil
	}
	i.SetEditText(key, text)
	return i.commit(ctx, key, k == KeyEscape)
}

// CommitEditors commits every open editor as if Enter was pressed.
func (i *Instance) CommitEditors(ctx context.Context) {
	i.mu.Lock()
	var keys []string
	for _, it := range i.items {
		if it.edit != EditNone {
			keys = append(keys, it.key)
		}
	}
	i.mu.Unlock()
	for _, key := range keys {
		_ = i.commit(ctx, key, false)
	}
}

func (i *Instance) commit(ctx context.Context, key string, escape bool) error {
	i.mu.Lock()
	idx, it := i.findLocked(key)
	if it == nil || it.edit == EditNone {
		i.mu.Unlock()
		return nil
	}
	dir := i.path
	text := it.editText
	switch it.edit {
	case EditNew:
		if escape {
			i.items = append(i.items[:idx], i.items[idx+1:]...)
			snapshot := *it
			i.mu.Unlock()
			snapshot.edit = EditNone
			i.publishEditor(snapshot)
			return nil
		}
		kind := it.kind
		i.mu.Unlock()
		return i.CreateAt(ctx, kind, i.paths.Join(dir, text))
	default:
		oldName := it.name
		it.edit = EditNone
		it.editText = ""
		i.clicks.done(key)
		snapshot := *it
		i.mu.Unlock()
		i.publishEditor(snapshot)
		if text == oldName || text == "" || (escape && i.opts.EscapeCancelsRename) {
			return nil
		}
		return i.Rename(ctx, oldName, text)
	}
}

// Rename renames an entry of the current directory and refreshes the
// widgets showing it.
func (i *Instance) Rename(ctx context.Context, oldName, newName string) error {
	dir := i.Path()
	src, dest := i.paths.Join(dir, oldName), i.paths.Join(dir, newName)
	if i.paths.SameRoot(src, dest) {
		return nil
	}
	if err := i.store.Rename(ctx, src, dest); err != nil {
		i.report(err, "")
		return fmt.Errorf("rename %s: %w", src, err)
	}
	i.registry.updateSelection(i.opts.Name, func(s *selectionSet) bool { return s.remove(src) })
	i.broadcast(ctx, nil, dir)
	return nil
}
