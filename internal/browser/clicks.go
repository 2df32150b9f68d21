package browser

import "time"

type clickPhase int

const (
	phaseIdle clickPhase = iota
	// phasePending waits for a second click on the same entry.
	phasePending
	phaseRenaming
	phaseOpening
)

type clickAction int

const (
	// actionSelect toggles the selection of the clicked entry.
	actionSelect clickAction = iota
	// actionRename opens the inline rename editor.
	actionRename
	// actionIgnore swallows the click while a rename is open.
	actionIgnore
)

// clickTracker is the per-entry click timing state machine. It remembers
// the first click of a pair; the second click is measured against it.
type clickTracker struct {
	key   string
	phase clickPhase
	at    time.Time
}

func (c *clickTracker) reset() {
	*c = clickTracker{}
}

// record starts a new pair at now without deciding anything.
func (c *clickTracker) record(key string, now time.Time) {
	c.key, c.phase, c.at = key, phasePending, now
}

// touch stamps a click outside the label. It feeds the double click check
// but leaves no pair open, so it can never lead to a rename.
func (c *clickTracker) touch(key string, now time.Time) {
	if c.key == key && c.phase == phaseRenaming {
		return
	}
	c.key, c.phase, c.at = key, phaseIdle, now
}

// label handles a click on an entry label. A second click on the same entry
// after renameDelay and before dblDelay renames it; a faster one is a
// plain toggle that leaves the pair open for a double click; one at or
// after dblDelay starts a new pair.
func (c *clickTracker) label(key string, now time.Time, renameDelay, dblDelay time.Duration) clickAction {
	if c.key == key && c.phase == phaseRenaming {
		return actionIgnore
	}
	if c.key != key || c.phase != phasePending {
		c.record(key, now)
		return actionSelect
	}
	elapsed := now.Sub(c.at)
	switch {
	case elapsed >= dblDelay:
		c.record(key, now)
		return actionSelect
	case elapsed > renameDelay:
		c.phase = phaseRenaming
		return actionRename
	default:
		c.phase = phaseIdle
		return actionSelect
	}
}

// double reports whether a double click on key opens it: the pair's first
// click must be less than renameDelay ago.
func (c *clickTracker) double(key string, now time.Time, renameDelay, dblDelay time.Duration) bool {
	if c.key != key || c.phase == phaseRenaming || c.at.IsZero() {
		return false
	}
	elapsed := now.Sub(c.at)
	if elapsed >= renameDelay || elapsed >= dblDelay {
		return false
	}
	c.phase = phaseOpening
	return true
}

func (c *clickTracker) renaming(key string) {
	c.key, c.phase = key, phaseRenaming
}

func (c *clickTracker) done(key string) {
	if c.key == key {
		c.reset()
	}
}
