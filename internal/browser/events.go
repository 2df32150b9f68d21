package browser

import "github.com/rescale/pathbrowser/internal/events"

// Browser event types
const (
	EventListingChanged   events.EventType = "listing_changed"
	EventLoadingChanged   events.EventType = "loading_changed"
	EventPathChanged      events.EventType = "path_changed"
	EventSelectionChanged events.EventType = "selection_changed"
	EventEditorChanged    events.EventType = "editor_changed"
	EventMenuChanged      events.EventType = "menu_changed"
	EventMarqueeChanged   events.EventType = "marquee_changed"
	EventBrowserError     events.EventType = "browser_error"
)

// ListingChangedEvent is published after a listing replaces the rendered items.
type ListingChangedEvent struct {
	events.BaseEvent
	InstanceID string
	Path       string
	Items      []Item
}

// LoadingChangedEvent is published when the content is hidden or revealed.
type LoadingChangedEvent struct {
	events.BaseEvent
	InstanceID string
	Loading    bool
}

// PathChangedEvent is published when the address bar text changes.
type PathChangedEvent struct {
	events.BaseEvent
	InstanceID string
	Path       string
	Address    string
}

// SelectionChangedEvent is published when a namespace's selection changes.
type SelectionChangedEvent struct {
	events.BaseEvent
	Namespace string
	Selected  []string
}

// EditorChangedEvent is published when an inline editor opens or closes.
type EditorChangedEvent struct {
	events.BaseEvent
	InstanceID string
	Key        string
	Edit       EditState
	Text       string
}

// MenuChangedEvent is published when the context menu chain opens, descends or closes.
type MenuChangedEvent struct {
	events.BaseEvent
	InstanceID string
	Open       bool
	Path       []string
}

// MarqueeChangedEvent carries the rubber-band rectangle in content coordinates.
type MarqueeChangedEvent struct {
	events.BaseEvent
	InstanceID string
	Active     bool
	Rect       Rect
}

// ErrorEvent is published for every surfaced failure.
type ErrorEvent struct {
	events.BaseEvent
	InstanceID string
	Message    string
	Error      error
}
