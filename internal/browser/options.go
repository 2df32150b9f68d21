package browser

import (
	"time"

	"github.com/rescale/pathbrowser/internal/constants"
	"github.com/rescale/pathbrowser/internal/events"
	"github.com/rescale/pathbrowser/internal/logging"
	"github.com/rescale/pathbrowser/internal/pathmodel"
)

// Clock abstracts time so click timing and the refresh gate are testable.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Options configures an Instance.
type Options struct {
	Root      string
	Separator string
	// Name is the selection namespace.
	Name string
	// Labels shows text labels on toolbar buttons.
	Labels bool

	RenameDelay      time.Duration
	DoubleClickDelay time.Duration
	// RefreshTimer is the minimum time Refresh keeps the content hidden. Zero disables the gate.
	RefreshTimer time.Duration

	// StartDirectory is shown first. Empty asks the store's HomeDir.
	StartDirectory string

	// EscapeCancelsRename makes Escape discard an edited rename. The default
	// applies the rename on Escape as well as Enter.
	EscapeCancelsRename bool

	// ItemClass returns an extra class for an entry of the listing at path.
	ItemClass func(path, name string) string
	// Menu returns the context menu for a target kind. A nil result selects
	// the built-in menu.
	Menu func(kind TargetKind) Menu
	// OnOpen is called for a double clicked file and for the forward button.
	OnOpen func(path string)
	// OnInit is called once, after the start directory is first listed.
	OnInit func(inst *Instance)
	// OnChange is called after every successful listing.
	OnChange func(inst *Instance)
	// OnError receives every surfaced failure.
	OnError func(message string)

	Layout Layout
	Bus    *events.EventBus
	Logger *logging.Logger
	Clock  Clock
}

// DefaultOptions returns the stock widget configuration.
func DefaultOptions() Options {
	return Options{
		Root:             pathmodel.DefaultRoot,
		Separator:        pathmodel.DefaultSeparator,
		Name:             constants.DefaultName,
		Labels:           true,
		RenameDelay:      constants.RenameDelay,
		DoubleClickDelay: constants.DoubleClickDelay,
		RefreshTimer:     constants.RefreshTimer,
	}
}

// withDefaults fills identity fields and collaborators left empty. Durations
// are taken as given, except that both click delays unset means defaults.
func (o Options) withDefaults() Options {
	if o.Root == "" {
		o.Root = pathmodel.DefaultRoot
	}
	if o.Separator == "" {
		o.Separator = pathmodel.DefaultSeparator
	}
	if o.Name == "" {
		o.Name = constants.DefaultName
	}
	if o.RenameDelay == 0 && o.DoubleClickDelay == 0 {
		o.RenameDelay = constants.RenameDelay
		o.DoubleClickDelay = constants.DoubleClickDelay
	}
	if o.Layout == nil {
		o.Layout = GridLayout{Width: 600, CellWidth: 100, CellHeight: 80}
	}
	if o.Logger == nil {
		o.Logger = logging.NewNopLogger()
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	return o
}
