// Package events routes browser notifications to whoever hosts the widgets.
//
// Event structs live next to the code that emits them and embed BaseEvent.
// The bus only looks at EventType. Publish never blocks; a subscriber whose
// buffer is full misses the event and the drop is counted.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rescale/pathbrowser/internal/constants"
)

type EventType string

// EventLog carries warnings and errors mirrored from the logger.
const EventLog EventType = "log"

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

type Event interface {
	Type() EventType
	Timestamp() time.Time
}

type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NewBase stamps a BaseEvent with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

type LogEvent struct {
	BaseEvent
	Level   LogLevel
	Message string
	Source  string
	Error   error
}

// subscription is one channel and the event types it wants. An empty
// filter matches everything.
type subscription struct {
	ch    chan Event
	types []EventType
}

func (s *subscription) wants(t EventType) bool {
	return len(s.types) == 0 || slices.Contains(s.types, t)
}

type EventBus struct {
	mu         sync.RWMutex
	subs       []*subscription
	bufferSize int
	closed     bool
	dropped    atomic.Int64
}

// NewEventBus creates a bus whose subscriber channels hold bufferSize
// events. Zero or negative selects the default size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	return &EventBus{bufferSize: min(bufferSize, constants.EventBusMaxBuffer)}
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given. After Close it returns a closed channel.
func (eb *EventBus) Subscribe(types ...EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}
	sub := &subscription{ch: make(chan Event, eb.bufferSize), types: types}
	eb.subs = append(eb.subs, sub)
	return sub.ch
}

// SubscribeAll is Subscribe with no filter.
func (eb *EventBus) SubscribeAll() <-chan Event { return eb.Subscribe() }

// Publish delivers event to every matching subscriber without blocking.
// A nil bus discards everything.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}
	t := event.Type()
	for _, sub := range eb.subs {
		if !sub.wants(t) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			eb.dropped.Add(1)
		}
	}
}

func (eb *EventBus) PublishLog(level LogLevel, message, source string, err error) {
	eb.Publish(&LogEvent{
		BaseEvent: NewBase(EventLog),
		Level:     level,
		Message:   message,
		Source:    source,
		Error:     err,
	})
}

// Unsubscribe removes ch and closes it so a ranging reader terminates.
// Unknown channels are ignored.
func (eb *EventBus) Unsubscribe(ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	i := slices.IndexFunc(eb.subs, func(s *subscription) bool { return s.ch == ch })
	if i < 0 {
		return
	}
	close(eb.subs[i].ch)
	eb.subs = slices.Delete(eb.subs, i, i+1)
}

// Close closes every subscriber channel. Later Publish calls are dropped.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true
	for _, sub := range eb.subs {
		close(sub.ch)
	}
	eb.subs = nil
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (eb *EventBus) Dropped() int64 { return eb.dropped.Load() }

// ResetDropped zeroes the drop counter and returns its previous value.
func (eb *EventBus) ResetDropped() int64 { return eb.dropped.Swap(0) }
