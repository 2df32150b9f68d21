package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rescale/pathbrowser/internal/events"
)

func TestSetOutputRedirects(t *testing.T) {
	l := NewLogger(ModeCLI, nil)
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.Info().Str("path", "/a").Msg("listed")
	if !strings.Contains(buf.String(), "listed") {
		t.Errorf("output %q does not contain message", buf.String())
	}
	if l.Output() != &buf {
		t.Error("Output() should return the redirected writer")
	}
}

func TestEmbeddedLoggerPublishesWarnings(t *testing.T) {
	bus := events.NewEventBus(10)
	defer bus.Close()
	ch := bus.Subscribe(events.EventLog)

	l := NewLogger(ModeEmbedded, bus)
	l.SetOutput(&bytes.Buffer{})
	l.Info().Msg("quiet")
	l.Warn().Msg("loud")

	select {
	case ev := <-ch:
		logEv := ev.(*events.LogEvent)
		if logEv.Level != events.WarnLevel || logEv.Message != "loud" {
			t.Errorf("got %v %q, want WARN loud", logEv.Level, logEv.Message)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("warning was not published")
	}
	if len(ch) != 0 {
		t.Error("info records should not be published")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.SetOutput(&bytes.Buffer{})
	l.Error().Msg("dropped")
	child := l.Child(func(c zerolog.Context) zerolog.Context { return c.Str("k", "v") })
	child.Debugf("x %d", 1)
}

func TestChildKeepsFieldsAndWriter(t *testing.T) {
	var parentBuf, childBuf bytes.Buffer
	l := NewLogger(ModeEmbedded, nil)
	l.SetOutput(&childBuf)
	child := l.Child(func(c zerolog.Context) zerolog.Context { return c.Str("pane", "left") })

	l.SetOutput(&parentBuf)
	child.Info().Msg("from child")
	l.Info().Msg("from parent")

	if !strings.Contains(childBuf.String(), "pane=left") || strings.Contains(childBuf.String(), "from parent") {
		t.Errorf("child output = %q", childBuf.String())
	}
	if strings.Contains(parentBuf.String(), "from child") {
		t.Errorf("parent output = %q", parentBuf.String())
	}
}
