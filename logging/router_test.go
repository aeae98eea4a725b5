package logging

import (
	"context"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close(context.Context) error { return nil }

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]Event, len(s.events))
	copy(copied, s.events)
	return copied
}

func closeRouter(t *testing.T, r *Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("failed to close router: %v", err)
	}
}

func TestRouterDeliversEventsToSinks(t *testing.T) {
	sink := &captureSink{}
	router, err := NewRouter(nil, DefaultConfig(), []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "netcode.rollback", Tick: 7, Severity: SeverityInfo})
	router.Publish(context.Background(), Event{Type: "netcode.resync", Tick: 8, Severity: SeverityWarn})
	closeRouter(t, router)

	events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 delivered events, got %d", len(events))
	}
	if events[0].Type != "netcode.rollback" || events[0].Tick != 7 {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("expected the router to stamp event time")
	}

	stats := router.Stats()
	if stats.EventsTotal != 2 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.MinimumSeverity = SeverityWarn
	router, err := NewRouter(nil, cfg, []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "quiet", Severity: SeverityDebug})
	router.Publish(context.Background(), Event{Type: "loud", Severity: SeverityError})
	closeRouter(t, router)

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	if events[0].Type != "loud" {
		t.Fatalf("expected the error event, got %+v", events[0])
	}
}

func TestRouterMergesConfiguredFields(t *testing.T) {
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.Fields = map[string]any{"role": "server"}
	router, err := NewRouter(nil, cfg, []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}

	router.Publish(context.Background(), Event{Type: "tagged", Severity: SeverityInfo})
	closeRouter(t, router)

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(events))
	}
	if events[0].Extra["role"] != "server" {
		t.Fatalf("expected configured field on event, got %+v", events[0].Extra)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	sink := &captureSink{}
	router, err := NewRouter(nil, DefaultConfig(), []NamedSink{{Name: "capture", Sink: sink}})
	if err != nil {
		t.Fatalf("failed to build router: %v", err)
	}
	closeRouter(t, router)

	router.Publish(context.Background(), Event{Type: "late", Severity: SeverityInfo})

	if len(sink.snapshot()) != 0 {
		t.Fatalf("expected no events after close")
	}
}

func TestWithFieldsDoesNotOverrideEventExtra(t *testing.T) {
	var got Event
	pub := WithFields(PublisherFunc(func(_ context.Context, event Event) {
		got = event
	}), map[string]any{"session": "default", "role": "server"})

	pub.Publish(context.Background(), Event{Type: "tagged"}.WithExtra("session", "abc"))

	if got.Extra["session"] != "abc" {
		t.Fatalf("expected event extra to win, got %v", got.Extra["session"])
	}
	if got.Extra["role"] != "server" {
		t.Fatalf("expected publisher field merged, got %v", got.Extra["role"])
	}
}
