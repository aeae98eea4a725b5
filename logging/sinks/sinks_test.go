package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ghost-lap/server/logging"
)

func TestJSONSinkEmitsOneLinePerEvent(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONSink(&buf, 0)

	events := []logging.Event{
		{Type: "netcode.rollback", Tick: 5, Time: time.Unix(100, 0).UTC(), Severity: logging.SeverityWarn, Category: logging.CategoryNetcode},
		{Type: "netcode.resync", Tick: 6, Time: time.Unix(101, 0).UTC(), Severity: logging.SeverityError, Category: logging.CategoryNetcode},
	}
	for _, event := range events {
		if err := sink.Write(event); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if first["type"] != "netcode.rollback" {
		t.Fatalf("expected rollback event first, got %v", first["type"])
	}
	if first["tick"].(float64) != 5 {
		t.Fatalf("expected tick 5, got %v", first["tick"])
	}
}

func TestConsoleSinkFormatsEventLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, logging.ConsoleConfig{})

	err := sink.Write(logging.Event{
		Type:     "netcode.stale_clamp",
		Tick:     9,
		Session:  "abc",
		Severity: logging.SeverityWarn,
		Payload:  map[string]int64{"receivedTick": 2},
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"netcode.stale_clamp", "tick=9", "severity=warn", "session=abc", "receivedTick"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected console line to contain %q, got %q", want, line)
		}
	}
}

func TestMemorySinkCapturesAndResets(t *testing.T) {
	sink := NewMemorySink()
	event := logging.Event{Type: "netcode.rollback", Tick: 3, Extra: map[string]any{"role": "client"}}
	if err := sink.Write(event); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 captured event, got %d", len(events))
	}
	// Captured events must not alias the caller's maps.
	event.Extra["role"] = "server"
	if events[0].Extra["role"] != "client" {
		t.Fatalf("expected captured extra to stay detached, got %v", events[0].Extra)
	}

	sink.Reset()
	if len(sink.Events()) != 0 {
		t.Fatalf("expected reset to clear events")
	}
}
