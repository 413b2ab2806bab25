package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewStore("", logger) // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLogAndTail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Log("LOGIN", "admin", "FAILED", "Attempt 1")
	s.Log("LOGIN", "admin", "SUCCESS", "")
	s.Log("LOGOUT", "admin", "SUCCESS", "")

	events, err := s.Tail(ctx, 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}

	// Oldest first.
	if events[0].EventType != "LOGIN" || events[0].Status != "FAILED" {
		t.Errorf("first event = %+v, want the failed login", events[0])
	}
	if events[2].EventType != "LOGOUT" {
		t.Errorf("last event = %+v, want the logout", events[2])
	}
	for i, ev := range events {
		if ev.ID == "" {
			t.Errorf("event %d has no ID", i)
		}
		if ev.CreatedAt.IsZero() {
			t.Errorf("event %d has no timestamp", i)
		}
	}
}

func TestTailLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Distinct timestamps so the newest-first cut is deterministic.
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		i := i
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		s.Log("LOGIN", "admin", "FAILED", "")
	}

	events, err := s.Tail(ctx, 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if !events[0].CreatedAt.Equal(base.Add(3 * time.Second)) {
		t.Errorf("expected the two newest events, got %v", events[0].CreatedAt)
	}

	// Non-positive limit falls back to the default of 10.
	events, err = s.Tail(ctx, 0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(events) != 5 {
		t.Errorf("got %d events, want all 5", len(events))
	}
}

func TestEventString(t *testing.T) {
	ev := Event{
		CreatedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.Local),
		EventType: "LOGIN",
		Username:  "admin",
		Status:    "FAILED",
		Detail:    "Attempt 2",
	}

	got := ev.String()
	want := "[2024-03-01 12:30:00] LOGIN | User: admin | Status: FAILED | Attempt 2"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	ev.Detail = ""
	if strings.HasSuffix(ev.String(), "| ") {
		t.Errorf("empty detail should not leave a trailing separator: %q", ev.String())
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	s1, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	s1.Log("LOGIN", "admin", "SUCCESS", "")
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := NewStore(dir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	events, err := s2.Tail(context.Background(), 10)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events after reopen, want 1", len(events))
	}
}
