package logging

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region helpers
func tempStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.NewStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}
// #endregion helpers

// #region log-event-tests
func TestLogEvent_Success(t *testing.T) {
	store := tempStore(t)

	ev := Event{
		VersionID:   "v1",
		EventType:   "recognize",
		PatternType: "performance_drop",
		DetailJSON:  `{"strength":0.95}`,
		Decision:    "accepted",
		Reason:      "critical",
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogEvent(store.DB(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events, err := ListEvents(store.DB(), 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	got := events[0]
	if got.VersionID != "v1" || got.PatternType != "performance_drop" || got.Decision != "accepted" {
		t.Errorf("unexpected event: %+v", got)
	}
	if !got.CreatedAt.Equal(ev.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", ev.CreatedAt, got.CreatedAt)
	}
}

func TestLogEvent_NullableFields(t *testing.T) {
	store := tempStore(t)

	if err := LogEvent(store.DB(), Event{EventType: "tick", Decision: "no_op"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var nulls int
	store.DB().QueryRow(`SELECT COUNT(*) FROM stability_events
		WHERE version_id IS NULL AND pattern_type IS NULL AND detail_json IS NULL AND reason IS NULL`).Scan(&nulls)
	if nulls != 1 {
		t.Errorf("expected empty strings stored as NULL, got %d matching rows", nulls)
	}
}

func TestLogEvent_DefaultsTimestamp(t *testing.T) {
	store := tempStore(t)
	before := time.Now().UTC().Add(-time.Second)

	LogEvent(store.DB(), Event{EventType: "evolve", Decision: "applied"})

	events, _ := ListEvents(store.DB(), 1)
	if len(events) != 1 || events[0].CreatedAt.Before(before) {
		t.Fatalf("expected a current timestamp, got %+v", events)
	}
}

func TestListEvents_NewestFirstWithLimit(t *testing.T) {
	store := tempStore(t)
	for _, typ := range []string{"a", "b", "c"} {
		LogEvent(store.DB(), Event{EventType: typ, Decision: "applied"})
	}

	events, err := ListEvents(store.DB(), 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 || events[0].EventType != "c" || events[1].EventType != "b" {
		t.Fatalf("unexpected order: %+v", events)
	}
}

func TestLogEvent_ClosedDB(t *testing.T) {
	store := tempStore(t)
	store.Close()

	if err := LogEvent(store.DB(), Event{EventType: "x", Decision: "applied"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}
// #endregion log-event-tests
