package logging

import (
	"time"

	"github.com/danielpatrickdp/adaptive-state/stability/internal/state"
)

// #region event
// Event is a single row in the stability_events table.
type Event struct {
	ID          int64
	VersionID   string
	EventType   string // "recognize" | "optimize" | "emergency" | "evolve" | "retune" | "tick"
	PatternType string
	DetailJSON  string
	Decision    string // "accepted" | "rejected" | "applied" | "no_op" | "failed"
	Reason      string
	CreatedAt   time.Time
}
// #endregion event

// #region entry
// Entry is one unit of work for the Journal: a snapshot, an event, or both.
// When both are set the snapshot is committed first and the event is linked
// to its version.
type Entry struct {
	Snapshot *state.SnapshotRecord
	Event    *Event
}
// #endregion entry
