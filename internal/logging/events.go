package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-event
// LogEvent writes an event to the stability_events table.
func LogEvent(db *sql.DB, e Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO stability_events (version_id, event_type, pattern_type, detail_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(e.VersionID),
		e.EventType,
		nullIfEmpty(e.PatternType),
		nullIfEmpty(e.DetailJSON),
		e.Decision,
		nullIfEmpty(e.Reason),
		e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}
// #endregion log-event

// #region list-events
// ListEvents returns the most recent events, newest first.
func ListEvents(db *sql.DB, limit int) ([]Event, error) {
	rows, err := db.Query(
		`SELECT id, version_id, event_type, pattern_type, detail_json, decision, reason, created_at
		 FROM stability_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var versionID, patternType, detail, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &versionID, &e.EventType, &patternType, &detail, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.VersionID = versionID.String
		e.PatternType = patternType.String
		e.DetailJSON = detail.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, e)
	}
	return events, rows.Err()
}
// #endregion list-events

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
