package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS stability_snapshots (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	trigger_type   TEXT NOT NULL,
	score          REAL NOT NULL,
	threshold      REAL NOT NULL,
	evolution_rate REAL NOT NULL,
	alpha          REAL NOT NULL,
	beta           REAL NOT NULL,
	gamma          REAL NOT NULL,
	pos_x          REAL NOT NULL,
	pos_y          REAL NOT NULL,
	pos_z          REAL NOT NULL,
	pattern_count  INTEGER NOT NULL,
	capacity       INTEGER NOT NULL,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES stability_snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS stability_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT,
	event_type    TEXT NOT NULL,
	pattern_type  TEXT,
	detail_json   TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stability_events_type ON stability_events(event_type);
`
// #endregion schema

// #region store-struct
// Store journals stability snapshots in SQLite. The journal is diagnostic:
// nothing reads it back to seed a State.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region new-record
// NewSnapshotRecord stamps a snapshot with a fresh version ID.
func NewSnapshotRecord(parentID, trigger string, snap Snapshot) SnapshotRecord {
	return SnapshotRecord{
		VersionID: uuid.New().String(),
		ParentID:  parentID,
		Trigger:   trigger,
		Snapshot:  snap,
		CreatedAt: time.Now().UTC(),
	}
}
// #endregion new-record

// #region commit-snapshot
// CommitSnapshot inserts a snapshot version.
func (s *Store) CommitSnapshot(rec SnapshotRecord) error {
	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	snap := rec.Snapshot
	_, err := s.db.Exec(
		`INSERT INTO stability_snapshots (
			version_id, parent_id, trigger_type, score, threshold, evolution_rate,
			alpha, beta, gamma, pos_x, pos_y, pos_z, pattern_count, capacity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, rec.Trigger, snap.Score, snap.Threshold, snap.EvolutionRate,
		snap.Dimensions.Alpha, snap.Dimensions.Beta, snap.Dimensions.Gamma,
		snap.Position.X, snap.Position.Y, snap.Position.Z,
		snap.PatternCount, snap.Capacity, rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
// #endregion commit-snapshot

// #region get-version
const selectSnapshot = `SELECT version_id, parent_id, trigger_type, score, threshold, evolution_rate,
	alpha, beta, gamma, pos_x, pos_y, pos_z, pattern_count, capacity, created_at
	FROM stability_snapshots`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var parentID sql.NullString
	var createdStr string
	snap := &rec.Snapshot
	err := row.Scan(
		&rec.VersionID, &parentID, &rec.Trigger, &snap.Score, &snap.Threshold, &snap.EvolutionRate,
		&snap.Dimensions.Alpha, &snap.Dimensions.Beta, &snap.Dimensions.Gamma,
		&snap.Position.X, &snap.Position.Y, &snap.Position.Z,
		&snap.PatternCount, &snap.Capacity, &createdStr,
	)
	if err != nil {
		return SnapshotRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// GetVersion retrieves a specific snapshot by ID.
func (s *Store) GetVersion(id string) (SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRow(selectSnapshot+` WHERE version_id = ?`, id))
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// Latest returns the most recently journaled snapshot.
func (s *Store) Latest() (SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRow(selectSnapshot + ` ORDER BY created_at DESC, rowid DESC LIMIT 1`))
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get latest: %w", err)
	}
	return rec, nil
}
// #endregion get-version

// #region list-versions
// ListVersions returns the most recent snapshots, newest first.
func (s *Store) ListVersions(limit int) ([]SnapshotRecord, error) {
	rows, err := s.db.Query(selectSnapshot+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
// #endregion list-versions
