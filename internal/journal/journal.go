// Package journal persists pre-modification snapshots of graph resources,
// grouped by agent session, so a review pass can diff what a session changed
// and roll individual resources back. Snapshots are first-write-wins per
// (session, resource): the snapshot captures the state before the session's
// first touch, later writes in the same session do not overwrite it.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Resource types a snapshot can cover.
const (
	ResourceEntity     = "entity"
	ResourceDirectEdge = "direct_edge"
	ResourceRelayEdge  = "relay_edge"
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL,
	resource_id    TEXT NOT NULL,
	resource_type  TEXT NOT NULL,
	operation_type TEXT NOT NULL DEFAULT 'modify',
	data           TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	UNIQUE(session_id, resource_id)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_id);
`

// SnapshotData is the captured state of a resource. Content is always set;
// the remaining fields depend on the resource type.
type SnapshotData struct {
	EntityID    string `json:"entity_id,omitempty"`
	Version     int64  `json:"version,omitempty"`
	Name        string `json:"name,omitempty"`
	Content     string `json:"content"`
	Inheritable *bool  `json:"inheritable,omitempty"`
}

// Snapshot is one stored snapshot with its metadata.
type Snapshot struct {
	ID            string       `json:"id"`
	SessionID     string       `json:"session_id"`
	ResourceID    string       `json:"resource_id"`
	ResourceType  string       `json:"resource_type"`
	OperationType string       `json:"operation_type"`
	Data          SnapshotData `json:"data"`
	CreatedAt     string       `json:"snapshot_time"`
}

// SessionInfo summarizes one session that has snapshots.
type SessionInfo struct {
	SessionID     string `json:"session_id"`
	CreatedAt     string `json:"created_at"`
	ResourceCount int64  `json:"resource_count"`
}

// Journal is a SQLite-backed snapshot store.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dsn. Use ":memory:" for an
// ephemeral journal.
func Open(dsn string) (*Journal, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to open database: %w", err)
	}

	// One writer connection sidesteps SQLITE_BUSY under concurrent load.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: failed to create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// CreateSnapshot records the pre-modification state of a resource for a
// session. Returns true if the snapshot was stored, false if one already
// exists for this (session, resource) pair.
func (j *Journal) CreateSnapshot(ctx context.Context, sessionID, resourceID, resourceType, operationType string, data SnapshotData) (bool, error) {
	if sessionID == "" || resourceID == "" {
		return false, fmt.Errorf("journal: session_id and resource_id are required")
	}
	if operationType == "" {
		operationType = "modify"
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("journal: failed to encode snapshot data: %w", err)
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO snapshots (id, session_id, resource_id, resource_type, operation_type, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), sessionID, resourceID, resourceType, operationType,
		string(encoded), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("journal: failed to store snapshot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// Sessions lists every session that holds snapshots, newest first.
func (j *Journal) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, MIN(created_at), COUNT(*)
		FROM snapshots
		GROUP BY session_id
		ORDER BY MIN(created_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionInfo{}
	for rows.Next() {
		var s SessionInfo
		if err := rows.Scan(&s.SessionID, &s.CreatedAt, &s.ResourceCount); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Snapshots lists the snapshots of one session in capture order.
func (j *Journal) Snapshots(ctx context.Context, sessionID string) ([]Snapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, resource_id, resource_type, operation_type, data, created_at
		FROM snapshots
		WHERE session_id = ?
		ORDER BY created_at, resource_id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := []Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

// Get returns the snapshot of one resource in a session, or nil if the
// session never snapshotted it.
func (j *Journal) Get(ctx context.Context, sessionID, resourceID string) (*Snapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, session_id, resource_id, resource_type, operation_type, data, created_at
		FROM snapshots
		WHERE session_id = ? AND resource_id = ?`, sessionID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("journal: failed to load snapshot: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSnapshot(rows)
}

// ClearSession deletes all snapshots of a session and returns how many were
// removed.
func (j *Journal) ClearSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM snapshots WHERE session_id = ?`, sessionID)
	if err != nil {
		return 0, fmt.Errorf("journal: failed to clear session: %w", err)
	}
	return res.RowsAffected()
}

func scanSnapshot(rows *sql.Rows) (*Snapshot, error) {
	var snap Snapshot
	var data string
	if err := rows.Scan(&snap.ID, &snap.SessionID, &snap.ResourceID, &snap.ResourceType,
		&snap.OperationType, &data, &snap.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &snap.Data); err != nil {
		return nil, fmt.Errorf("journal: corrupt snapshot data for %s: %w", snap.ID, err)
	}
	return &snap, nil
}
