// Package index maintains the SQLite session catalog: one row per
// session file with the summary facts the viewer lists, plus the
// mtime/size pair that makes incremental re-indexing cheap.
package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    session_key        TEXT PRIMARY KEY,
    actual_session_id  TEXT NOT NULL DEFAULT '',
    project            TEXT NOT NULL DEFAULT '',
    summary            TEXT NOT NULL DEFAULT '',
    message_count      INTEGER NOT NULL DEFAULT 0,
    first_message_time TEXT NOT NULL DEFAULT '',
    last_message_time  TEXT NOT NULL DEFAULT '',
    has_tool_use       INTEGER NOT NULL DEFAULT 0,
    has_errors         INTEGER NOT NULL DEFAULT 0,
    parse_failures     INTEGER NOT NULL DEFAULT 0,
    mtime              INTEGER NOT NULL DEFAULT 0,
    size               INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS sessions_last_time ON sessions (last_message_time DESC);

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

// schemaVersion should be bumped whenever catalog extraction changes,
// to force a full re-index.
const schemaVersion = "1"

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	d := &DB{db: db}
	d.migrateSchemaVersion()
	return d, nil
}

func (d *DB) migrateSchemaVersion() {
	var ver string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if err != nil || ver != schemaVersion {
		// force re-index by resetting all session mtime/size to 0
		d.db.Exec("UPDATE sessions SET mtime = 0, size = 0")
		d.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", schemaVersion)
	}
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

// SessionRow is one catalog entry. SessionKey is the file path, which
// is unique per conversation; ActualSessionID is the id recovered from
// the records themselves.
type SessionRow struct {
	SessionKey       string
	ActualSessionID  string
	Project          string
	Summary          string
	MessageCount     int
	FirstMessageTime string
	LastMessageTime  string
	HasToolUse       bool
	HasErrors        bool
	ParseFailures    int
	Mtime            int64
	Size             int64
}

func (d *DB) UpsertSession(row *SessionRow) error {
	_, err := d.db.Exec(
		`INSERT OR REPLACE INTO sessions
		 (session_key, actual_session_id, project, summary, message_count,
		  first_message_time, last_message_time, has_tool_use, has_errors,
		  parse_failures, mtime, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.SessionKey, row.ActualSessionID, row.Project, row.Summary, row.MessageCount,
		row.FirstMessageTime, row.LastMessageTime, boolInt(row.HasToolUse), boolInt(row.HasErrors),
		row.ParseFailures, row.Mtime, row.Size,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", row.SessionKey, err)
	}
	return nil
}

const sessionCols = `session_key, actual_session_id, project, summary, message_count,
	first_message_time, last_message_time, has_tool_use, has_errors, parse_failures, mtime, size`

func scanSession(row interface{ Scan(...any) error }) (*SessionRow, error) {
	var s SessionRow
	var toolUse, hasErrors int
	err := row.Scan(&s.SessionKey, &s.ActualSessionID, &s.Project, &s.Summary, &s.MessageCount,
		&s.FirstMessageTime, &s.LastMessageTime, &toolUse, &hasErrors, &s.ParseFailures, &s.Mtime, &s.Size)
	if err != nil {
		return nil, err
	}
	s.HasToolUse = toolUse != 0
	s.HasErrors = hasErrors != 0
	return &s, nil
}

func (d *DB) GetSession(sessionKey string) (*SessionRow, error) {
	s, err := scanSession(d.db.QueryRow(
		"SELECT "+sessionCols+" FROM sessions WHERE session_key = ?", sessionKey))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSessions returns sessions newest-first. limit 0 means no limit;
// project "" means all projects.
func (d *DB) ListSessions(project string, limit int) ([]SessionRow, error) {
	query := "SELECT " + sessionCols + " FROM sessions"
	var args []any
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}
	query += " ORDER BY last_message_time DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionRow
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (d *DB) AllSessionKeys() (map[string]struct{}, error) {
	rows, err := d.db.Query("SELECT session_key FROM sessions")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func (d *DB) DeleteSession(sessionKey string) error {
	_, err := d.db.Exec("DELETE FROM sessions WHERE session_key = ?", sessionKey)
	return err
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
