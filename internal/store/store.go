package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS state_logs (
	id              TEXT PRIMARY KEY,
	created_at      TEXT NOT NULL,
	date            TEXT NOT NULL,
	energy          INTEGER NOT NULL CHECK (energy BETWEEN 1 AND 10),
	focus           INTEGER NOT NULL CHECK (focus BETWEEN 1 AND 10),
	mood            TEXT,
	sleep_hours     REAL,
	circadian_phase TEXT NOT NULL,
	notes           TEXT
);
CREATE INDEX IF NOT EXISTS state_logs_date ON state_logs(date);

CREATE TABLE IF NOT EXISTS segments (
	id             TEXT PRIMARY KEY,
	created_at     TEXT NOT NULL,
	date           TEXT NOT NULL,
	intended_type  TEXT NOT NULL CHECK (intended_type IN ('deep', 'shallow')),
	description    TEXT,
	start_time     TEXT NOT NULL,
	end_time       TEXT,
	completed      INTEGER NOT NULL DEFAULT 0,
	focus_score    INTEGER CHECK (focus_score BETWEEN 1 AND 10),
	override_flag  INTEGER NOT NULL DEFAULT 0,
	state_log_id   TEXT,
	task_ref       TEXT,
	notes          TEXT
);
CREATE INDEX IF NOT EXISTS segments_date ON segments(date);
CREATE UNIQUE INDEX IF NOT EXISTS one_open_segment ON segments((end_time IS NULL)) WHERE end_time IS NULL;

CREATE TABLE IF NOT EXISTS daily_summaries (
	id                   TEXT PRIMARY KEY,
	created_at           TEXT NOT NULL,
	date                 TEXT NOT NULL UNIQUE,
	completion_ratio     REAL,
	mean_focus           REAL,
	energy_trend         TEXT NOT NULL,
	deep_work_minutes    INTEGER NOT NULL DEFAULT 0,
	shallow_work_minutes INTEGER NOT NULL DEFAULT 0,
	notable_events       TEXT
);

CREATE TABLE IF NOT EXISTS refusal_events (
	id                    TEXT PRIMARY KEY,
	created_at            TEXT NOT NULL,
	date                  TEXT NOT NULL,
	segment_id            TEXT,
	refusal_type          TEXT NOT NULL,
	confidence_at_refusal REAL NOT NULL,
	reason                TEXT NOT NULL,
	user_overrode         INTEGER NOT NULL DEFAULT 0,
	outcome_quality       TEXT CHECK (outcome_quality IN ('good', 'neutral', 'poor'))
);
CREATE INDEX IF NOT EXISTS refusal_events_date ON refusal_events(date);

CREATE TABLE IF NOT EXISTS captures (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	date         TEXT NOT NULL,
	segment_id   TEXT,
	capture_type TEXT NOT NULL,
	content      TEXT NOT NULL,
	urgency      TEXT NOT NULL,
	routed_to    TEXT,
	status       TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS decision_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at    TEXT NOT NULL,
	date          TEXT NOT NULL,
	state_log_id  TEXT,
	decision      TEXT NOT NULL,
	rule          TEXT,
	reason        TEXT,
	confidence    REAL NOT NULL,
	evidence_json TEXT
);
`

// #endregion schema

// ErrOpenSegmentExists is returned when an insert would create a second open segment.
var ErrOpenSegmentExists = errors.New("an open segment already exists")

// #region store-struct
// Store persists state logs, segments, summaries, refusals and captures in SQLite.
type Store struct {
	db    *sql.DB
	newID func() string
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// one writer keeps the open-segment check and insert serialized
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
	return &Store{db: db, newID: func() string { return uuid.New().String() }}, nil
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

// #region encoding
// timeLayout is fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// FormatTime encodes t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return FormatTime(*t)
}

func nullString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// #endregion encoding
