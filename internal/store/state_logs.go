package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/veto/internal/dayclock"
)

const stateLogColumns = `id, created_at, date, energy, focus, mood, sleep_hours, circadian_phase, notes`

// #region insert
// InsertStateLog assigns an id and stores the log.
func (s *Store) InsertStateLog(ctx context.Context, log StateLog) (StateLog, error) {
	if log.ID == "" {
		log.ID = s.newID()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO state_logs (`+stateLogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, FormatTime(log.CreatedAt), log.Date, log.Energy, log.Focus,
		nullString(log.Mood), nullFloat(log.SleepHours), string(log.CircadianPhase), nullString(log.Notes),
	)
	if err != nil {
		return StateLog{}, fmt.Errorf("insert state log: %w", err)
	}
	return log, nil
}

// #endregion insert

// #region select
// GetStateLog returns the log with id, or nil if none exists.
func (s *Store) GetStateLog(ctx context.Context, id string) (*StateLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+stateLogColumns+` FROM state_logs WHERE id = ?`, id)
	log, err := scanStateLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state log %s: %w", id, err)
	}
	return &log, nil
}

// LatestStateLogOn returns the most recent log dated date, or nil.
func (s *Store) LatestStateLogOn(ctx context.Context, date string) (*StateLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateLogColumns+` FROM state_logs WHERE date = ? ORDER BY created_at DESC LIMIT 1`, date)
	log, err := scanStateLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest state log %s: %w", date, err)
	}
	return &log, nil
}

// StateLogsOn returns the logs dated date, oldest first.
func (s *Store) StateLogsOn(ctx context.Context, date string) ([]StateLog, error) {
	return s.queryStateLogs(ctx,
		`SELECT `+stateLogColumns+` FROM state_logs WHERE date = ? ORDER BY created_at ASC`, date)
}

// StateLogsSince returns logs dated on or after since, newest first.
func (s *Store) StateLogsSince(ctx context.Context, since string, limit int) ([]StateLog, error) {
	return s.queryStateLogs(ctx,
		`SELECT `+stateLogColumns+` FROM state_logs WHERE date >= ? ORDER BY created_at DESC LIMIT ?`, since, limit)
}

// CountStateLogDays counts the distinct dates that have at least one log.
func (s *Store) CountStateLogDays(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT date) FROM state_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count state log days: %w", err)
	}
	return n, nil
}

// CountStateLogsIn counts logs whose energy and focus fall inside the ranges.
func (s *Store) CountStateLogsIn(ctx context.Context, energy, focus Range) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM state_logs WHERE energy BETWEEN ? AND ? AND focus BETWEEN ? AND ?`,
		energy.Min, energy.Max, focus.Min, focus.Max,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count similar state logs: %w", err)
	}
	return n, nil
}

func (s *Store) queryStateLogs(ctx context.Context, query string, args ...interface{}) ([]StateLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list state logs: %w", err)
	}
	defer rows.Close()

	var logs []StateLog
	for rows.Next() {
		log, err := scanStateLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state log: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// #endregion select

// #region scan
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanStateLog(sc scanner) (StateLog, error) {
	var log StateLog
	var createdAt, phase string
	var mood, notes sql.NullString
	var sleep sql.NullFloat64
	if err := sc.Scan(&log.ID, &createdAt, &log.Date, &log.Energy, &log.Focus, &mood, &sleep, &phase, &notes); err != nil {
		return StateLog{}, err
	}
	log.CreatedAt = parseTime(createdAt)
	log.Mood = stringPtr(mood)
	log.SleepHours = floatPtr(sleep)
	log.CircadianPhase = dayclock.Phase(phase)
	log.Notes = stringPtr(notes)
	return log, nil
}

// #endregion scan
