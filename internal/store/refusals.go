package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const refusalColumns = `id, created_at, date, segment_id, refusal_type, confidence_at_refusal,
	reason, user_overrode, outcome_quality`

// #region insert
// InsertRefusal stores a refusal event.
func (s *Store) InsertRefusal(ctx context.Context, ev RefusalEvent) (RefusalEvent, error) {
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO refusal_events (`+refusalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, FormatTime(ev.CreatedAt), ev.Date, nullString(ev.SegmentID), ev.RefusalType,
		ev.ConfidenceAtRefusal, ev.Reason, ev.UserOverrode, nullOutcome(ev.OutcomeQuality),
	)
	if err != nil {
		return RefusalEvent{}, fmt.Errorf("insert refusal: %w", err)
	}
	return ev, nil
}

// #endregion insert

// #region update
// UpdateRefusal writes the externally mutable fields of ev.
func (s *Store) UpdateRefusal(ctx context.Context, ev RefusalEvent) (RefusalEvent, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE refusal_events SET segment_id = ?, user_overrode = ?, outcome_quality = ? WHERE id = ?`,
		nullString(ev.SegmentID), ev.UserOverrode, nullOutcome(ev.OutcomeQuality), ev.ID,
	)
	if err != nil {
		return RefusalEvent{}, fmt.Errorf("update refusal %s: %w", ev.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return RefusalEvent{}, fmt.Errorf("update refusal %s: %w", ev.ID, sql.ErrNoRows)
	}
	return ev, nil
}

// RecordOverride marks ev overridden and, when ev.SegmentID is set, flags that
// segment as an override. Both rows change together or not at all.
func (s *Store) RecordOverride(ctx context.Context, ev RefusalEvent) (RefusalEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RefusalEvent{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if ev.SegmentID != nil {
		res, err := tx.ExecContext(ctx, `UPDATE segments SET override_flag = 1 WHERE id = ?`, *ev.SegmentID)
		if err != nil {
			return RefusalEvent{}, fmt.Errorf("flag segment %s: %w", *ev.SegmentID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return RefusalEvent{}, fmt.Errorf("flag segment %s: %w", *ev.SegmentID, sql.ErrNoRows)
		}
	}

	ev.UserOverrode = true
	res, err := tx.ExecContext(ctx,
		`UPDATE refusal_events SET segment_id = ?, user_overrode = ?, outcome_quality = ? WHERE id = ?`,
		nullString(ev.SegmentID), ev.UserOverrode, nullOutcome(ev.OutcomeQuality), ev.ID,
	)
	if err != nil {
		return RefusalEvent{}, fmt.Errorf("update refusal %s: %w", ev.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return RefusalEvent{}, fmt.Errorf("update refusal %s: %w", ev.ID, sql.ErrNoRows)
	}

	if err := tx.Commit(); err != nil {
		return RefusalEvent{}, fmt.Errorf("commit override: %w", err)
	}
	return ev, nil
}

// #endregion update

// #region select
// GetRefusal returns the refusal with id, or nil.
func (s *Store) GetRefusal(ctx context.Context, id string) (*RefusalEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+refusalColumns+` FROM refusal_events WHERE id = ?`, id)
	ev, err := scanRefusal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refusal %s: %w", id, err)
	}
	return &ev, nil
}

// RefusalsSince lists refusals dated on or after since, newest first.
// overrodeOnly restricts to events the user overrode.
func (s *Store) RefusalsSince(ctx context.Context, since string, overrodeOnly bool, limit int) ([]RefusalEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+refusalColumns+` FROM refusal_events
		 WHERE date >= ? AND (? = 0 OR user_overrode = 1)
		 ORDER BY created_at DESC LIMIT ?`,
		since, overrodeOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list refusals: %w", err)
	}
	defer rows.Close()

	var out []RefusalEvent
	for rows.Next() {
		ev, err := scanRefusal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan refusal: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// #endregion select

// #region scan
func nullOutcome(q *OutcomeQuality) interface{} {
	if q == nil {
		return nil
	}
	return string(*q)
}

func scanRefusal(sc scanner) (RefusalEvent, error) {
	var ev RefusalEvent
	var createdAt string
	var segmentID, outcome sql.NullString
	if err := sc.Scan(&ev.ID, &createdAt, &ev.Date, &segmentID, &ev.RefusalType,
		&ev.ConfidenceAtRefusal, &ev.Reason, &ev.UserOverrode, &outcome); err != nil {
		return RefusalEvent{}, err
	}
	ev.CreatedAt = parseTime(createdAt)
	ev.SegmentID = stringPtr(segmentID)
	if outcome.Valid {
		q := OutcomeQuality(outcome.String)
		ev.OutcomeQuality = &q
	}
	return ev, nil
}

// #endregion scan
