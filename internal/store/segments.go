package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const segmentColumns = `s.id, s.created_at, s.date, s.intended_type, s.description, s.start_time, s.end_time,
	s.completed, s.focus_score, s.override_flag, s.state_log_id, s.task_ref, s.notes`

// #region insert
// InsertSegment stores a new segment. An open segment (nil EndTime) is
// rejected with ErrOpenSegmentExists when another open segment is present.
func (s *Store) InsertSegment(ctx context.Context, seg Segment) (Segment, error) {
	if seg.ID == "" {
		seg.ID = s.newID()
	}
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO segments (id, created_at, date, intended_type, description, start_time, end_time,
			completed, focus_score, override_flag, state_log_id, task_ref, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seg.ID, FormatTime(seg.CreatedAt), seg.Date, string(seg.IntendedType), nullString(seg.Description),
		FormatTime(seg.StartTime), nullTime(seg.EndTime), seg.Completed, nullInt(seg.FocusScore),
		seg.OverrideFlag, nullString(seg.StateLogID), nullString(seg.TaskRef), nullString(seg.Notes),
	)
	if isUniqueViolation(err) && seg.EndTime == nil {
		return Segment{}, ErrOpenSegmentExists
	}
	if err != nil {
		return Segment{}, fmt.Errorf("insert segment: %w", err)
	}
	return seg, nil
}

// #endregion insert

// #region update
// UpdateSegment writes every mutable column of seg back to its row.
func (s *Store) UpdateSegment(ctx context.Context, seg Segment) (Segment, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE segments SET description = ?, end_time = ?, completed = ?, focus_score = ?,
			override_flag = ?, task_ref = ?, notes = ?
		 WHERE id = ?`,
		nullString(seg.Description), nullTime(seg.EndTime), seg.Completed, nullInt(seg.FocusScore),
		seg.OverrideFlag, nullString(seg.TaskRef), nullString(seg.Notes), seg.ID,
	)
	if err != nil {
		return Segment{}, fmt.Errorf("update segment %s: %w", seg.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Segment{}, fmt.Errorf("update segment %s: %w", seg.ID, sql.ErrNoRows)
	}
	return seg, nil
}

// #endregion update

// #region select
// GetSegment returns the segment with id, or nil if none exists.
func (s *Store) GetSegment(ctx context.Context, id string) (*Segment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+segmentColumns+` FROM segments s WHERE s.id = ?`, id)
	seg, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment %s: %w", id, err)
	}
	return &seg, nil
}

// OpenSegment returns the segment whose end_time is null, or nil.
func (s *Store) OpenSegment(ctx context.Context) (*Segment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+segmentColumns+` FROM segments s WHERE s.end_time IS NULL ORDER BY s.start_time DESC LIMIT 1`)
	seg, err := scanSegment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open segment: %w", err)
	}
	return &seg, nil
}

// SegmentsOn lists segments dated date by start time. kind filters by type
// when non-empty; limit <= 0 means no limit.
func (s *Store) SegmentsOn(ctx context.Context, date string, kind SegmentType, limit int) ([]Segment, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments s
		 WHERE s.date = ? AND (? = '' OR s.intended_type = ?)
		 ORDER BY s.start_time ASC LIMIT ?`,
		date, string(kind), string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list segments %s: %w", date, err)
	}
	defer rows.Close()

	var segs []Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// SegmentsSince lists segments dated on or after since, newest first.
func (s *Store) SegmentsSince(ctx context.Context, since string, limit int) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+` FROM segments s WHERE s.date >= ? ORDER BY s.start_time DESC LIMIT ?`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list segments since %s: %w", since, err)
	}
	defer rows.Close()

	var segs []Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

// CountScoredSegments counts segments of kind with a non-null focus score.
func (s *Store) CountScoredSegments(ctx context.Context, kind SegmentType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM segments WHERE intended_type = ? AND focus_score IS NOT NULL`, string(kind),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count scored segments: %w", err)
	}
	return n, nil
}

// ScoresForStates returns the focus scores of scored segments of kind whose
// linked state log lies inside the energy and focus ranges.
func (s *Store) ScoresForStates(ctx context.Context, kind SegmentType, energy, focus Range) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.focus_score FROM segments s
		 JOIN state_logs l ON l.id = s.state_log_id
		 WHERE s.intended_type = ? AND s.focus_score IS NOT NULL
		   AND l.energy BETWEEN ? AND ? AND l.focus BETWEEN ? AND ?`,
		string(kind), energy.Min, energy.Max, focus.Min, focus.Max,
	)
	if err != nil {
		return nil, fmt.Errorf("similar state scores: %w", err)
	}
	defer rows.Close()

	var scores []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, v)
	}
	return scores, rows.Err()
}

// ClosedSegmentsSince lists closed segments of kind dated on or after since,
// each with the energy and focus of its linked state log when present.
func (s *Store) ClosedSegmentsSince(ctx context.Context, kind SegmentType, since string) ([]SegmentState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+segmentColumns+`, l.energy, l.focus FROM segments s
		 LEFT JOIN state_logs l ON l.id = s.state_log_id
		 WHERE s.intended_type = ? AND s.date >= ? AND s.end_time IS NOT NULL
		 ORDER BY s.start_time ASC`,
		string(kind), since,
	)
	if err != nil {
		return nil, fmt.Errorf("closed segments since %s: %w", since, err)
	}
	defer rows.Close()

	var out []SegmentState
	for rows.Next() {
		var ss SegmentState
		var energy, focus sql.NullInt64
		seg, err := scanSegment(rows, &energy, &focus)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		ss.Segment = seg
		ss.Energy = intPtr(energy)
		ss.Focus = intPtr(focus)
		out = append(out, ss)
	}
	return out, rows.Err()
}

// #endregion select

// #region scan
func scanSegment(sc scanner, extra ...interface{}) (Segment, error) {
	var seg Segment
	var createdAt, kind, start string
	var description, end, stateLogID, taskRef, notes sql.NullString
	var focusScore sql.NullInt64

	dest := []interface{}{
		&seg.ID, &createdAt, &seg.Date, &kind, &description, &start, &end,
		&seg.Completed, &focusScore, &seg.OverrideFlag, &stateLogID, &taskRef, &notes,
	}
	if err := sc.Scan(append(dest, extra...)...); err != nil {
		return Segment{}, err
	}
	seg.CreatedAt = parseTime(createdAt)
	seg.IntendedType = SegmentType(kind)
	seg.Description = stringPtr(description)
	seg.StartTime = parseTime(start)
	seg.EndTime = timePtr(end)
	seg.FocusScore = intPtr(focusScore)
	seg.StateLogID = stringPtr(stateLogID)
	seg.TaskRef = stringPtr(taskRef)
	seg.Notes = stringPtr(notes)
	return seg, nil
}

// #endregion scan
