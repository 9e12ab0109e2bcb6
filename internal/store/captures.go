package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const captureColumns = `id, created_at, date, segment_id, capture_type, content, urgency, routed_to, status`

// InsertCapture stores a capture.
func (s *Store) InsertCapture(ctx context.Context, c Capture) (Capture, error) {
	if c.ID == "" {
		c.ID = s.newID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Status == "" {
		c.Status = "pending"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO captures (`+captureColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, FormatTime(c.CreatedAt), c.Date, nullString(c.SegmentID), c.CaptureType,
		c.Content, c.Urgency, nullString(c.RoutedTo), c.Status,
	)
	if err != nil {
		return Capture{}, fmt.Errorf("insert capture: %w", err)
	}
	return c, nil
}

// GetCapture returns the capture with id, or nil.
func (s *Store) GetCapture(ctx context.Context, id string) (*Capture, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+captureColumns+` FROM captures WHERE id = ?`, id)
	c, err := scanCapture(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capture %s: %w", id, err)
	}
	return &c, nil
}

// UpdateCaptureStatus sets the status and routing target of a capture.
func (s *Store) UpdateCaptureStatus(ctx context.Context, id, status string, routedTo *string) (Capture, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE captures SET status = ?, routed_to = ? WHERE id = ?`, status, nullString(routedTo), id)
	if err != nil {
		return Capture{}, fmt.Errorf("update capture %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Capture{}, fmt.Errorf("update capture %s: %w", id, sql.ErrNoRows)
	}
	c, err := s.GetCapture(ctx, id)
	if err != nil {
		return Capture{}, err
	}
	return *c, nil
}

// PendingCaptures lists pending captures, oldest first, regardless of date.
func (s *Store) PendingCaptures(ctx context.Context, limit int) ([]Capture, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+captureColumns+` FROM captures WHERE status = 'pending'
		 ORDER BY date ASC, created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending captures: %w", err)
	}
	defer rows.Close()

	var out []Capture
	for rows.Next() {
		c, err := scanCapture(rows)
		if err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCapture(sc scanner) (Capture, error) {
	var c Capture
	var createdAt string
	var segmentID, routedTo sql.NullString
	if err := sc.Scan(&c.ID, &createdAt, &c.Date, &segmentID, &c.CaptureType,
		&c.Content, &c.Urgency, &routedTo, &c.Status); err != nil {
		return Capture{}, err
	}
	c.CreatedAt = parseTime(createdAt)
	c.SegmentID = stringPtr(segmentID)
	c.RoutedTo = stringPtr(routedTo)
	return c, nil
}
