package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const summaryColumns = `id, created_at, date, completion_ratio, mean_focus, energy_trend,
	deep_work_minutes, shallow_work_minutes, notable_events`

// #region get
// GetDailySummary returns the summary for date, or nil.
func (s *Store) GetDailySummary(ctx context.Context, date string) (*DailySummary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM daily_summaries WHERE date = ?`, date)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily summary %s: %w", date, err)
	}
	return &sum, nil
}

// DailySummariesSince lists summaries dated on or after since, newest first.
func (s *Store) DailySummariesSince(ctx context.Context, since string, limit int) ([]DailySummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM daily_summaries WHERE date >= ? ORDER BY date DESC LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list daily summaries: %w", err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily summary: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// #endregion get

// #region upsert
// UpsertDailySummary updates the row for sum.Date if one exists, else inserts it.
// The stored id and created_at are preserved on update.
func (s *Store) UpsertDailySummary(ctx context.Context, sum DailySummary) (DailySummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return DailySummary{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanSummary(tx.QueryRowContext(ctx,
		`SELECT `+summaryColumns+` FROM daily_summaries WHERE date = ?`, sum.Date))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if sum.ID == "" {
			sum.ID = s.newID()
		}
		if sum.CreatedAt.IsZero() {
			sum.CreatedAt = time.Now().UTC()
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily_summaries (`+summaryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.ID, FormatTime(sum.CreatedAt), sum.Date, nullFloat(sum.CompletionRatio), nullFloat(sum.MeanFocus),
			string(sum.EnergyTrend), sum.DeepWorkMinutes, sum.ShallowWorkMinutes, nullString(sum.NotableEvents),
		)
		if err != nil {
			return DailySummary{}, fmt.Errorf("insert daily summary: %w", err)
		}
	case err != nil:
		return DailySummary{}, fmt.Errorf("get daily summary %s: %w", sum.Date, err)
	default:
		sum.ID = existing.ID
		sum.CreatedAt = existing.CreatedAt
		_, err = tx.ExecContext(ctx,
			`UPDATE daily_summaries SET completion_ratio = ?, mean_focus = ?, energy_trend = ?,
				deep_work_minutes = ?, shallow_work_minutes = ?, notable_events = ?
			 WHERE id = ?`,
			nullFloat(sum.CompletionRatio), nullFloat(sum.MeanFocus), string(sum.EnergyTrend),
			sum.DeepWorkMinutes, sum.ShallowWorkMinutes, nullString(sum.NotableEvents), sum.ID,
		)
		if err != nil {
			return DailySummary{}, fmt.Errorf("update daily summary: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return DailySummary{}, fmt.Errorf("commit: %w", err)
	}
	return sum, nil
}

// #endregion upsert

// #region scan
func scanSummary(sc scanner) (DailySummary, error) {
	var sum DailySummary
	var createdAt, trend string
	var ratio, focus sql.NullFloat64
	var notable sql.NullString
	if err := sc.Scan(&sum.ID, &createdAt, &sum.Date, &ratio, &focus, &trend,
		&sum.DeepWorkMinutes, &sum.ShallowWorkMinutes, &notable); err != nil {
		return DailySummary{}, err
	}
	sum.CreatedAt = parseTime(createdAt)
	sum.CompletionRatio = floatPtr(ratio)
	sum.MeanFocus = floatPtr(focus)
	sum.EnergyTrend = EnergyTrend(trend)
	sum.NotableEvents = stringPtr(notable)
	return sum, nil
}

// #endregion scan
