package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a guardrail decision to the decision_log table.
func LogDecision(ctx context.Context, db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO decision_log (created_at, date, state_log_id, decision, rule, reason, confidence, evidence_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		entry.Date,
		nullIfEmpty(entry.StateLogID),
		entry.Decision,
		nullIfEmpty(entry.Rule),
		nullIfEmpty(entry.Reason),
		entry.Confidence,
		nullIfEmpty(entry.EvidenceJSON),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list-decisions
// RecentDecisions returns the newest decision_log rows, newest first.
func RecentDecisions(ctx context.Context, db *sql.DB, limit int) ([]DecisionEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT created_at, date, state_log_id, decision, rule, reason, confidence, evidence_json
		 FROM decision_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var createdAt string
		var stateLogID, rule, reason, evidence sql.NullString
		if err := rows.Scan(&createdAt, &e.Date, &stateLogID, &e.Decision, &rule, &reason, &e.Confidence, &evidence); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.StateLogID = stateLogID.String
		e.Rule = rule.String
		e.Reason = reason.String
		e.EvidenceJSON = evidence.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-decisions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
