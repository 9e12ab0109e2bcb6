package logging

import "time"

// #region decision-entry
// DecisionEntry is a single row in the decision_log table.
type DecisionEntry struct {
	Date         string
	StateLogID   string
	Decision     string // "no_state" | "inactive" | "allow" | "refuse"
	Rule         string
	Reason       string
	Confidence   float64
	EvidenceJSON string
	CreatedAt    time.Time
}

// #endregion decision-entry

// #region decision-record
// DecisionRecord captures the guardrail inputs for a single plan call.
// Serialized as JSON into decision_log.evidence_json for later inspection.
type DecisionRecord struct {
	IntendedType string  `json:"intended_type,omitempty"`
	Energy       int     `json:"energy"`
	Focus        int     `json:"focus"`
	Phase        string  `json:"circadian_phase"`
	Confidence   float64 `json:"confidence"`

	DaysOfData         int     `json:"days_of_data"`
	SimilarStateCount  int     `json:"similar_state_count"`
	OutcomeCorrelation float64 `json:"outcome_correlation_strength"`

	SimilarAttempts int     `json:"similar_attempts"`
	SimilarPoorRate float64 `json:"similar_poor_rate"`
	Overrides       int     `json:"recent_overrides"`
	OverridePoor    float64 `json:"override_poor_rate"`

	// Thresholds active at decision time
	Threshold float64 `json:"activation_threshold"`

	RefusalID string `json:"refusal_id,omitempty"`
}

// #endregion decision-record
