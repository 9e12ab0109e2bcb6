package patterns

import (
	"github.com/danielpatrickdp/veto/internal/store"
)

// QueryType names one of the pattern queries.
type QueryType string

const (
	DeepWorkOutcomes  QueryType = "deep_work_outcomes"
	StateCorrelation  QueryType = "state_correlation"
	OverrideAccuracy  QueryType = "override_accuracy"
	ConfidenceFactors QueryType = "confidence_factors"
)

// QueryTypes lists every supported query in display order.
var QueryTypes = []QueryType{DeepWorkOutcomes, StateCorrelation, OverrideAccuracy, ConfidenceFactors}

// #region config
// Config bounds the lookback window.
type Config struct {
	DefaultDaysBack int
	MaxDaysBack     int
}

// DefaultConfig returns a 14-day default window capped at 90 days.
func DefaultConfig() Config {
	return Config{DefaultDaysBack: 14, MaxDaysBack: 90}
}

// #endregion config

// #region input
// Input selects a query. DaysBack 0 means the configured default.
type Input struct {
	QueryType   QueryType
	EnergyRange *store.Range
	FocusRange  *store.Range
	DaysBack    int
}

// #endregion input

// #region data
// DeepWorkOutcome aggregates closed deep segments.
type DeepWorkOutcome struct {
	TotalAttempts  int      `json:"total_attempts"`
	Completed      int      `json:"completed"`
	CompletionRate float64  `json:"completion_rate"`
	AvgFocusScore  *float64 `json:"avg_focus_score"`
	PoorOutcomes   int      `json:"poor_outcomes"`
	GoodOutcomes   int      `json:"good_outcomes"`
}

// Suitability classifies a state bucket for deep work.
type Suitability string

const (
	Suitable   Suitability = "suitable"
	Marginal   Suitability = "marginal"
	Unsuitable Suitability = "unsuitable"
)

// Correlation is one energy/focus bucket.
type Correlation struct {
	StateBucket    string      `json:"state_bucket"`
	SegmentCount   int         `json:"segment_count"`
	AvgFocus       *float64    `json:"avg_focus"`
	CompletionRate float64     `json:"completion_rate"`
	Recommendation Suitability `json:"recommendation"`
}

// Accuracy summarizes how overridden refusals turned out.
type Accuracy struct {
	TotalOverrides int     `json:"total_overrides"`
	GoodOutcomes   int     `json:"good_outcomes"`
	PoorOutcomes   int     `json:"poor_outcomes"`
	AccuracyRate   float64 `json:"accuracy_rate"`
}

// Factors exposes the raw confidence inputs.
type Factors struct {
	DaysOfData           int          `json:"days_of_data"`
	SimilarStateCount    int          `json:"similar_state_count"`
	OutcomeCorrelation   float64      `json:"outcome_correlation_strength"`
	CalculatedConfidence float64      `json:"calculated_confidence"`
	EnergyRange          *store.Range `json:"energy_range"`
	FocusRange           *store.Range `json:"focus_range"`
}

// Result wraps one query's data.
type Result struct {
	QueryType QueryType `json:"query_type"`
	DaysBack  int       `json:"days_back"`
	Data      any       `json:"data"`
	Message   string    `json:"message"`
}

// #endregion data
