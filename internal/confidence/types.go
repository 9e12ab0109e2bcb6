package confidence

import (
	"context"

	"github.com/danielpatrickdp/veto/internal/store"
)

// #region source-interface

// Source abstracts the store counts the formula needs so Engine can be
// tested without SQLite.
type Source interface {
	CountStateLogDays(ctx context.Context) (int, error)
	CountStateLogsIn(ctx context.Context, energy, focus store.Range) (int, error)
	CountScoredSegments(ctx context.Context, kind store.SegmentType) (int, error)
}

// #endregion source-interface

// #region config

// Config holds the product-chosen saturation points of the formula.
type Config struct {
	DaysSaturation      int     // distinct days of state logs for full volume credit
	SimilarSaturation   int     // similar state logs for full similarity credit
	OutcomeSaturation   int     // scored deep segments for full outcome credit
	MinOutcomeSamples   int     // below this the outcome factor is 0
	SimilarWindow       int     // ± window on energy and focus
	ActivationThreshold float64 // guardrail refuses only at or above this level
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{
		DaysSaturation:      14,
		SimilarSaturation:   5,
		OutcomeSaturation:   20,
		MinOutcomeSamples:   5,
		SimilarWindow:       2,
		ActivationThreshold: 0.70,
	}
}

// #endregion config

// #region factors

// Factors are the raw inputs of the formula and the resulting level.
type Factors struct {
	DaysOfData         int     `json:"days_of_data"`
	SimilarStateCount  int     `json:"similar_state_count"`
	OutcomeCorrelation float64 `json:"outcome_correlation_strength"`
	Level              float64 `json:"level"`
}

// Status is a coarse label for a confidence level.
type Status string

const (
	StatusBuilding Status = "building"
	StatusLow      Status = "low"
	StatusMedium   Status = "medium"
	StatusHigh     Status = "high"
)

// View is the volume-only confidence shown by Assess.
type View struct {
	Level      float64 `json:"level"`
	Status     Status  `json:"status"`
	DaysOfData int     `json:"days_of_data"`
}

// #endregion factors
