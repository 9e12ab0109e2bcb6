package guardrail

import (
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region rule
// Rule identifies which refusal condition fired.
type Rule string

const (
	RuleSimilarStateEvidence Rule = "similar_state_evidence"
	RuleAfternoonDip         Rule = "afternoon_dip_low_energy"
	RuleLowEnergyFocus       Rule = "low_energy_focus"
)

// Trigger is one refusal condition that matched.
type Trigger struct {
	Rule   Rule   `json:"rule"`
	Reason string `json:"reason"`
}

// #endregion rule

// #region config
// Config holds the refusal thresholds.
type Config struct {
	MinAttempts       int     // similar-state attempts needed before the evidence counts
	PoorRateThreshold float64 // poor-outcome rate at which similar-state evidence refuses
	DipEnergyBelow    int     // energy strictly below this refuses during the afternoon dip
	LowEnergyMax      int     // energy at or below this counts as low
	LowFocusMax       int     // focus at or below this counts as low
}

// DefaultConfig returns the product thresholds.
func DefaultConfig() Config {
	return Config{
		MinAttempts:       3,
		PoorRateThreshold: 0.5,
		DipEnergyBelow:    6,
		LowEnergyMax:      4,
		LowFocusMax:       4,
	}
}

// #endregion config

// #region evidence
// SimilarOutcomes summarizes scored deep segments started from similar states.
type SimilarOutcomes struct {
	Attempts        int     `json:"attempts"`
	PoorOutcomeRate float64 `json:"poor_outcome_rate"`
}

// OverrideHistory summarizes recent overridden refusals.
type OverrideHistory struct {
	RecentOverrides int     `json:"recent_overrides"`
	PoorOutcomeRate float64 `json:"poor_outcome_rate"`
}

// Evidence is the historical input the rules consult. Nil fields mean no data.
type Evidence struct {
	SimilarStateOutcomes *SimilarOutcomes `json:"similar_state_outcomes"`
	OverrideHistory      *OverrideHistory `json:"override_history"`
}

// #endregion evidence

// #region input-decision
// Input is everything one evaluation needs.
type Input struct {
	Energy       int
	Focus        int
	Phase        dayclock.Phase
	IntendedType store.SegmentType // empty when unspecified
	Active       bool              // confidence is at or above the activation threshold
	Evidence     Evidence
}

// Decision is the outcome of one evaluation. Rule is empty unless Refusing.
type Decision struct {
	Active         bool              `json:"active"`
	Refusing       bool              `json:"refusing"`
	Rule           Rule              `json:"rule,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	Triggers       []Trigger         `json:"triggers,omitempty"`
	Recommendation store.SegmentType `json:"recommendation"`
}

// #endregion input-decision
