package planner

import (
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/store"
)

// Decision labels recorded in the decision log.
const (
	DecisionNoState  = "no_state"
	DecisionInactive = "inactive"
	DecisionAllow    = "allow"
	DecisionRefuse   = "refuse"
)

// #region config
// Config holds planner settings outside the guardrail rules.
type Config struct {
	OverrideDaysBack int // window for override history evidence
}

// DefaultConfig returns the product defaults.
func DefaultConfig() Config {
	return Config{OverrideDaysBack: 14}
}

// #endregion config

// #region result
// State is the assessment Plan based its decision on.
type State struct {
	StateLogID     string         `json:"state_log_id"`
	Energy         int            `json:"energy"`
	Focus          int            `json:"focus"`
	CircadianPhase dayclock.Phase `json:"circadian_phase"`
}

// GuardrailView is the guardrail section of a plan.
type GuardrailView struct {
	Active     bool               `json:"active"`
	Refusing   bool               `json:"refusing"`
	Rule       guardrail.Rule     `json:"rule,omitempty"`
	Reason     *string            `json:"reason"`
	Confidence float64            `json:"confidence"`
	Factors    confidence.Factors `json:"factors"`
	Evidence   guardrail.Evidence `json:"evidence"`
}

// Result is the outcome of Plan.
type Result struct {
	CurrentState   *State            `json:"current_state"`
	Recommendation store.SegmentType `json:"recommendation"`
	Guardrail      GuardrailView     `json:"guardrail"`
	RefusalID      *string           `json:"refusal_id"`
	Decision       string            `json:"decision"`
	Message        string            `json:"message"`
}

// OverrideResult is the refusal after an override was recorded.
type OverrideResult struct {
	Refusal store.RefusalEvent `json:"refusal"`
	Segment *store.Segment     `json:"segment"`
	Message string             `json:"message"`
}

// #endregion result
