package guardrail

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region guardrail
// Guardrail decides whether deep work should be refused.
type Guardrail struct {
	config Config
}

// New creates a guardrail with the given thresholds.
func New(config Config) *Guardrail {
	return &Guardrail{config: config}
}

// Evaluate runs the refusal rules in priority order. Every matching rule is
// recorded in Triggers; the first one becomes the reported reason.
func (g *Guardrail) Evaluate(in Input) Decision {
	d := Decision{Active: in.Active, Recommendation: store.Deep}
	if !in.Active || in.IntendedType == store.Shallow {
		return d
	}

	var triggers []Trigger

	// 1. Similar states historically produced poor deep work
	if ev := in.Evidence.SimilarStateOutcomes; ev != nil &&
		ev.Attempts >= g.config.MinAttempts && ev.PoorOutcomeRate >= g.config.PoorRateThreshold {
		triggers = append(triggers, Trigger{
			Rule: RuleSimilarStateEvidence,
			Reason: fmt.Sprintf("Similar states (energy %d, focus %d) led to poor outcomes %d%% of the time (%d attempts).",
				in.Energy, in.Focus, percent(ev.PoorOutcomeRate), ev.Attempts),
		})
	}

	// 2. Afternoon dip with low energy
	if in.Phase == dayclock.AfternoonDip && in.Energy < g.config.DipEnergyBelow {
		triggers = append(triggers, Trigger{
			Rule: RuleAfternoonDip,
			Reason: fmt.Sprintf("Afternoon dip phase with low energy (%d/10). Historical patterns suggest poor deep work outcomes.",
				in.Energy),
		})
	}

	// 3. Energy and focus both low
	if in.Energy <= g.config.LowEnergyMax && in.Focus <= g.config.LowFocusMax {
		triggers = append(triggers, Trigger{
			Rule: RuleLowEnergyFocus,
			Reason: fmt.Sprintf("Both energy (%d/10) and focus (%d/10) are low. Deep work unlikely to be productive.",
				in.Energy, in.Focus),
		})
	}

	if len(triggers) == 0 {
		return d
	}
	d.Refusing = true
	d.Rule = triggers[0].Rule
	d.Reason = triggers[0].Reason
	d.Triggers = triggers
	d.Recommendation = store.Shallow
	return d
}

// #endregion guardrail

func percent(rate float64) int {
	return int(math.Round(rate * 100))
}
