// Package planner decides whether deep work should go ahead right now and
// records refusals and overrides.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region service
// Service runs the guardrail against today's latest assessment.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	engine *confidence.Engine
	guard  *guardrail.Guardrail
	config Config
	logger *zap.Logger
}

// NewService wires a planner.
func NewService(st *store.Store, zone *dayclock.Zone, engine *confidence.Engine, guard *guardrail.Guardrail, config Config, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, engine: engine, guard: guard, config: config, logger: logging.OrNop(logger)}
}

// #endregion service

// #region plan
// Plan recommends deep or shallow work. intended is empty when unspecified.
func (s *Service) Plan(ctx context.Context, intended store.SegmentType) (*Result, error) {
	if intended != "" && !intended.Valid() {
		return nil, apperr.Validation("intended_work_type must be deep or shallow")
	}

	latest, err := s.store.LatestStateLogOn(ctx, s.zone.Today())
	if err != nil {
		return nil, s.dependency(err, "failed to load today's state")
	}
	if latest == nil {
		res := &Result{
			Recommendation: store.Shallow,
			Decision:       DecisionNoState,
			Message:        "No state logged today. Run veto_assess first to log your current state.",
		}
		s.record(ctx, res, logging.DecisionRecord{IntendedType: string(intended)})
		return res, nil
	}

	phase := s.zone.CurrentPhase()
	factors, evidence, err := s.gather(ctx, latest.Energy, latest.Focus)
	if err != nil {
		return nil, s.dependency(err, "failed to gather guardrail evidence")
	}

	decision := s.guard.Evaluate(guardrail.Input{
		Energy:       latest.Energy,
		Focus:        latest.Focus,
		Phase:        phase,
		IntendedType: intended,
		Active:       s.engine.Config().Active(factors.Level),
		Evidence:     evidence,
	})

	res := &Result{
		CurrentState: &State{
			StateLogID:     latest.ID,
			Energy:         latest.Energy,
			Focus:          latest.Focus,
			CircadianPhase: phase,
		},
		Recommendation: decision.Recommendation,
		Guardrail: GuardrailView{
			Active:     decision.Active,
			Refusing:   decision.Refusing,
			Rule:       decision.Rule,
			Confidence: factors.Level,
			Factors:    factors,
			Evidence:   evidence,
		},
	}

	switch {
	case !decision.Active:
		res.Decision = DecisionInactive
	case decision.Refusing:
		res.Decision = DecisionRefuse
		reason := decision.Reason
		res.Guardrail.Reason = &reason
		now := s.zone.Now()
		ev, err := s.store.InsertRefusal(ctx, store.RefusalEvent{
			CreatedAt:           now,
			Date:                s.zone.DateOf(now),
			RefusalType:         store.RefusalDeepWorkBlock,
			ConfidenceAtRefusal: factors.Level,
			Reason:              reason,
		})
		if err != nil {
			return nil, s.dependency(err, "failed to record refusal")
		}
		res.RefusalID = &ev.ID
		s.logger.Info("deep work refused",
			zap.String("refusal_id", ev.ID),
			zap.String("rule", string(decision.Rule)),
			zap.Float64("confidence", factors.Level),
		)
	default:
		res.Decision = DecisionAllow
	}
	res.Message = message(intended, res, s.engine.Config().ActivationThreshold)

	s.record(ctx, res, decisionRecord(intended, res, s.engine.Config().ActivationThreshold))
	return res, nil
}

// #endregion plan

// #region message
func message(intended store.SegmentType, res *Result, threshold float64) string {
	st := res.CurrentState
	g := res.Guardrail
	switch res.Decision {
	case DecisionInactive:
		msg := fmt.Sprintf("Guardrails inactive (confidence: %d%%, need %d%%). Observing patterns.",
			pct(g.Confidence), pct(threshold))
		if st.Energy >= 6 && st.Focus >= 6 {
			return msg + " Current state supports deep work."
		}
		return msg + " Current state suggests shallow work may be more effective."
	case DecisionRefuse:
		return fmt.Sprintf("⚠️ Deep work not recommended.\n\nReason: %s\nConfidence: %d%%\n\n"+
			"Options:\n[O] Override and proceed anyway\n[D] Defer to later\n[S] Switch to shallow work",
			*g.Reason, pct(g.Confidence))
	default:
		label := "Deep"
		if intended == store.Shallow {
			label = "Shallow"
		}
		return fmt.Sprintf("%s work suitable. Energy %d/10, focus %d/10, phase: %s.", label, st.Energy, st.Focus, st.CircadianPhase)
	}
}

func pct(v float64) int {
	return int(math.Round(v * 100))
}

// #endregion message

// #region decision-log
func decisionRecord(intended store.SegmentType, res *Result, threshold float64) logging.DecisionRecord {
	rec := logging.DecisionRecord{
		IntendedType:       string(intended),
		Energy:             res.CurrentState.Energy,
		Focus:              res.CurrentState.Focus,
		Phase:              string(res.CurrentState.CircadianPhase),
		Confidence:         res.Guardrail.Confidence,
		DaysOfData:         res.Guardrail.Factors.DaysOfData,
		SimilarStateCount:  res.Guardrail.Factors.SimilarStateCount,
		OutcomeCorrelation: res.Guardrail.Factors.OutcomeCorrelation,
		Threshold:          threshold,
	}
	if ev := res.Guardrail.Evidence.SimilarStateOutcomes; ev != nil {
		rec.SimilarAttempts = ev.Attempts
		rec.SimilarPoorRate = ev.PoorOutcomeRate
	}
	if ev := res.Guardrail.Evidence.OverrideHistory; ev != nil {
		rec.Overrides = ev.RecentOverrides
		rec.OverridePoor = ev.PoorOutcomeRate
	}
	if res.RefusalID != nil {
		rec.RefusalID = *res.RefusalID
	}
	return rec
}

// record appends the decision to the decision log. Failures are logged only.
func (s *Service) record(ctx context.Context, res *Result, rec logging.DecisionRecord) {
	entry := logging.DecisionEntry{
		Date:       s.zone.Today(),
		Decision:   res.Decision,
		Rule:       string(res.Guardrail.Rule),
		Confidence: res.Guardrail.Confidence,
		CreatedAt:  s.zone.Now(),
	}
	if res.CurrentState != nil {
		entry.StateLogID = res.CurrentState.StateLogID
	}
	if res.Guardrail.Reason != nil {
		entry.Reason = *res.Guardrail.Reason
	}
	if data, err := json.Marshal(rec); err == nil {
		entry.EvidenceJSON = string(data)
	}
	if err := logging.LogDecision(ctx, s.store.DB(), entry); err != nil {
		s.logger.Warn("decision log write failed", zap.Error(err))
	}
}

// #endregion decision-log

func (s *Service) dependency(err error, msg string) error {
	s.logger.Warn(msg, zap.Error(err))
	return apperr.Dependency(err, "%s", msg)
}
