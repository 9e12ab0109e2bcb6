// Package assess ingests self-reported state and returns the execution profile.
package assess

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region types
// Input is one self-report. Optional fields are nil when absent.
type Input struct {
	Energy     int
	Focus      int
	Mood       *string
	SleepHours *float64
	Notes      *string
}

// CurrentState echoes the logged state with its derived phase.
type CurrentState struct {
	Energy         int            `json:"energy"`
	Focus          int            `json:"focus"`
	Mood           *string        `json:"mood"`
	SleepHours     *float64       `json:"sleep_hours"`
	CircadianPhase dayclock.Phase `json:"circadian_phase"`
}

// Recommendation is the quick deep/shallow heuristic shown after logging.
type Recommendation struct {
	DeepWorkSuitable  bool              `json:"deep_work_suitable"`
	SuggestedWorkType store.SegmentType `json:"suggested_work_type"`
	Reasoning         string            `json:"reasoning"`
}

// Profile is the execution profile returned by Assess.
type Profile struct {
	StateLogID     string          `json:"state_log_id"`
	Timestamp      string          `json:"timestamp"`
	CurrentState   CurrentState    `json:"current_state"`
	Recommendation Recommendation  `json:"recommendation"`
	Confidence     confidence.View `json:"confidence"`
}

// TodayState reports the latest assessment dated today.
type TodayState struct {
	HasAssessment bool            `json:"has_assessment"`
	StateLog      *store.StateLog `json:"state_log"`
	HoursAgo      *float64        `json:"hours_ago"`
	Message       string          `json:"message"`
}

// #endregion types

// #region service
// Service logs state and derives the execution profile.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	engine *confidence.Engine
	logger *zap.Logger
}

// NewService wires an assess service.
func NewService(st *store.Store, zone *dayclock.Zone, engine *confidence.Engine, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, engine: engine, logger: logging.OrNop(logger)}
}

// Assess validates and stores a state log, then returns the profile.
func (s *Service) Assess(ctx context.Context, in Input) (*Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	now := s.zone.Now()
	phase := s.zone.Phase(now)
	log, err := s.store.InsertStateLog(ctx, store.StateLog{
		CreatedAt:      now,
		Date:           s.zone.DateOf(now),
		Energy:         in.Energy,
		Focus:          in.Focus,
		Mood:           blankToNil(in.Mood),
		SleepHours:     in.SleepHours,
		CircadianPhase: phase,
		Notes:          blankToNil(in.Notes),
	})
	if err != nil {
		s.logger.Warn("state log insert failed", zap.Error(err))
		return nil, apperr.Dependency(err, "failed to log state")
	}

	view, err := s.engine.View(ctx)
	if err != nil {
		s.logger.Warn("confidence view failed", zap.Error(err))
		return nil, apperr.Dependency(err, "failed to compute confidence")
	}

	s.logger.Info("state logged",
		zap.String("state_log_id", log.ID),
		zap.Int("energy", log.Energy),
		zap.Int("focus", log.Focus),
		zap.String("phase", string(phase)),
	)

	return &Profile{
		StateLogID: log.ID,
		Timestamp:  store.FormatTime(log.CreatedAt),
		CurrentState: CurrentState{
			Energy:         log.Energy,
			Focus:          log.Focus,
			Mood:           log.Mood,
			SleepHours:     log.SleepHours,
			CircadianPhase: phase,
		},
		Recommendation: Recommend(in.Energy, in.Focus, phase, view.Level, s.engine.Config().ActivationThreshold),
		Confidence:     view,
	}, nil
}

// Today returns the latest state log dated today, if any.
func (s *Service) Today(ctx context.Context) (*TodayState, error) {
	log, err := s.store.LatestStateLogOn(ctx, s.zone.Today())
	if err != nil {
		s.logger.Warn("latest state log failed", zap.Error(err))
		return nil, apperr.Dependency(err, "failed to query state logs")
	}
	if log == nil {
		return &TodayState{Message: "No state assessment logged today."}, nil
	}

	hours := math.Round(s.zone.Now().Sub(log.CreatedAt).Hours()*10) / 10
	msg := fmt.Sprintf("State logged at %s (%gh ago): Energy %d/10, Focus %d/10",
		s.zone.Clock(log.CreatedAt), hours, log.Energy, log.Focus)
	if log.SleepHours != nil && *log.SleepHours > 0 {
		msg += fmt.Sprintf(", Sleep %gh", *log.SleepHours)
	}
	return &TodayState{HasAssessment: true, StateLog: log, HoursAgo: &hours, Message: msg + "."}, nil
}

// #endregion service

// #region recommendation
// Recommend applies the phase-adjusted energy heuristic. Below the activation
// threshold the state is only observed, so deep work is never marked unsuitable.
func Recommend(energy, focus int, phase dayclock.Phase, level, threshold float64) Recommendation {
	bonus := 0
	switch phase {
	case dayclock.MorningPeak:
		bonus = 1
	case dayclock.AfternoonDip:
		bonus = -1
	}
	suitable := energy+bonus >= 6 && focus >= 6
	suggested := store.Shallow
	if suitable {
		suggested = store.Deep
	}

	if level < threshold {
		return Recommendation{
			DeepWorkSuitable:  true,
			SuggestedWorkType: suggested,
			Reasoning: fmt.Sprintf("Observing patterns. Confidence: %d%% (guardrails activate at %d%%).",
				int(math.Round(level*100)), int(math.Round(threshold*100))),
		}
	}

	if suitable {
		reasoning := fmt.Sprintf("Energy %d/10 and focus %d/10 support deep work.", energy, focus)
		switch {
		case bonus > 0:
			reasoning += " Morning peak amplifies capacity."
		case bonus < 0:
			reasoning += " Afternoon dip noted but compensated by good baseline."
		}
		return Recommendation{DeepWorkSuitable: true, SuggestedWorkType: suggested, Reasoning: reasoning}
	}

	var issues []string
	if energy < 6 {
		issues = append(issues, fmt.Sprintf("energy %d/10", energy))
	}
	if focus < 6 {
		issues = append(issues, fmt.Sprintf("focus %d/10", focus))
	}
	if bonus < 0 {
		issues = append(issues, "afternoon dip phase")
	}
	return Recommendation{
		SuggestedWorkType: suggested,
		Reasoning:         fmt.Sprintf("Shallow work recommended. Factors: %s.", strings.Join(issues, ", ")),
	}
}

// #endregion recommendation

// #region validation
func validate(in Input) error {
	if in.Energy < 1 || in.Energy > 10 {
		return apperr.Validation("energy must be between 1 and 10")
	}
	if in.Focus < 1 || in.Focus > 10 {
		return apperr.Validation("focus must be between 1 and 10")
	}
	if in.SleepHours != nil && (*in.SleepHours < 0 || *in.SleepHours > 24) {
		return apperr.Validation("sleep_hours must be between 0 and 24")
	}
	return nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// #endregion validation
