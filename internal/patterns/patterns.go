// Package patterns answers read-only aggregate questions about past segments
// and refusals, exposing what the guardrail bases its decisions on.
package patterns

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

const (
	poorFocusBelow = 5
	goodFocusFrom  = 7
)

// #region service
// Service runs pattern queries.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	engine *confidence.Engine
	config Config
	logger *zap.Logger
}

// NewService wires a pattern query service.
func NewService(st *store.Store, zone *dayclock.Zone, engine *confidence.Engine, config Config, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, engine: engine, config: config, logger: logging.OrNop(logger)}
}

// Query dispatches on in.QueryType.
func (s *Service) Query(ctx context.Context, in Input) (*Result, error) {
	days := in.DaysBack
	if days == 0 {
		days = s.config.DefaultDaysBack
	}
	if days < 1 || days > s.config.MaxDaysBack {
		return nil, apperr.Validation("days_back must be between 1 and %d", s.config.MaxDaysBack)
	}
	if err := validateRange("energy_range", in.EnergyRange); err != nil {
		return nil, err
	}
	if err := validateRange("focus_range", in.FocusRange); err != nil {
		return nil, err
	}
	since := s.zone.DaysAgo(days)

	res := &Result{QueryType: in.QueryType, DaysBack: days}
	switch in.QueryType {
	case DeepWorkOutcomes:
		data, err := s.deepWorkOutcomes(ctx, since, in.EnergyRange, in.FocusRange)
		if err != nil {
			return nil, s.dependency(err)
		}
		avg := "N/A"
		if data.AvgFocusScore != nil {
			avg = fmt.Sprintf("%.1f", *data.AvgFocusScore)
		}
		res.Data = data
		res.Message = fmt.Sprintf("Deep work outcomes: %d attempts, %d%% completion, avg focus %s",
			data.TotalAttempts, pct(data.CompletionRate), avg)
	case StateCorrelation:
		data, err := s.stateCorrelation(ctx, since)
		if err != nil {
			return nil, s.dependency(err)
		}
		res.Data = data
		res.Message = fmt.Sprintf("Found %d state correlation buckets", len(data))
	case OverrideAccuracy:
		data, err := s.overrideAccuracy(ctx, since)
		if err != nil {
			return nil, s.dependency(err)
		}
		res.Data = data
		res.Message = fmt.Sprintf("Override accuracy: %d overrides, %d%% led to poor outcomes",
			data.TotalOverrides, pct(data.AccuracyRate))
	case ConfidenceFactors:
		data, err := s.confidenceFactors(ctx, in.EnergyRange, in.FocusRange)
		if err != nil {
			return nil, s.dependency(err)
		}
		res.Data = data
		res.Message = fmt.Sprintf("Confidence: %d%% (%d days of data)", pct(data.CalculatedConfidence), data.DaysOfData)
	default:
		return nil, apperr.NotFound("Unknown query type: %s", in.QueryType)
	}
	return res, nil
}

// #endregion service

// #region deep-work-outcomes
// deepWorkOutcomes aggregates closed deep segments since the date. With a
// range filter only segments whose linked state log falls inside it count.
func (s *Service) deepWorkOutcomes(ctx context.Context, since string, energy, focus *store.Range) (*DeepWorkOutcome, error) {
	segs, err := s.store.ClosedSegmentsSince(ctx, store.Deep, since)
	if err != nil {
		return nil, err
	}

	out := &DeepWorkOutcome{}
	focusSum, focusN := 0, 0
	for _, ss := range segs {
		if !inRanges(ss, energy, focus) {
			continue
		}
		out.TotalAttempts++
		if ss.Completed {
			out.Completed++
		}
		if ss.FocusScore == nil {
			continue
		}
		v := *ss.FocusScore
		focusSum += v
		focusN++
		switch {
		case v < poorFocusBelow:
			out.PoorOutcomes++
		case v >= goodFocusFrom:
			out.GoodOutcomes++
		}
	}
	if out.TotalAttempts > 0 {
		out.CompletionRate = float64(out.Completed) / float64(out.TotalAttempts)
	}
	if focusN > 0 {
		avg := float64(focusSum) / float64(focusN)
		out.AvgFocusScore = &avg
	}
	return out, nil
}

func inRanges(ss store.SegmentState, energy, focus *store.Range) bool {
	if energy == nil && focus == nil {
		return true
	}
	if ss.Energy == nil || ss.Focus == nil {
		return false
	}
	if energy != nil && !energy.Contains(*ss.Energy) {
		return false
	}
	if focus != nil && !focus.Contains(*ss.Focus) {
		return false
	}
	return true
}

// #endregion deep-work-outcomes

// #region state-correlation
type bucketAcc struct {
	count, completed, focusSum, focusN int
}

// stateCorrelation buckets closed deep segments with a linked state log by
// low/med/high energy and focus. Largest buckets first.
func (s *Service) stateCorrelation(ctx context.Context, since string) ([]Correlation, error) {
	segs, err := s.store.ClosedSegmentsSince(ctx, store.Deep, since)
	if err != nil {
		return nil, err
	}

	buckets := map[string]*bucketAcc{}
	for _, ss := range segs {
		if ss.Energy == nil || ss.Focus == nil {
			continue
		}
		key := fmt.Sprintf("E:%s/F:%s", level(*ss.Energy), level(*ss.Focus))
		b, ok := buckets[key]
		if !ok {
			b = &bucketAcc{}
			buckets[key] = b
		}
		b.count++
		if ss.Completed {
			b.completed++
		}
		if ss.FocusScore != nil {
			b.focusSum += *ss.FocusScore
			b.focusN++
		}
	}

	out := make([]Correlation, 0, len(buckets))
	for key, b := range buckets {
		c := Correlation{
			StateBucket:    key,
			SegmentCount:   b.count,
			CompletionRate: float64(b.completed) / float64(b.count),
		}
		if b.focusN > 0 {
			avg := float64(b.focusSum) / float64(b.focusN)
			c.AvgFocus = &avg
		}
		c.Recommendation = Classify(c.AvgFocus, c.CompletionRate)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SegmentCount != out[j].SegmentCount {
			return out[i].SegmentCount > out[j].SegmentCount
		}
		return out[i].StateBucket < out[j].StateBucket
	})
	return out, nil
}

// level buckets a 1-10 value into low (<=4), med (5-7) or high (>=8).
func level(v int) string {
	switch {
	case v <= 4:
		return "low"
	case v <= 7:
		return "med"
	default:
		return "high"
	}
}

// Classify rates a bucket from its average focus and completion rate.
func Classify(avgFocus *float64, completion float64) Suitability {
	switch {
	case avgFocus != nil && *avgFocus >= 7 && completion >= 0.7:
		return Suitable
	case avgFocus != nil && *avgFocus >= 5 && completion >= 0.5:
		return Marginal
	default:
		return Unsuitable
	}
}

// #endregion state-correlation

// #region override-accuracy
// overrideAccuracy reports how often overridden refusals were later judged poor.
func (s *Service) overrideAccuracy(ctx context.Context, since string) (*Accuracy, error) {
	refusals, err := s.store.RefusalsSince(ctx, since, true, 0)
	if err != nil {
		return nil, err
	}
	out := &Accuracy{TotalOverrides: len(refusals)}
	for _, r := range refusals {
		if r.OutcomeQuality == nil {
			continue
		}
		switch *r.OutcomeQuality {
		case store.OutcomeGood:
			out.GoodOutcomes++
		case store.OutcomePoor:
			out.PoorOutcomes++
		}
	}
	if out.TotalOverrides > 0 {
		out.AccuracyRate = float64(out.PoorOutcomes) / float64(out.TotalOverrides)
	}
	return out, nil
}

// #endregion override-accuracy

// #region confidence-factors
// confidenceFactors uses explicit ranges when both are given, otherwise the
// similarity window around today's latest state, otherwise volume only.
func (s *Service) confidenceFactors(ctx context.Context, energy, focus *store.Range) (*Factors, error) {
	var (
		f   confidence.Factors
		err error
	)
	switch {
	case energy != nil && focus != nil:
		f, err = s.engine.ComputeIn(ctx, *energy, *focus)
	default:
		latest, lerr := s.store.LatestStateLogOn(ctx, s.zone.Today())
		if lerr != nil {
			return nil, lerr
		}
		if latest == nil {
			f, err = s.engine.ComputeDaysOnly(ctx)
			break
		}
		w := s.engine.Config().SimilarWindow
		er, fr := store.Window(latest.Energy, w), store.Window(latest.Focus, w)
		energy, focus = &er, &fr
		f, err = s.engine.ComputeIn(ctx, er, fr)
	}
	if err != nil {
		return nil, err
	}
	return &Factors{
		DaysOfData:           f.DaysOfData,
		SimilarStateCount:    f.SimilarStateCount,
		OutcomeCorrelation:   f.OutcomeCorrelation,
		CalculatedConfidence: f.Level,
		EnergyRange:          energy,
		FocusRange:           focus,
	}, nil
}

// #endregion confidence-factors

// #region helpers
func validateRange(name string, r *store.Range) error {
	if r == nil {
		return nil
	}
	if r.Min < 1 || r.Max > 10 || r.Min > r.Max {
		return apperr.Validation("%s must satisfy 1 <= min <= max <= 10", name)
	}
	return nil
}

func pct(v float64) int {
	return int(math.Round(v * 100))
}

func (s *Service) dependency(err error) error {
	s.logger.Warn("pattern query failed", zap.Error(err))
	return apperr.Dependency(err, "failed to query patterns")
}

// #endregion helpers
