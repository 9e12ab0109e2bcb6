// Package summary closes out a day into its DailySummary.
package summary

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

// trendDelta is the first-to-last energy change that counts as a rise or dip.
const trendDelta = 2

// #region types
// SegmentDetail is one of today's segments in the wrap-up.
type SegmentDetail struct {
	ID              string            `json:"id"`
	Type            store.SegmentType `json:"type"`
	Description     *string           `json:"description"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	DurationMinutes int               `json:"duration_minutes"`
	FocusScore      *int              `json:"focus_score"`
	Completed       bool              `json:"completed"`
	Override        bool              `json:"override"`
}

// OverrideReview flags an override segment for post-hoc assessment.
type OverrideReview struct {
	SegmentID       string  `json:"segment_id"`
	Description     *string `json:"description"`
	FocusScore      *int    `json:"focus_score"`
	NeedsAssessment bool    `json:"needs_assessment"`
}

// Result is the outcome of WrapDay.
type Result struct {
	Summary         store.DailySummary `json:"summary"`
	SegmentsToday   int                `json:"segments_today"`
	Segments        []SegmentDetail    `json:"segments"`
	OverrideReviews []OverrideReview   `json:"override_reviews"`
	PendingCaptures int                `json:"pending_captures"`
	Message         string             `json:"message"`
}

// #endregion types

// #region service
// Service builds daily summaries.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	logger *zap.Logger
}

// NewService wires a summary service.
func NewService(st *store.Store, zone *dayclock.Zone, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, logger: logging.OrNop(logger)}
}

// WrapDay aggregates today's segments and state logs into the day's summary.
// It refuses while a segment is still open and writes nothing in that case.
// notableEvents replaces the stored text only when non-empty.
func (s *Service) WrapDay(ctx context.Context, notableEvents *string) (*Result, error) {
	open, err := s.store.OpenSegment(ctx)
	if err != nil {
		return nil, s.dependency(err, "failed to check active segment")
	}
	if open != nil {
		return nil, apperr.Policy("Active segment still running. End it with veto_end_segment before wrapping the day.")
	}

	today := s.zone.Today()
	segs, err := s.store.SegmentsOn(ctx, today, "", 0)
	if err != nil {
		return nil, s.dependency(err, "failed to fetch segments")
	}
	logs, err := s.store.StateLogsOn(ctx, today)
	if err != nil {
		return nil, s.dependency(err, "failed to fetch state logs")
	}
	pending, err := s.store.PendingCaptures(ctx, 0)
	if err != nil {
		return nil, s.dependency(err, "failed to fetch pending captures")
	}

	sum := Aggregate(segs, logs)
	sum.Date = today
	sum.CreatedAt = s.zone.Now()
	if notableEvents != nil && strings.TrimSpace(*notableEvents) != "" {
		sum.NotableEvents = notableEvents
	} else {
		existing, err := s.store.GetDailySummary(ctx, today)
		if err != nil {
			return nil, s.dependency(err, "failed to load daily summary")
		}
		if existing != nil {
			sum.NotableEvents = existing.NotableEvents
		}
	}

	saved, err := s.store.UpsertDailySummary(ctx, sum)
	if err != nil {
		return nil, s.dependency(err, "failed to save daily summary")
	}

	details := make([]SegmentDetail, 0, len(segs))
	reviews := []OverrideReview{}
	for _, seg := range segs {
		end := seg.StartTime
		if seg.EndTime != nil {
			end = *seg.EndTime
		}
		details = append(details, SegmentDetail{
			ID:              seg.ID,
			Type:            seg.IntendedType,
			Description:     seg.Description,
			StartTime:       seg.StartTime,
			EndTime:         end,
			DurationMinutes: store.RoundMinutes(end.Sub(seg.StartTime)),
			FocusScore:      seg.FocusScore,
			Completed:       seg.Completed,
			Override:        seg.OverrideFlag,
		})
		if seg.OverrideFlag {
			reviews = append(reviews, OverrideReview{
				SegmentID:       seg.ID,
				Description:     seg.Description,
				FocusScore:      seg.FocusScore,
				NeedsAssessment: true,
			})
		}
	}

	s.logger.Info("day wrapped",
		zap.String("date", today),
		zap.Int("segments", len(segs)),
		zap.Int("deep_minutes", saved.DeepWorkMinutes),
	)
	res := &Result{
		Summary:         saved,
		SegmentsToday:   len(segs),
		Segments:        details,
		OverrideReviews: reviews,
		PendingCaptures: len(pending),
	}
	res.Message = s.render(res)
	return res, nil
}

// #endregion service

// #region aggregate
// Aggregate computes the metric fields of a summary from one day's segments
// and state logs (oldest first).
func Aggregate(segs []store.Segment, logs []store.StateLog) store.DailySummary {
	var sum store.DailySummary
	completed, focusSum, focusN := 0, 0, 0
	for _, seg := range segs {
		if seg.Completed {
			completed++
		}
		if seg.FocusScore != nil {
			focusSum += *seg.FocusScore
			focusN++
		}
		if seg.EndTime == nil {
			continue
		}
		minutes := store.RoundMinutes(seg.EndTime.Sub(seg.StartTime))
		if seg.IntendedType == store.Deep {
			sum.DeepWorkMinutes += minutes
		} else {
			sum.ShallowWorkMinutes += minutes
		}
	}
	if len(segs) > 0 {
		ratio := float64(completed) / float64(len(segs))
		sum.CompletionRatio = &ratio
	}
	if focusN > 0 {
		mean := float64(focusSum) / float64(focusN)
		sum.MeanFocus = &mean
	}
	sum.EnergyTrend = Trend(logs)
	return sum
}

// Trend compares the first and last energy of the day.
func Trend(logs []store.StateLog) store.EnergyTrend {
	if len(logs) < 2 {
		return store.TrendStable
	}
	diff := logs[len(logs)-1].Energy - logs[0].Energy
	switch {
	case diff >= trendDelta:
		return store.TrendRise
	case diff <= -trendDelta:
		return store.TrendDip
	default:
		return store.TrendStable
	}
}

// #endregion aggregate

// #region render
func (s *Service) render(res *Result) string {
	sum := res.Summary
	completion := "N/A"
	if sum.CompletionRatio != nil {
		completion = fmt.Sprintf("%d%%", int(math.Round(*sum.CompletionRatio*100)))
	}
	focus := "N/A"
	if sum.MeanFocus != nil {
		focus = fmt.Sprintf("%.1f", *sum.MeanFocus)
	}

	lines := []string{
		fmt.Sprintf("Day wrapped: %d segment(s)", res.SegmentsToday),
		"",
		"--- Summary ---",
		fmt.Sprintf("Deep work: %d min | Shallow: %d min", sum.DeepWorkMinutes, sum.ShallowWorkMinutes),
		"Completion: " + completion,
		"Mean focus: " + focus,
		fmt.Sprintf("Energy trend: %s", sum.EnergyTrend),
	}
	if len(res.Segments) > 0 {
		lines = append(lines, "", "--- Segments ---")
		for _, d := range res.Segments {
			status := "✗"
			if d.Completed {
				status = "✓"
			}
			line := fmt.Sprintf("  %s | %s | %dmin | %s", s.zone.Clock(d.StartTime), d.Type, d.DurationMinutes, status)
			if d.FocusScore != nil {
				line += fmt.Sprintf(" focus:%d", *d.FocusScore)
			}
			if d.Override {
				line += " [override]"
			}
			if d.Description != nil {
				line += " - " + *d.Description
			}
			lines = append(lines, line)
		}
	}
	if n := len(res.OverrideReviews); n > 0 {
		lines = append(lines, "", fmt.Sprintf("%d override(s) need post-hoc assessment.", n))
	}
	if res.PendingCaptures > 0 {
		lines = append(lines, "", fmt.Sprintf("%d capture(s) still pending. Review them with veto_pending_captures.", res.PendingCaptures))
	}
	return strings.Join(lines, "\n")
}

// #endregion render

func (s *Service) dependency(err error, msg string) error {
	s.logger.Warn(msg, zap.Error(err))
	return apperr.Dependency(err, "%s", msg)
}
