// Package segment manages the lifecycle of work segments: at most one open
// segment at a time, closed by End, or logged already closed after the fact.
package segment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

// MaxDurationMinutes bounds explicit durations to one day.
const MaxDurationMinutes = 1440

// #region service
// Service implements Start, End, Log, Edit and List.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	logger *zap.Logger
}

// NewService wires a segment service.
func NewService(st *store.Store, zone *dayclock.Zone, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, logger: logging.OrNop(logger)}
}

// #endregion service

// #region start
// StartInput describes a new open segment.
type StartInput struct {
	IntendedType store.SegmentType
	Description  *string
	StateLogID   *string
	TaskRef      *string
}

// StartResult is the created segment.
type StartResult struct {
	Segment store.Segment `json:"segment"`
	Message string        `json:"message"`
}

// Start opens a segment. It fails with a conflict while another is open.
func (s *Service) Start(ctx context.Context, in StartInput) (*StartResult, error) {
	if !in.IntendedType.Valid() {
		return nil, apperr.Validation("intended_type must be deep or shallow")
	}

	open, err := s.store.OpenSegment(ctx)
	if err != nil {
		return nil, s.dependency(err, "failed to check active segment")
	}
	if open != nil {
		return nil, s.conflict(open)
	}

	now := s.zone.Now()
	seg, err := s.store.InsertSegment(ctx, store.Segment{
		CreatedAt:    now,
		Date:         s.zone.DateOf(now),
		IntendedType: in.IntendedType,
		Description:  blankToNil(in.Description),
		StartTime:    now,
		StateLogID:   blankToNil(in.StateLogID),
		TaskRef:      blankToNil(in.TaskRef),
	})
	if errors.Is(err, store.ErrOpenSegmentExists) {
		// lost a race with a concurrent Start
		open, rerr := s.store.OpenSegment(ctx)
		if rerr != nil || open == nil {
			return nil, apperr.Conflict("Active segment already exists. End it with veto_end_segment before starting a new one.")
		}
		return nil, s.conflict(open)
	}
	if err != nil {
		return nil, s.dependency(err, "failed to start segment")
	}

	s.logger.Info("segment started",
		zap.String("segment_id", seg.ID),
		zap.String("intended_type", string(seg.IntendedType)),
	)
	return &StartResult{
		Segment: seg,
		Message: fmt.Sprintf("%s work segment started.", strings.ToUpper(string(seg.IntendedType))),
	}, nil
}

func (s *Service) conflict(open *store.Segment) error {
	return apperr.Conflict("Active segment already exists (started at %s). End it with veto_end_segment before starting a new one.",
		open.StartTime.In(s.zone.Location()).Format(time.RFC3339))
}

// #endregion start

// #region end
// EndInput closes the open segment.
type EndInput struct {
	FocusScore      int
	Completed       bool
	Notes           *string
	DurationMinutes *int // overrides the measured duration in the result
}

// EndResult is the closed segment and its duration.
type EndResult struct {
	Segment         store.Segment `json:"segment"`
	DurationMinutes int           `json:"duration_minutes"`
	Message         string        `json:"message"`
}

// End closes the open segment with its outcome.
func (s *Service) End(ctx context.Context, in EndInput) (*EndResult, error) {
	if err := validateFocus(in.FocusScore); err != nil {
		return nil, err
	}
	if in.DurationMinutes != nil {
		if err := validateDuration(*in.DurationMinutes); err != nil {
			return nil, err
		}
	}

	open, err := s.store.OpenSegment(ctx)
	if err != nil {
		return nil, s.dependency(err, "failed to find active segment")
	}
	if open == nil {
		return nil, apperr.NotFound("No active segment to end. Start one with veto_start_segment first.")
	}

	now := s.zone.Now()
	duration := store.RoundMinutes(now.Sub(open.StartTime))
	if in.DurationMinutes != nil {
		duration = *in.DurationMinutes
	}

	seg := *open
	seg.EndTime = &now
	seg.FocusScore = &in.FocusScore
	seg.Completed = in.Completed
	if notes := blankToNil(in.Notes); notes != nil {
		seg.Notes = appendNotes(seg.Notes, *notes, "")
	}
	seg, err = s.store.UpdateSegment(ctx, seg)
	if err != nil {
		return nil, s.dependency(err, "failed to end segment")
	}

	s.logger.Info("segment ended",
		zap.String("segment_id", seg.ID),
		zap.Int("focus_score", in.FocusScore),
		zap.Int("duration_minutes", duration),
	)
	completion := "incomplete"
	if in.Completed {
		completion = "completed"
	}
	return &EndResult{
		Segment:         seg,
		DurationMinutes: duration,
		Message: fmt.Sprintf("%s segment ended (%d min, %s, %s).",
			strings.ToUpper(string(seg.IntendedType)), duration, completion, FocusLabel(in.FocusScore)),
	}, nil
}

// #endregion end

// #region helpers
// FocusLabel classifies a focus score for messages.
func FocusLabel(score int) string {
	switch {
	case score >= 7:
		return "good focus"
	case score >= 5:
		return "moderate focus"
	default:
		return "low focus"
	}
}

func validateFocus(score int) error {
	if score < 1 || score > 10 {
		return apperr.Validation("focus_score must be between 1 and 10")
	}
	return nil
}

func validateDuration(minutes int) error {
	if minutes < 1 || minutes > MaxDurationMinutes {
		return apperr.Validation("duration_minutes must be between 1 and %d (24 hours)", MaxDurationMinutes)
	}
	return nil
}

// appendNotes keeps prior notes and adds text after them, tagged with marker.
func appendNotes(existing *string, text, marker string) *string {
	if existing == nil || *existing == "" {
		return &text
	}
	line := text
	if marker != "" {
		line = marker + " " + text
	}
	joined := *existing + "\n" + line
	return &joined
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

func (s *Service) dependency(err error, msg string) error {
	s.logger.Warn(msg, zap.Error(err))
	return apperr.Dependency(err, "%s", msg)
}

// #endregion helpers
