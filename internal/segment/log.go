package segment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/store"
	"github.com/danielpatrickdp/veto/internal/timespec"
)

// RetroactiveMarker prefixes the notes of segments logged after the fact.
const RetroactiveMarker = "[Logged retroactively]"

// #region log
// LogInput describes a segment that already happened.
type LogInput struct {
	IntendedType    store.SegmentType
	StartTime       string // see timespec.Parse
	DurationMinutes int
	FocusScore      int
	Completed       bool
	Description     *string
	Notes           *string
	TaskRef         *string
}

// LogResult is the stored closed segment.
type LogResult struct {
	Segment store.Segment `json:"segment"`
	Message string        `json:"message"`
}

// Log inserts an already-closed segment. It never becomes the open segment,
// so it may be logged while another segment is running.
func (s *Service) Log(ctx context.Context, in LogInput) (*LogResult, error) {
	if !in.IntendedType.Valid() {
		return nil, apperr.Validation("intended_type must be deep or shallow")
	}
	if err := validateFocus(in.FocusScore); err != nil {
		return nil, err
	}
	if err := validateDuration(in.DurationMinutes); err != nil {
		return nil, err
	}

	now := s.zone.Now()
	start, err := timespec.Parse(in.StartTime, now)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(in.DurationMinutes) * time.Minute)

	notes := RetroactiveMarker
	if n := blankToNil(in.Notes); n != nil {
		notes += " " + *n
	}
	focus := in.FocusScore

	seg, err := s.store.InsertSegment(ctx, store.Segment{
		CreatedAt:    now,
		Date:         s.zone.DateOf(start),
		IntendedType: in.IntendedType,
		Description:  blankToNil(in.Description),
		StartTime:    start,
		EndTime:      &end,
		Completed:    in.Completed,
		FocusScore:   &focus,
		TaskRef:      blankToNil(in.TaskRef),
		Notes:        &notes,
	})
	if err != nil {
		return nil, s.dependency(err, "failed to log segment")
	}

	s.logger.Info("segment logged",
		zap.String("segment_id", seg.ID),
		zap.String("date", seg.Date),
		zap.Int("duration_minutes", in.DurationMinutes),
	)
	return &LogResult{
		Segment: seg,
		Message: fmt.Sprintf("%s segment logged (%d min, %s).",
			strings.ToUpper(string(seg.IntendedType)), in.DurationMinutes, FocusLabel(focus)),
	}, nil
}

// #endregion log
