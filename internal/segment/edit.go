package segment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/store"
)

// EditMarker tags notes appended by Edit.
const EditMarker = "[Edit]"

// #region edit
// EditInput carries the fields to change. Nil fields are left alone.
type EditInput struct {
	SegmentID       string
	FocusScore      *int
	Completed       *bool
	Description     *string
	Notes           *string
	DurationMinutes *int
}

// EditResult lists what changed. Changes is empty for a no-op.
type EditResult struct {
	Segment store.Segment `json:"segment"`
	Changes []string      `json:"changes"`
	Message string        `json:"message"`
}

// Edit changes a segment dated today. Notes are appended, never replaced.
func (s *Service) Edit(ctx context.Context, in EditInput) (*EditResult, error) {
	if strings.TrimSpace(in.SegmentID) == "" {
		return nil, apperr.Validation("segment_id is required")
	}
	seg, err := s.store.GetSegment(ctx, in.SegmentID)
	if err != nil {
		return nil, s.dependency(err, "failed to load segment")
	}
	if seg == nil {
		return nil, apperr.NotFound("Segment not found: %s", in.SegmentID)
	}
	if today := s.zone.Today(); seg.Date != today {
		return nil, apperr.Policy("Can only edit segments from today (%s). This segment is from %s.", today, seg.Date)
	}
	if in.FocusScore != nil {
		if err := validateFocus(*in.FocusScore); err != nil {
			return nil, err
		}
	}
	if in.DurationMinutes != nil {
		if err := validateDuration(*in.DurationMinutes); err != nil {
			return nil, err
		}
	}

	updated := *seg
	changes := []string{}

	if in.FocusScore != nil && (seg.FocusScore == nil || *seg.FocusScore != *in.FocusScore) {
		changes = append(changes, fmt.Sprintf("focus_score: %s → %d", intString(seg.FocusScore), *in.FocusScore))
		v := *in.FocusScore
		updated.FocusScore = &v
	}
	if in.Completed != nil && *in.Completed != seg.Completed {
		changes = append(changes, fmt.Sprintf("completed: %t → %t", seg.Completed, *in.Completed))
		updated.Completed = *in.Completed
	}
	if in.Description != nil && !sameString(seg.Description, *in.Description) {
		changes = append(changes, "description updated")
		v := *in.Description
		updated.Description = &v
	}
	if n := blankToNil(in.Notes); n != nil && !sameString(seg.Notes, *n) {
		changes = append(changes, "notes updated")
		updated.Notes = appendNotes(seg.Notes, *n, EditMarker)
	}
	// open segments have no end to move
	if in.DurationMinutes != nil && seg.EndTime != nil && seg.DurationMinutes(s.zone.Now()) != *in.DurationMinutes {
		end := seg.StartTime.Add(time.Duration(*in.DurationMinutes) * time.Minute)
		updated.EndTime = &end
		changes = append(changes, fmt.Sprintf("duration adjusted to %d minutes", *in.DurationMinutes))
	}

	if len(changes) == 0 {
		return &EditResult{Segment: *seg, Changes: changes, Message: "No changes made - all values are the same."}, nil
	}

	saved, err := s.store.UpdateSegment(ctx, updated)
	if err != nil {
		return nil, s.dependency(err, "failed to update segment")
	}

	s.logger.Info("segment edited",
		zap.String("segment_id", saved.ID),
		zap.Strings("changes", changes),
	)
	return &EditResult{
		Segment: saved,
		Changes: changes,
		Message: fmt.Sprintf("Segment updated: %s.", strings.Join(changes, ", ")),
	}, nil
}

// #endregion edit

func intString(v *int) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(*v)
}

func sameString(current *string, v string) bool {
	if current == nil {
		return v == ""
	}
	return *current == v
}
