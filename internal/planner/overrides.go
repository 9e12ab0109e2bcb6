package planner

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region record-override
// RecordOverride marks a refusal as overridden. When segmentID is given the
// segment is linked to the refusal and flagged as an override in the same
// transaction.
func (s *Service) RecordOverride(ctx context.Context, refusalID string, segmentID *string) (*OverrideResult, error) {
	ev, err := s.loadRefusal(ctx, refusalID)
	if err != nil {
		return nil, err
	}

	var seg *store.Segment
	if segmentID != nil && strings.TrimSpace(*segmentID) != "" {
		seg, err = s.store.GetSegment(ctx, *segmentID)
		if err != nil {
			return nil, s.dependency(err, "failed to load segment")
		}
		if seg == nil {
			return nil, apperr.NotFound("Segment not found: %s", *segmentID)
		}
		seg.OverrideFlag = true
		ev.SegmentID = &seg.ID
	}

	saved, err := s.store.RecordOverride(ctx, *ev)
	if err != nil {
		return nil, s.dependency(err, "failed to record override")
	}

	fields := []zap.Field{zap.String("refusal_id", saved.ID)}
	msg := "Override recorded. Assess the outcome later with veto_assess_override."
	if seg != nil {
		fields = append(fields, zap.String("segment_id", seg.ID))
		msg = fmt.Sprintf("Override recorded and linked to segment %s. Assess the outcome later with veto_assess_override.", seg.ID)
	}
	s.logger.Info("override recorded", fields...)
	return &OverrideResult{Refusal: saved, Segment: seg, Message: msg}, nil
}

// #endregion record-override

// #region assess-override
// AssessOverride records how an overridden refusal turned out.
func (s *Service) AssessOverride(ctx context.Context, refusalID string, quality store.OutcomeQuality) (*OverrideResult, error) {
	if !quality.Valid() {
		return nil, apperr.Validation("outcome_quality must be good, neutral or poor")
	}
	ev, err := s.loadRefusal(ctx, refusalID)
	if err != nil {
		return nil, err
	}
	if !ev.UserOverrode {
		return nil, apperr.Policy("Refusal %s was not overridden; record the override first with veto_record_override.", ev.ID)
	}

	ev.OutcomeQuality = &quality
	saved, err := s.store.UpdateRefusal(ctx, *ev)
	if err != nil {
		return nil, s.dependency(err, "failed to record override outcome")
	}
	s.logger.Info("override assessed",
		zap.String("refusal_id", saved.ID),
		zap.String("outcome_quality", string(quality)),
	)
	return &OverrideResult{
		Refusal: saved,
		Message: fmt.Sprintf("Override outcome recorded as %s.", quality),
	}, nil
}

// #endregion assess-override

func (s *Service) loadRefusal(ctx context.Context, id string) (*store.RefusalEvent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("refusal_id is required")
	}
	ev, err := s.store.GetRefusal(ctx, id)
	if err != nil {
		return nil, s.dependency(err, "failed to load refusal")
	}
	if ev == nil {
		return nil, apperr.NotFound("Refusal not found: %s", id)
	}
	return ev, nil
}
