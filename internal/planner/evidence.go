package planner

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/store"
)

// poorFocusBelow marks a deep segment outcome as poor.
const poorFocusBelow = 5

// #region gather
// gather computes confidence and both evidence sets concurrently.
func (s *Service) gather(ctx context.Context, energy, focus int) (confidence.Factors, guardrail.Evidence, error) {
	var (
		factors   confidence.Factors
		similar   *guardrail.SimilarOutcomes
		overrides *guardrail.OverrideHistory
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		factors, err = s.engine.Compute(gctx, energy, focus)
		return err
	})
	g.Go(func() error {
		var err error
		similar, err = s.similarOutcomes(gctx, energy, focus)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.overrideHistory(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return confidence.Factors{}, guardrail.Evidence{}, err
	}
	return factors, guardrail.Evidence{SimilarStateOutcomes: similar, OverrideHistory: overrides}, nil
}

// #endregion gather

// #region evidence
// similarOutcomes scores deep segments whose linked state log is inside the
// similarity window. Nil when there are no such segments.
func (s *Service) similarOutcomes(ctx context.Context, energy, focus int) (*guardrail.SimilarOutcomes, error) {
	w := s.engine.Config().SimilarWindow
	scores, err := s.store.ScoresForStates(ctx, store.Deep, store.Window(energy, w), store.Window(focus, w))
	if err != nil {
		return nil, fmt.Errorf("similar outcomes: %w", err)
	}
	if len(scores) == 0 {
		return nil, nil
	}
	poor := 0
	for _, v := range scores {
		if v < poorFocusBelow {
			poor++
		}
	}
	return &guardrail.SimilarOutcomes{
		Attempts:        len(scores),
		PoorOutcomeRate: float64(poor) / float64(len(scores)),
	}, nil
}

// overrideHistory summarizes overridden refusals in the recent window.
func (s *Service) overrideHistory(ctx context.Context) (*guardrail.OverrideHistory, error) {
	refusals, err := s.store.RefusalsSince(ctx, s.zone.DaysAgo(s.config.OverrideDaysBack), true, 0)
	if err != nil {
		return nil, fmt.Errorf("override history: %w", err)
	}
	if len(refusals) == 0 {
		return nil, nil
	}
	poor := 0
	for _, r := range refusals {
		if r.OutcomeQuality != nil && *r.OutcomeQuality == store.OutcomePoor {
			poor++
		}
	}
	return &guardrail.OverrideHistory{
		RecentOverrides: len(refusals),
		PoorOutcomeRate: float64(poor) / float64(len(refusals)),
	}, nil
}

// #endregion evidence
