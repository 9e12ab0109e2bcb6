package confidence

import (
	"context"
	"fmt"
	"math"

	"github.com/danielpatrickdp/veto/internal/store"
)

// #region engine

// Engine recomputes confidence from the store on every call.
type Engine struct {
	src    Source
	config Config
}

// NewEngine creates an Engine reading from src.
func NewEngine(src Source, config Config) *Engine {
	return &Engine{src: src, config: config}
}

// Config returns the engine's thresholds.
func (e *Engine) Config() Config {
	return e.config
}

// #endregion engine

// #region compute

// Compute returns the factors for a query state, using the ±window around
// energy and focus for similarity.
func (e *Engine) Compute(ctx context.Context, energy, focus int) (Factors, error) {
	w := e.config.SimilarWindow
	return e.ComputeIn(ctx, store.Window(energy, w), store.Window(focus, w))
}

// ComputeIn returns the factors with similarity counted over explicit ranges.
func (e *Engine) ComputeIn(ctx context.Context, energy, focus store.Range) (Factors, error) {
	days, err := e.src.CountStateLogDays(ctx)
	if err != nil {
		return Factors{}, fmt.Errorf("days of data: %w", err)
	}
	similar, err := e.src.CountStateLogsIn(ctx, energy, focus)
	if err != nil {
		return Factors{}, fmt.Errorf("similar states: %w", err)
	}
	scored, err := e.src.CountScoredSegments(ctx, store.Deep)
	if err != nil {
		return Factors{}, fmt.Errorf("scored deep segments: %w", err)
	}
	return e.config.Factors(days, similar, scored), nil
}

// ComputeDaysOnly returns the factors with only data volume known.
// Similarity and outcome are left at zero, so Level is 0.
func (e *Engine) ComputeDaysOnly(ctx context.Context) (Factors, error) {
	days, err := e.src.CountStateLogDays(ctx)
	if err != nil {
		return Factors{}, fmt.Errorf("days of data: %w", err)
	}
	scored, err := e.src.CountScoredSegments(ctx, store.Deep)
	if err != nil {
		return Factors{}, fmt.Errorf("scored deep segments: %w", err)
	}
	return e.config.Factors(days, 0, scored), nil
}

// View returns the Assess confidence: data volume alone decides the level.
func (e *Engine) View(ctx context.Context) (View, error) {
	days, err := e.src.CountStateLogDays(ctx)
	if err != nil {
		return View{}, fmt.Errorf("days of data: %w", err)
	}
	level := round2(math.Min(ratio(days, e.config.DaysSaturation), 1))
	status := StatusFor(level)
	// high is reserved for a full data-volume window
	if status == StatusHigh && days < e.config.DaysSaturation {
		status = StatusMedium
	}
	return View{Level: level, Status: status, DaysOfData: days}, nil
}

// #endregion compute

// #region formula

// Factors applies the formula to raw counts.
func (c Config) Factors(days, similar, scoredOutcomes int) Factors {
	outcome := c.OutcomeStrength(scoredOutcomes)
	return Factors{
		DaysOfData:         days,
		SimilarStateCount:  similar,
		OutcomeCorrelation: outcome,
		Level:              c.Level(days, similar, outcome),
	}
}

// OutcomeStrength is 0 below MinOutcomeSamples, else n/OutcomeSaturation capped at 1.
func (c Config) OutcomeStrength(n int) float64 {
	if n < c.MinOutcomeSamples {
		return 0
	}
	return math.Min(ratio(n, c.OutcomeSaturation), 1)
}

// Level is the minimum of the three saturating factors, rounded to 2 decimals.
func (c Config) Level(days, similar int, outcome float64) float64 {
	level := math.Min(ratio(days, c.DaysSaturation), ratio(similar, c.SimilarSaturation))
	level = math.Min(level, outcome)
	return round2(clamp(level))
}

// Active reports whether the guardrail may refuse at this level.
func (c Config) Active(level float64) bool {
	return level >= c.ActivationThreshold
}

// StatusFor labels a level.
func StatusFor(level float64) Status {
	switch {
	case level < 0.3:
		return StatusBuilding
	case level < 0.5:
		return StatusLow
	case level < 0.7:
		return StatusMedium
	default:
		return StatusHigh
	}
}

// #endregion formula

// #region helpers

func ratio(n, saturation int) float64 {
	if saturation <= 0 {
		return 0
	}
	return float64(n) / float64(saturation)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
