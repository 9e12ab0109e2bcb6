// Package app wires the store, clock and domain services into the tool
// registry shared by every entry point.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/assess"
	"github.com/danielpatrickdp/veto/internal/capture"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/config"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/namedquery"
	"github.com/danielpatrickdp/veto/internal/patterns"
	"github.com/danielpatrickdp/veto/internal/planner"
	"github.com/danielpatrickdp/veto/internal/segment"
	"github.com/danielpatrickdp/veto/internal/store"
	"github.com/danielpatrickdp/veto/internal/summary"
	"github.com/danielpatrickdp/veto/internal/tools"
)

// App owns the store and exposes the wired registry.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Zone     *dayclock.Zone
	Services tools.Services
	Tools    *tools.Registry
	Logger   *zap.Logger
}

// Option adjusts wiring.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open opens the store at cfg.DBPath and wires every service.
func Open(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.OrNop(logger)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}
	zone := dayclock.New(loc, o.now)

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	engine := confidence.NewEngine(st, ConfidenceConfig(cfg))
	guard := guardrail.New(GuardrailConfig(cfg))
	svc := tools.Services{
		Assess:     assess.NewService(st, zone, engine, logger.Named("assess")),
		Segments:   segment.NewService(st, zone, logger.Named("segment")),
		Planner:    planner.NewService(st, zone, engine, guard, planner.Config{OverrideDaysBack: cfg.Guardrail.OverrideDaysBack}, logger.Named("planner")),
		Summary:    summary.NewService(st, zone, logger.Named("summary")),
		Patterns:   patterns.NewService(st, zone, engine, patterns.Config{DefaultDaysBack: cfg.Patterns.DefaultDaysBack, MaxDaysBack: cfg.Patterns.MaxDaysBack}, logger.Named("patterns")),
		Captures:   capture.NewService(st, zone, logger.Named("capture")),
		NamedQuery: namedquery.NewService(st, zone, logger.Named("namedquery")),
	}

	logger.Info("veto ready",
		zap.String("db", cfg.DBPath),
		zap.String("timezone", cfg.Timezone),
	)
	return &App{
		Config:   cfg,
		Store:    st,
		Zone:     zone,
		Services: svc,
		Tools:    tools.NewCatalog(svc, logger.Named("tools")),
		Logger:   logger,
	}, nil
}

// Close closes the store.
func (a *App) Close() error {
	return a.Store.Close()
}

// ConfidenceConfig maps file config onto the engine's settings.
func ConfidenceConfig(cfg *config.Config) confidence.Config {
	c := cfg.Confidence
	return confidence.Config{
		DaysSaturation:      c.DaysSaturation,
		SimilarSaturation:   c.SimilarSaturation,
		OutcomeSaturation:   c.OutcomeSaturation,
		MinOutcomeSamples:   c.MinOutcomeSamples,
		SimilarWindow:       c.SimilarWindow,
		ActivationThreshold: c.ActivationThreshold,
	}
}

// GuardrailConfig maps file config onto the refusal thresholds.
func GuardrailConfig(cfg *config.Config) guardrail.Config {
	g := cfg.Guardrail
	return guardrail.Config{
		MinAttempts:       g.MinAttempts,
		PoorRateThreshold: g.PoorRateThreshold,
		DipEnergyBelow:    g.DipEnergyBelow,
		LowEnergyMax:      g.LowEnergyMax,
		LowFocusMax:       g.LowFocusMax,
	}
}
