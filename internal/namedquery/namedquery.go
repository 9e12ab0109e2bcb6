// Package namedquery exposes a fixed allowlist of parameterized read-only
// queries over the veto tables. No free-form SQL is accepted.
package namedquery

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

const (
	DefaultDaysBack = 14
	MaxDaysBack     = 90
	DefaultLimit    = 50
	MaxLimit        = 200
)

// Params bound a query. Zero values take the defaults.
type Params struct {
	DaysBack int
	Limit    int
}

// Result carries the rows of one named query.
type Result struct {
	Name     string `json:"name"`
	DaysBack int    `json:"days_back"`
	Limit    int    `json:"limit"`
	Count    int    `json:"count"`
	Rows     any    `json:"rows"`
	Message  string `json:"message"`
}

// #region registry
type query struct {
	description string
	run         func(ctx context.Context, st *store.Store, since string, limit int) (any, int, error)
}

var queries = map[string]query{
	"recent_state_logs": {
		description: "State logs dated within the window, newest first.",
		run: func(ctx context.Context, st *store.Store, since string, limit int) (any, int, error) {
			rows, err := st.StateLogsSince(ctx, since, limit)
			return orEmpty(rows), len(rows), err
		},
	},
	"recent_segments": {
		description: "Segments dated within the window, newest first.",
		run: func(ctx context.Context, st *store.Store, since string, limit int) (any, int, error) {
			rows, err := st.SegmentsSince(ctx, since, limit)
			return orEmpty(rows), len(rows), err
		},
	},
	"recent_refusals": {
		description: "Guardrail refusals dated within the window, newest first.",
		run: func(ctx context.Context, st *store.Store, since string, limit int) (any, int, error) {
			rows, err := st.RefusalsSince(ctx, since, false, limit)
			return orEmpty(rows), len(rows), err
		},
	},
	"daily_summaries": {
		description: "Daily summaries dated within the window, newest first.",
		run: func(ctx context.Context, st *store.Store, since string, limit int) (any, int, error) {
			rows, err := st.DailySummariesSince(ctx, since, limit)
			return orEmpty(rows), len(rows), err
		},
	},
	"pending_captures": {
		description: "Pending captures regardless of date, oldest first.",
		run: func(ctx context.Context, st *store.Store, _ string, limit int) (any, int, error) {
			rows, err := st.PendingCaptures(ctx, limit)
			return orEmpty(rows), len(rows), err
		},
	},
}

// Names lists the allowlisted queries in sorted order.
func Names() []string {
	out := make([]string, 0, len(queries))
	for name := range queries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Describe returns the description of a named query.
func Describe(name string) (string, bool) {
	q, ok := queries[name]
	return q.description, ok
}

// #endregion registry

// #region service
// Service runs named queries against the store.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	logger *zap.Logger
}

// NewService wires a named query service.
func NewService(st *store.Store, zone *dayclock.Zone, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, logger: logging.OrNop(logger)}
}

// Run executes the named query.
func (s *Service) Run(ctx context.Context, name string, p Params) (*Result, error) {
	q, ok := queries[name]
	if !ok {
		return nil, apperr.NotFound("Unknown named query: %s", name)
	}
	days, limit := p.DaysBack, p.Limit
	if days == 0 {
		days = DefaultDaysBack
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if days < 1 || days > MaxDaysBack {
		return nil, apperr.Validation("days_back must be between 1 and %d", MaxDaysBack)
	}
	if limit < 1 || limit > MaxLimit {
		return nil, apperr.Validation("limit must be between 1 and %d", MaxLimit)
	}

	rows, n, err := q.run(ctx, s.store, s.zone.DaysAgo(days), limit)
	if err != nil {
		s.logger.Warn("named query failed", zap.String("query", name), zap.Error(err))
		return nil, apperr.Dependency(err, "failed to run %s", name)
	}
	s.logger.Debug("named query", zap.String("query", name), zap.Int("rows", n))
	return &Result{
		Name:     name,
		DaysBack: days,
		Limit:    limit,
		Count:    n,
		Rows:     rows,
		Message:  fmt.Sprintf("%s: %d row(s)", name, n),
	}, nil
}

// #endregion service

func orEmpty[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
