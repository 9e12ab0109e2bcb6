// Package replay runs scripted tool sequences against a fresh store and
// re-evaluates logged plan decisions under a different guardrail config.
package replay

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/app"
	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/config"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/planner"
	"github.com/danielpatrickdp/veto/internal/store"
)

var countableTables = map[string]bool{
	"state_logs":      true,
	"segments":        true,
	"daily_summaries": true,
	"refusal_events":  true,
	"captures":        true,
	"decision_log":    true,
}

// #region types
// StepResult is the outcome of one executed step.
type StepResult struct {
	StepID    string    `json:"step_id"`
	Tool      string    `json:"tool"`
	At        time.Time `json:"at"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Passed    bool      `json:"passed"`
	Problems  []string  `json:"problems,omitempty"`
	Output    any       `json:"output,omitempty"`
}

// Summary aggregates a fixture run.
type Summary struct {
	Description string       `json:"description"`
	Total       int          `json:"total"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	Results     []StepResult `json:"results"`
}

// #endregion types

// #region run
// Run executes fx against a new store at dbPath. Step failures are reported
// in the summary; the error return is for setup problems only.
func Run(ctx context.Context, fx *Fixture, dbPath string, logger *zap.Logger) (*Summary, error) {
	cfg := config.DefaultConfig()
	cfg.DBPath = dbPath
	if fx.Timezone != "" {
		cfg.Timezone = fx.Timezone
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}
	base, err := time.ParseInLocation("2006-01-02", fx.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("parse fixture date: %w", err)
	}

	now := base.Add(9 * time.Hour)
	a, err := app.Open(cfg, logger, app.WithClock(func() time.Time { return now }))
	if err != nil {
		return nil, err
	}
	defer a.Close()

	sum := &Summary{Description: fx.Description}
	vars := map[string]any{}
	for i, step := range fx.Steps {
		reps := step.Repeat
		if reps < 1 {
			reps = 1
		}
		id := step.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		for r := 0; r < reps; r++ {
			switch {
			case step.At != "":
				clock, _ := time.Parse("15:04", step.At)
				d := base.AddDate(0, 0, step.Day+r)
				now = time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
			case r == 0:
				now = now.Add(time.Duration(step.AdvanceMinutes) * time.Minute)
			default:
				now = now.AddDate(0, 0, 1)
			}

			stepID := id
			if reps > 1 {
				stepID = fmt.Sprintf("%s#%d", id, r+1)
			}
			res := runStep(ctx, a, step, stepID, now, vars)
			sum.Results = append(sum.Results, res)
			sum.Total++
			if res.Passed {
				sum.Passed++
			} else {
				sum.Failed++
			}
		}
	}
	return sum, nil
}

func runStep(ctx context.Context, a *app.App, step FixtureStep, stepID string, at time.Time, vars map[string]any) StepResult {
	res := StepResult{StepID: stepID, Tool: step.Tool, At: at}
	out, callErr := a.Tools.Call(ctx, step.Tool, substitute(step.Arguments, vars))

	var payload any
	if callErr == nil {
		var err error
		if payload, err = normalize(out); err != nil {
			res.Problems = append(res.Problems, fmt.Sprintf("encode output: %v", err))
		}
		res.Output = payload
		for name, path := range step.Save {
			v, ok := lookup(payload, path)
			if !ok {
				res.Problems = append(res.Problems, fmt.Sprintf("save %s: %s missing", name, path))
				continue
			}
			vars[name] = v
		}
	} else {
		res.ErrorKind = string(apperr.KindOf(callErr))
	}

	want := step.Expect
	if want == nil {
		want = &FixtureExpect{}
	}
	switch {
	case callErr != nil && want.ErrorKind == "":
		res.Problems = append(res.Problems, fmt.Sprintf("unexpected %s error: %v", res.ErrorKind, callErr))
	case callErr != nil && want.ErrorKind != res.ErrorKind:
		res.Problems = append(res.Problems, fmt.Sprintf("expected %s error, got %s: %v", want.ErrorKind, res.ErrorKind, callErr))
	case callErr == nil && want.ErrorKind != "":
		res.Problems = append(res.Problems, fmt.Sprintf("expected %s error, got success", want.ErrorKind))
	}

	for path, expected := range want.Fields {
		got, ok := lookup(payload, path)
		if !ok {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: missing", path))
			continue
		}
		if diff := cmp.Diff(expected, got); diff != "" {
			res.Problems = append(res.Problems, fmt.Sprintf("%s (-want +got):\n%s", path, diff))
		}
	}

	message := ""
	if callErr != nil {
		message = callErr.Error()
	} else if m, ok := lookup(payload, "message"); ok {
		message, _ = m.(string)
	}
	for _, fragment := range want.MessageContains {
		if !strings.Contains(message, fragment) {
			res.Problems = append(res.Problems, fmt.Sprintf("message missing %q: %s", fragment, message))
		}
	}

	for table, n := range want.Tables {
		got, err := countRows(ctx, a.Store.DB(), table)
		if err != nil {
			res.Problems = append(res.Problems, err.Error())
			continue
		}
		if got != n {
			res.Problems = append(res.Problems, fmt.Sprintf("%s: expected %d rows, got %d", table, n, got))
		}
	}

	res.Passed = len(res.Problems) == 0
	return res
}

// #endregion run

// #region reevaluate
// Reevaluation compares one logged plan decision against a replayed one.
type Reevaluation struct {
	CreatedAt    time.Time `json:"created_at"`
	Date         string    `json:"date"`
	Recorded     string    `json:"recorded"`
	RecordedRule string    `json:"recorded_rule,omitempty"`
	Replayed     string    `json:"replayed"`
	ReplayedRule string    `json:"replayed_rule,omitempty"`
	Changed      bool      `json:"changed"`
}

// Reevaluate re-runs the guardrail over the newest limit decision_log rows
// using the inputs captured at decision time and the given thresholds.
// no_state rows carry no inputs and are skipped.
func Reevaluate(ctx context.Context, db *sql.DB, conf confidence.Config, guard guardrail.Config, limit int) ([]Reevaluation, error) {
	entries, err := logging.RecentDecisions(ctx, db, limit)
	if err != nil {
		return nil, err
	}
	g := guardrail.New(guard)

	var out []Reevaluation
	for _, e := range entries {
		if e.Decision == planner.DecisionNoState || e.EvidenceJSON == "" {
			continue
		}
		var rec logging.DecisionRecord
		if err := json.Unmarshal([]byte(e.EvidenceJSON), &rec); err != nil {
			return nil, fmt.Errorf("decode decision %s: %w", e.CreatedAt.Format(time.RFC3339), err)
		}

		in := guardrail.Input{
			Energy:       rec.Energy,
			Focus:        rec.Focus,
			Phase:        dayclock.Phase(rec.Phase),
			IntendedType: store.SegmentType(rec.IntendedType),
			Active:       conf.Active(rec.Confidence),
		}
		if rec.SimilarAttempts > 0 {
			in.Evidence.SimilarStateOutcomes = &guardrail.SimilarOutcomes{Attempts: rec.SimilarAttempts, PoorOutcomeRate: rec.SimilarPoorRate}
		}
		if rec.Overrides > 0 {
			in.Evidence.OverrideHistory = &guardrail.OverrideHistory{RecentOverrides: rec.Overrides, PoorOutcomeRate: rec.OverridePoor}
		}
		d := g.Evaluate(in)

		replayed := planner.DecisionAllow
		switch {
		case !d.Active:
			replayed = planner.DecisionInactive
		case d.Refusing:
			replayed = planner.DecisionRefuse
		}
		out = append(out, Reevaluation{
			CreatedAt:    e.CreatedAt,
			Date:         e.Date,
			Recorded:     e.Decision,
			RecordedRule: e.Rule,
			Replayed:     replayed,
			ReplayedRule: string(d.Rule),
			Changed:      replayed != e.Decision || string(d.Rule) != e.Rule,
		})
	}
	return out, nil
}

// #endregion reevaluate

// #region helpers
func normalize(v any) (any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// substitute copies args, replacing "$name" strings bound in vars.
func substitute(args map[string]any, vars map[string]any) map[string]any {
	if len(args) == 0 {
		return args
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "$") {
			if bound, ok := vars[s[1:]]; ok {
				v = bound
			}
		}
		out[k] = v
	}
	return out
}

// lookup walks a dotted path through decoded JSON. Numeric segments index arrays.
func lookup(v any, path string) (any, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func countRows(ctx context.Context, db *sql.DB, table string) (int, error) {
	if !countableTables[table] {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// #endregion helpers
