package replay

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/planner"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region helpers
func runFixture(t *testing.T, fx *Fixture) (*Summary, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "veto.db")
	sum, err := Run(context.Background(), fx, dbPath, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return sum, dbPath
}

func reportFailures(t *testing.T, sum *Summary) {
	t.Helper()
	for _, r := range sum.Results {
		if !r.Passed {
			t.Errorf("step %s (%s): %s", r.StepID, r.Tool, strings.Join(r.Problems, "; "))
		}
	}
}

// #endregion helpers

// TestFixtures runs every scripted scenario under testdata. Any drift in
// tool payloads, error kinds or persisted rows shows up here.
func TestFixtures(t *testing.T) {
	fixtures, names, err := LoadDir("testdata")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	for _, name := range names {
		fx := fixtures[name]
		t.Run(name, func(t *testing.T) {
			sum, _ := runFixture(t, fx)
			if sum.Total == 0 {
				t.Fatal("no steps executed")
			}
			reportFailures(t, sum)
		})
	}
}

func TestRun_RepeatExpandsSteps(t *testing.T) {
	fx := &Fixture{
		Date: "2026-03-01",
		Steps: []FixtureStep{
			{ID: "assess", At: "09:00", Repeat: 3, Tool: "veto_assess", Arguments: map[string]any{"energy": 5, "focus": 5}},
			{ID: "patterns", Day: 2, At: "12:00", Tool: "veto_query_patterns",
				Arguments: map[string]any{"query_type": "confidence_factors"},
				Expect:    &FixtureExpect{Fields: map[string]any{"data.days_of_data": float64(3)}}},
		},
	}
	sum, _ := runFixture(t, fx)
	if sum.Total != 4 || sum.Passed != 4 {
		reportFailures(t, sum)
		t.Fatalf("expected 4/4 passed, got %d/%d", sum.Passed, sum.Total)
	}
	if sum.Results[2].StepID != "assess#3" {
		t.Errorf("expected repeat suffix, got %s", sum.Results[2].StepID)
	}
	if got := sum.Results[2].At.Format("2006-01-02 15:04"); got != "2026-03-03 09:00" {
		t.Errorf("expected third repeat on day 2, got %s", got)
	}
}

func TestRun_ReportsMismatches(t *testing.T) {
	fx := &Fixture{
		Date: "2026-03-10",
		Steps: []FixtureStep{
			{At: "09:00", Tool: "veto_end_segment", Arguments: map[string]any{"focus_score": 5, "completed": true}},
			{Tool: "veto_plan", Expect: &FixtureExpect{ErrorKind: "not_found"}},
			{Tool: "veto_plan", Expect: &FixtureExpect{
				Fields:          map[string]any{"decision": "allow", "nope.deeper": 1.0},
				MessageContains: []string{"Deep work suitable"},
				Tables:          map[string]int{"decision_log": 7},
			}},
		},
	}
	sum, _ := runFixture(t, fx)
	if sum.Failed != 3 || sum.Passed != 0 {
		t.Fatalf("expected every step to fail, got %+v", sum)
	}
	if !strings.Contains(sum.Results[0].Problems[0], "unexpected not_found error") {
		t.Errorf("unexpected problem %q", sum.Results[0].Problems[0])
	}
	if !strings.Contains(sum.Results[1].Problems[0], "got success") {
		t.Errorf("unexpected problem %q", sum.Results[1].Problems[0])
	}
	if n := len(sum.Results[2].Problems); n != 4 {
		t.Errorf("expected 4 problems, got %d: %v", n, sum.Results[2].Problems)
	}
}

func TestRun_BadTimezone(t *testing.T) {
	fx := &Fixture{Timezone: "Mars/Olympus", Date: "2026-03-10", Steps: []FixtureStep{{Tool: "veto_plan"}}}
	if _, err := Run(context.Background(), fx, filepath.Join(t.TempDir(), "veto.db"), nil); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestLookup(t *testing.T) {
	doc := map[string]any{
		"a": map[string]any{"b": []any{"x", map[string]any{"c": 2.0}}},
	}
	if v, ok := lookup(doc, "a.b.1.c"); !ok || v != 2.0 {
		t.Errorf("expected 2, got %v %v", v, ok)
	}
	for _, path := range []string{"a.z", "a.b.5", "a.b.x", "a.b.0.c"} {
		if _, ok := lookup(doc, path); ok {
			t.Errorf("expected %s to be missing", path)
		}
	}
}

func TestReevaluate(t *testing.T) {
	fx, err := LoadFixture(filepath.Join("testdata", "refusal_override.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	sum, dbPath := runFixture(t, fx)
	reportFailures(t, sum)

	st, err := store.NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	same, err := Reevaluate(ctx, st.DB(), confidence.DefaultConfig(), guardrail.DefaultConfig(), 50)
	if err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	if len(same) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(same))
	}
	for _, r := range same {
		if r.Changed {
			t.Errorf("unchanged config should replay identically: %+v", r)
		}
	}

	// a stricter activation threshold turns the refusal into an observation
	strict := confidence.DefaultConfig()
	strict.ActivationThreshold = 0.9
	changed, err := Reevaluate(ctx, st.DB(), strict, guardrail.DefaultConfig(), 50)
	if err != nil {
		t.Fatalf("Reevaluate: %v", err)
	}
	var refusal *Reevaluation
	for i := range changed {
		if changed[i].Recorded == planner.DecisionRefuse {
			refusal = &changed[i]
		}
	}
	if refusal == nil || !refusal.Changed || refusal.Replayed != planner.DecisionInactive || refusal.ReplayedRule != "" {
		t.Fatalf("expected refusal to replay as inactive, got %+v", refusal)
	}
}
