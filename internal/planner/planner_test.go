package planner

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/guardrail"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region helpers
type fixture struct {
	svc   *Service
	store *store.Store
	zone  *dayclock.Zone
	now   time.Time
}

func newFixture(t *testing.T, hour int) *fixture {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "veto.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	f := &fixture{store: st, now: time.Date(2026, 3, 2, hour, 0, 0, 0, loc)}
	f.zone = dayclock.New(loc, func() time.Time { return f.now })
	engine := confidence.NewEngine(st, confidence.DefaultConfig())
	f.svc = NewService(st, f.zone, engine, guardrail.New(guardrail.DefaultConfig()), DefaultConfig(), nil)
	return f
}

// seedHistory writes one state log per day for the past days (today last, so
// it is the latest) plus scored deep segments. When linked, every segment
// points at the oldest log.
func (f *fixture) seedHistory(t *testing.T, days, energy, focus, segments, score int, linked bool) string {
	t.Helper()
	ctx := context.Background()
	var oldest string
	for i := days - 1; i >= 0; i-- {
		at := f.now.AddDate(0, 0, -i).Add(-time.Hour)
		log, err := f.store.InsertStateLog(ctx, store.StateLog{
			CreatedAt: at, Date: f.zone.DateOf(at), Energy: energy, Focus: focus,
			CircadianPhase: f.zone.Phase(at),
		})
		if err != nil {
			t.Fatalf("seed state log: %v", err)
		}
		if oldest == "" {
			oldest = log.ID
		}
	}
	for i := 0; i < segments; i++ {
		start := f.now.AddDate(0, 0, -(i%days)-1)
		end := start.Add(time.Hour)
		seg := store.Segment{
			CreatedAt: start, Date: f.zone.DateOf(start), IntendedType: store.Deep,
			StartTime: start, EndTime: &end, Completed: true, FocusScore: &score,
		}
		if linked {
			seg.StateLogID = &oldest
		}
		if _, err := f.store.InsertSegment(ctx, seg); err != nil {
			t.Fatalf("seed segment: %v", err)
		}
	}
	return oldest
}

func (f *fixture) count(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := f.store.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// #endregion helpers

// #region plan-tests
func TestPlan_NoStateToday(t *testing.T) {
	f := newFixture(t, 9)
	res, err := f.svc.Plan(context.Background(), "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Recommendation != store.Shallow || res.Guardrail.Active || res.CurrentState != nil {
		t.Fatalf("unexpected no-state result %+v", res)
	}
	if res.RefusalID != nil || f.count(t, "refusal_events") != 0 {
		t.Fatal("no refusal may be created without state")
	}

	decisions, err := logging.RecentDecisions(context.Background(), f.store.DB(), 5)
	if err != nil || len(decisions) != 1 || decisions[0].Decision != DecisionNoState {
		t.Fatalf("expected one no_state decision, got %+v (%v)", decisions, err)
	}
}

func TestPlan_InactiveObservesOnly(t *testing.T) {
	f := newFixture(t, 9)
	f.seedHistory(t, 3, 3, 3, 0, 0, false)

	res, err := f.svc.Plan(context.Background(), store.Deep)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Guardrail.Active || res.Guardrail.Refusing || res.Decision != DecisionInactive {
		t.Fatalf("expected inactive guardrail, got %+v", res.Guardrail)
	}
	if res.Recommendation != store.Deep {
		t.Fatalf("inactive guardrail recommends deep, got %s", res.Recommendation)
	}
	if !strings.HasPrefix(res.Message, "Guardrails inactive (confidence: 0%, need 70%).") ||
		!strings.HasSuffix(res.Message, "shallow work may be more effective.") {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if f.count(t, "refusal_events") != 0 {
		t.Fatal("inactive guardrail must not refuse")
	}
}

func TestPlan_RefusesLowEnergyFocus(t *testing.T) {
	f := newFixture(t, 9)
	f.seedHistory(t, 14, 3, 3, 20, 7, false)

	res, err := f.svc.Plan(context.Background(), "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	g := res.Guardrail
	if !g.Active || !g.Refusing || g.Rule != guardrail.RuleLowEnergyFocus {
		t.Fatalf("expected low energy/focus refusal, got %+v", g)
	}
	if g.Confidence != 1 || g.Factors.DaysOfData != 14 || g.Factors.SimilarStateCount != 14 {
		t.Fatalf("unexpected factors %+v", g.Factors)
	}
	if g.Evidence.SimilarStateOutcomes != nil {
		t.Fatal("unlinked segments give no similar-state evidence")
	}
	if res.Recommendation != store.Shallow || res.RefusalID == nil {
		t.Fatalf("expected shallow with refusal id, got %+v", res)
	}
	if !strings.Contains(res.Message, "[O] Override") {
		t.Fatalf("refusal message should list options: %q", res.Message)
	}

	ev, err := f.store.GetRefusal(context.Background(), *res.RefusalID)
	if err != nil || ev == nil {
		t.Fatalf("refusal not stored: %v", err)
	}
	if ev.RefusalType != store.RefusalDeepWorkBlock || ev.ConfidenceAtRefusal != 1 || ev.UserOverrode || ev.OutcomeQuality != nil {
		t.Fatalf("unexpected refusal %+v", ev)
	}

	decisions, _ := logging.RecentDecisions(context.Background(), f.store.DB(), 1)
	if decisions[0].Decision != DecisionRefuse || decisions[0].Rule != string(guardrail.RuleLowEnergyFocus) {
		t.Fatalf("unexpected decision row %+v", decisions[0])
	}
	var rec logging.DecisionRecord
	if err := json.Unmarshal([]byte(decisions[0].EvidenceJSON), &rec); err != nil {
		t.Fatalf("evidence json: %v", err)
	}
	if rec.RefusalID != *res.RefusalID || rec.Threshold != 0.70 {
		t.Fatalf("unexpected evidence %+v", rec)
	}
}

func TestPlan_SimilarStateEvidenceTakesPriority(t *testing.T) {
	f := newFixture(t, 9)
	f.seedHistory(t, 14, 3, 3, 20, 3, true)

	res, err := f.svc.Plan(context.Background(), store.Deep)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Guardrail.Rule != guardrail.RuleSimilarStateEvidence {
		t.Fatalf("expected similar-state rule first, got %s", res.Guardrail.Rule)
	}
	ev := res.Guardrail.Evidence.SimilarStateOutcomes
	if ev == nil || ev.Attempts != 20 || ev.PoorOutcomeRate != 1 {
		t.Fatalf("unexpected evidence %+v", ev)
	}
	if !strings.Contains(*res.Guardrail.Reason, "100% of the time (20 attempts)") {
		t.Fatalf("unexpected reason %q", *res.Guardrail.Reason)
	}
}

func TestPlan_ActiveAllowsGoodState(t *testing.T) {
	f := newFixture(t, 9)
	f.seedHistory(t, 14, 8, 8, 20, 8, true)

	res, err := f.svc.Plan(context.Background(), "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !res.Guardrail.Active || res.Guardrail.Refusing || res.Recommendation != store.Deep {
		t.Fatalf("expected allow, got %+v", res)
	}
	if res.Message != "Deep work suitable. Energy 8/10, focus 8/10, phase: morning_peak." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestPlan_ShallowIntentNeverRefused(t *testing.T) {
	f := newFixture(t, 15)
	f.seedHistory(t, 14, 3, 3, 20, 3, true)

	res, err := f.svc.Plan(context.Background(), store.Shallow)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Guardrail.Refusing || res.RefusalID != nil {
		t.Fatalf("shallow intent must pass, got %+v", res.Guardrail)
	}
	if res.CurrentState.CircadianPhase != dayclock.AfternoonDip {
		t.Fatalf("phase should follow the current hour, got %s", res.CurrentState.CircadianPhase)
	}
	if res.Decision != DecisionAllow || res.Message != "Shallow work suitable. Energy 3/10, focus 3/10, phase: afternoon_dip." {
		t.Fatalf("unexpected pass-through %s %q", res.Decision, res.Message)
	}
}

func TestPlan_InvalidIntent(t *testing.T) {
	f := newFixture(t, 9)
	if _, err := f.svc.Plan(context.Background(), "medium"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

// #endregion plan-tests

// #region override-tests
func TestOverrideLifecycle(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()
	f.seedHistory(t, 14, 3, 3, 20, 7, false)

	res, err := f.svc.Plan(ctx, "")
	if err != nil || res.RefusalID == nil {
		t.Fatalf("expected refusal, got %+v (%v)", res, err)
	}

	_, err = f.svc.AssessOverride(ctx, *res.RefusalID, store.OutcomePoor)
	if !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("assessing before override should be a policy error, got %v", err)
	}

	start := f.now
	seg, err := f.store.InsertSegment(ctx, store.Segment{
		Date: f.zone.Today(), IntendedType: store.Deep, StartTime: start,
	})
	if err != nil {
		t.Fatalf("insert segment: %v", err)
	}

	ov, err := f.svc.RecordOverride(ctx, *res.RefusalID, &seg.ID)
	if err != nil {
		t.Fatalf("RecordOverride: %v", err)
	}
	if !ov.Refusal.UserOverrode || ov.Refusal.SegmentID == nil || *ov.Refusal.SegmentID != seg.ID {
		t.Fatalf("unexpected refusal %+v", ov.Refusal)
	}
	stored, _ := f.store.GetSegment(ctx, seg.ID)
	if !stored.OverrideFlag {
		t.Fatal("segment should carry the override flag")
	}

	as, err := f.svc.AssessOverride(ctx, *res.RefusalID, store.OutcomePoor)
	if err != nil {
		t.Fatalf("AssessOverride: %v", err)
	}
	if as.Refusal.OutcomeQuality == nil || *as.Refusal.OutcomeQuality != store.OutcomePoor {
		t.Fatalf("unexpected outcome %+v", as.Refusal)
	}

	again, err := f.svc.Plan(ctx, "")
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	h := again.Guardrail.Evidence.OverrideHistory
	if h == nil || h.RecentOverrides != 1 || h.PoorOutcomeRate != 1 {
		t.Fatalf("override history should reflect the assessed override, got %+v", h)
	}
}

func TestOverrideErrors(t *testing.T) {
	f := newFixture(t, 9)
	ctx := context.Background()

	if _, err := f.svc.RecordOverride(ctx, "nope", nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.AssessOverride(ctx, "nope", "meh"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	ev, err := f.store.InsertRefusal(ctx, store.RefusalEvent{
		Date: f.zone.Today(), RefusalType: store.RefusalDeepWorkBlock, ConfidenceAtRefusal: 0.8, Reason: "test",
	})
	if err != nil {
		t.Fatalf("insert refusal: %v", err)
	}
	missing := "missing-segment"
	if _, err := f.svc.RecordOverride(ctx, ev.ID, &missing); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for unknown segment, got %v", err)
	}
}

// #endregion override-tests
