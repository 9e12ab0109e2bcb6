package assess

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/confidence"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region helpers
type fixture struct {
	svc   *Service
	store *store.Store
	now   time.Time
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	st, err := store.NewStore(filepath.Join(t.TempDir(), "veto.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	f := &fixture{store: st, now: now}
	zone := dayclock.New(now.Location(), func() time.Time { return f.now })
	f.svc = NewService(st, zone, confidence.NewEngine(st, confidence.DefaultConfig()), nil)
	return f
}

func pacific(t *testing.T, y int, m time.Month, d, h, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return time.Date(y, m, d, h, min, 0, 0, loc)
}

func ptr[T any](v T) *T { return &v }

// #endregion helpers

func TestAssess_MorningPeakWithLittleData(t *testing.T) {
	f := newFixture(t, pacific(t, 2026, 3, 2, 8, 0))

	p, err := f.svc.Assess(context.Background(), Input{Energy: 7, Focus: 8, Mood: ptr("calm")})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if p.CurrentState.CircadianPhase != dayclock.MorningPeak {
		t.Fatalf("expected morning_peak, got %s", p.CurrentState.CircadianPhase)
	}
	if p.Confidence.Status == confidence.StatusHigh {
		t.Fatal("status must not be high with under 14 days of data")
	}
	if p.Confidence.DaysOfData != 1 {
		t.Fatalf("expected 1 day of data, got %d", p.Confidence.DaysOfData)
	}
	if !p.Recommendation.DeepWorkSuitable || p.Recommendation.SuggestedWorkType != store.Deep {
		t.Fatalf("unexpected recommendation %+v", p.Recommendation)
	}
	if !strings.HasPrefix(p.Recommendation.Reasoning, "Observing patterns") {
		t.Fatalf("expected observe-only reasoning, got %q", p.Recommendation.Reasoning)
	}

	log, err := f.store.GetStateLog(context.Background(), p.StateLogID)
	if err != nil || log == nil {
		t.Fatalf("expected stored log, err=%v", err)
	}
	if log.Date != "2026-03-02" || *log.Mood != "calm" {
		t.Fatalf("unexpected stored log %+v", log)
	}
}

func TestAssess_DateUsesReferenceZone(t *testing.T) {
	// 22:30 Pacific is already the next day in UTC
	f := newFixture(t, pacific(t, 2026, 3, 2, 22, 30))

	p, err := f.svc.Assess(context.Background(), Input{Energy: 5, Focus: 5})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	log, _ := f.store.GetStateLog(context.Background(), p.StateLogID)
	if log.Date != "2026-03-02" {
		t.Fatalf("expected Pacific date, got %s", log.Date)
	}
	if p.CurrentState.CircadianPhase != dayclock.Night {
		t.Fatalf("expected night, got %s", p.CurrentState.CircadianPhase)
	}
}

func TestAssess_Validation(t *testing.T) {
	f := newFixture(t, pacific(t, 2026, 3, 2, 9, 0))
	cases := []Input{
		{Energy: 0, Focus: 5},
		{Energy: 11, Focus: 5},
		{Energy: 5, Focus: 0},
		{Energy: 5, Focus: 5, SleepHours: ptr(25.0)},
		{Energy: 5, Focus: 5, SleepHours: ptr(-1.0)},
	}
	for _, in := range cases {
		_, err := f.svc.Assess(context.Background(), in)
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("input %+v: expected validation error, got %v", in, err)
		}
	}
	n, _ := f.store.CountStateLogDays(context.Background())
	if n != 0 {
		t.Fatal("invalid input must not be stored")
	}
}

func TestToday(t *testing.T) {
	f := newFixture(t, pacific(t, 2026, 3, 2, 9, 0))
	ctx := context.Background()

	ts, err := f.svc.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if ts.HasAssessment || ts.HoursAgo != nil {
		t.Fatalf("expected no assessment, got %+v", ts)
	}

	if _, err := f.svc.Assess(ctx, Input{Energy: 6, Focus: 7, SleepHours: ptr(7.5)}); err != nil {
		t.Fatalf("Assess: %v", err)
	}
	f.now = f.now.Add(90 * time.Minute)

	ts, err = f.svc.Today(ctx)
	if err != nil {
		t.Fatalf("Today: %v", err)
	}
	if !ts.HasAssessment || *ts.HoursAgo != 1.5 {
		t.Fatalf("unexpected today state %+v", ts)
	}
	if !strings.Contains(ts.Message, "9:00 AM") || !strings.Contains(ts.Message, "Sleep 7.5h") {
		t.Fatalf("unexpected message %q", ts.Message)
	}
}

func TestRecommend(t *testing.T) {
	r := Recommend(5, 7, dayclock.MorningPeak, 0.8, 0.7)
	if !r.DeepWorkSuitable || !strings.Contains(r.Reasoning, "Morning peak") {
		t.Fatalf("morning bonus should lift energy 5: %+v", r)
	}

	r = Recommend(6, 7, dayclock.AfternoonDip, 0.8, 0.7)
	if r.DeepWorkSuitable || r.SuggestedWorkType != store.Shallow {
		t.Fatalf("afternoon dip should drop energy 6: %+v", r)
	}
	if r.Reasoning != "Shallow work recommended. Factors: afternoon dip phase." {
		t.Fatalf("unexpected reasoning %q", r.Reasoning)
	}

	r = Recommend(3, 3, dayclock.Midday, 0.2, 0.7)
	if !r.DeepWorkSuitable || r.SuggestedWorkType != store.Shallow {
		t.Fatalf("observe-only mode keeps suitability but suggests shallow: %+v", r)
	}
	if r.Reasoning != "Observing patterns. Confidence: 20% (guardrails activate at 70%)." {
		t.Fatalf("unexpected reasoning %q", r.Reasoning)
	}
}
