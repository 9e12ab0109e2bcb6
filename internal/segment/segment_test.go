package segment

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region helpers
type fixture struct {
	svc   *Service
	store *store.Store
	mu    sync.Mutex
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
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
	f := &fixture{store: st, now: time.Date(2026, 3, 2, 9, 0, 0, 0, loc)}
	zone := dayclock.New(loc, func() time.Time {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.now
	})
	f.svc = NewService(st, zone, nil)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) openCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.store.DB().QueryRow(`SELECT COUNT(*) FROM segments WHERE end_time IS NULL`).Scan(&n); err != nil {
		t.Fatalf("count open: %v", err)
	}
	return n
}

func ptr[T any](v T) *T { return &v }

// #endregion helpers

// #region start-end-tests
func TestStartTwiceConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Start(ctx, StartInput{IntendedType: store.Deep}); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := f.svc.Start(ctx, StartInput{IntendedType: store.Deep})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "started at 2026-03-02T09:00:00-08:00") {
		t.Fatalf("conflict should report start time: %v", err)
	}
	if n := f.openCount(t); n != 1 {
		t.Fatalf("expected exactly one open segment, got %d", n)
	}
}

func TestConcurrentStartsKeepOneOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Start(ctx, StartInput{IntendedType: store.Shallow})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !apperr.Is(err, apperr.KindConflict):
			t.Fatalf("expected conflict, got %v", err)
		}
	}
	if ok != 1 || f.openCount(t) != 1 {
		t.Fatalf("expected one winner and one open segment, got %d winners, %d open", ok, f.openCount(t))
	}
}

func TestEndWithoutOpenSegment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.End(context.Background(), EndInput{FocusScore: 7, Completed: true})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEndClosesSegment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	started, err := f.svc.Start(ctx, StartInput{IntendedType: store.Deep, Description: ptr("write report")})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.advance(52*time.Minute + 40*time.Second)

	res, err := f.svc.End(ctx, EndInput{FocusScore: 8, Completed: true, Notes: ptr("flowed")})
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if res.DurationMinutes != 53 {
		t.Fatalf("expected 53 rounded minutes, got %d", res.DurationMinutes)
	}
	if res.Message != "DEEP segment ended (53 min, completed, good focus)." {
		t.Fatalf("unexpected message %q", res.Message)
	}

	got, _ := f.store.GetSegment(ctx, started.Segment.ID)
	if got.Open() || *got.FocusScore != 8 || !got.Completed || *got.Notes != "flowed" {
		t.Fatalf("unexpected stored segment %+v", got)
	}
	if f.openCount(t) != 0 {
		t.Fatal("expected no open segment after End")
	}
}

func TestEndDurationOverrideAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Start(ctx, StartInput{IntendedType: store.Shallow}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for _, in := range []EndInput{
		{FocusScore: 0},
		{FocusScore: 11},
		{FocusScore: 5, DurationMinutes: ptr(0)},
		{FocusScore: 5, DurationMinutes: ptr(1441)},
	} {
		if _, err := f.svc.End(ctx, in); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("input %+v: expected validation error, got %v", in, err)
		}
	}
	if f.openCount(t) != 1 {
		t.Fatal("failed End must leave the segment open")
	}

	f.advance(10 * time.Minute)
	res, err := f.svc.End(ctx, EndInput{FocusScore: 4, DurationMinutes: ptr(45)})
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if res.DurationMinutes != 45 || !strings.Contains(res.Message, "incomplete, low focus") {
		t.Fatalf("unexpected result %+v", res)
	}
}

// #endregion start-end-tests

// #region log-tests
func TestLogRetroactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Log(ctx, LogInput{
		IntendedType:    store.Deep,
		StartTime:       "2 hours ago",
		DurationMinutes: 90,
		FocusScore:      8,
		Completed:       true,
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	seg := res.Segment
	if seg.EndTime == nil || !seg.EndTime.Equal(seg.StartTime.Add(90*time.Minute)) {
		t.Fatalf("expected end = start + 90m, got %v -> %v", seg.StartTime, seg.EndTime)
	}
	if !seg.Completed || !strings.HasPrefix(*seg.Notes, RetroactiveMarker) {
		t.Fatalf("unexpected segment %+v", seg)
	}
	if res.Message != "DEEP segment logged (90 min, good focus)." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if f.openCount(t) != 0 {
		t.Fatal("logged segments are never open")
	}
}

func TestLogWhileSegmentOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Start(ctx, StartInput{IntendedType: store.Deep}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	res, err := f.svc.Log(ctx, LogInput{
		IntendedType: store.Shallow, StartTime: "30 minutes ago", DurationMinutes: 20, FocusScore: 5,
		Notes: ptr("email"),
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if *res.Segment.Notes != "[Logged retroactively] email" {
		t.Fatalf("unexpected notes %q", *res.Segment.Notes)
	}
	if f.openCount(t) != 1 {
		t.Fatal("expected the started segment to remain the only open one")
	}
}

func TestLogDatesByReferenceZone(t *testing.T) {
	f := newFixture(t)
	// 21:30 Pacific on Mar 1 is 05:30 UTC on Mar 2
	res, err := f.svc.Log(context.Background(), LogInput{
		IntendedType: store.Deep, StartTime: "2026-03-02T05:30:00Z", DurationMinutes: 60, FocusScore: 6,
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if res.Segment.Date != "2026-03-01" {
		t.Fatalf("expected 2026-03-01, got %s", res.Segment.Date)
	}
}

func TestLogValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := LogInput{IntendedType: store.Deep, StartTime: "1 hour ago", DurationMinutes: 30, FocusScore: 6}

	cases := []func(*LogInput){
		func(in *LogInput) { in.IntendedType = "medium" },
		func(in *LogInput) { in.FocusScore = 0 },
		func(in *LogInput) { in.DurationMinutes = 1441 },
		func(in *LogInput) { in.StartTime = "5" },
		func(in *LogInput) { in.StartTime = "whenever" },
	}
	for i, mutate := range cases {
		in := base
		mutate(&in)
		if _, err := f.svc.Log(ctx, in); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

// #endregion log-tests

// #region edit-tests
func logOne(t *testing.T, f *fixture) store.Segment {
	t.Helper()
	res, err := f.svc.Log(context.Background(), LogInput{
		IntendedType: store.Deep, StartTime: "08:00", DurationMinutes: 50, FocusScore: 6, Completed: true,
		Description: ptr("draft"),
	})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	return res.Segment
}

func TestEditAppliesChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seg := logOne(t, f)

	res, err := f.svc.Edit(ctx, EditInput{
		SegmentID:       seg.ID,
		FocusScore:      ptr(8),
		Completed:       ptr(false),
		Notes:           ptr("interrupted"),
		DurationMinutes: ptr(40),
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	want := []string{"focus_score: 6 → 8", "completed: true → false", "notes updated", "duration adjusted to 40 minutes"}
	if strings.Join(res.Changes, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected changes %v", res.Changes)
	}

	got, _ := f.store.GetSegment(ctx, seg.ID)
	if *got.Notes != RetroactiveMarker+"\n"+EditMarker+" interrupted" {
		t.Fatalf("notes should be appended, got %q", *got.Notes)
	}
	if !got.EndTime.Equal(got.StartTime.Add(40 * time.Minute)) {
		t.Fatalf("end not recomputed: %v", got.EndTime)
	}
}

func TestEditNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seg := logOne(t, f)

	res, err := f.svc.Edit(ctx, EditInput{
		SegmentID:       seg.ID,
		FocusScore:      ptr(6),
		Completed:       ptr(true),
		Description:     ptr("draft"),
		Notes:           seg.Notes,
		DurationMinutes: ptr(50),
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("expected no changes, got %v", res.Changes)
	}
	got, _ := f.store.GetSegment(ctx, seg.ID)
	if *got.Notes != *seg.Notes || !got.EndTime.Equal(*seg.EndTime) {
		t.Fatal("no-op edit must not mutate the record")
	}
}

func TestEditErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Edit(ctx, EditInput{SegmentID: "missing"}); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	seg := logOne(t, f)
	if _, err := f.svc.Edit(ctx, EditInput{SegmentID: seg.ID, FocusScore: ptr(12)}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	f.advance(24 * time.Hour)
	_, err := f.svc.Edit(ctx, EditInput{SegmentID: seg.ID, FocusScore: ptr(9)})
	if !apperr.Is(err, apperr.KindPolicy) {
		t.Fatalf("expected policy error for yesterday's segment, got %v", err)
	}
}

// #endregion edit-tests

// #region list-tests
func TestListStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	logOne(t, f) // deep 08:00-08:50, focus 6
	if _, err := f.svc.Start(ctx, StartInput{IntendedType: store.Shallow, TaskRef: ptr("card-1")}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.advance(25 * time.Minute)

	res, err := f.svc.List(ctx, ListInput{Date: "today"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Date != "2026-03-02" || len(res.Segments) != 2 {
		t.Fatalf("unexpected listing %+v", res)
	}
	if res.Segments[0].IntendedType != store.Deep || res.Segments[1].EndTime != nil {
		t.Fatal("expected start-time ordering with the open segment last")
	}
	s := res.Stats
	if s.TotalSegments != 2 || s.TotalMinutes != 75 || s.DeepMinutes != 50 || s.ShallowMinutes != 25 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.AvgFocus == nil || *s.AvgFocus != 6 {
		t.Fatalf("avg focus should ignore unscored segments, got %v", s.AvgFocus)
	}
	if !strings.HasPrefix(res.Message, "TODAY'S SEGMENTS (2)") || !strings.Contains(res.Message, "ongoing") {
		t.Fatalf("unexpected message %q", res.Message)
	}

	deep, err := f.svc.List(ctx, ListInput{IntendedType: store.Deep})
	if err != nil || len(deep.Segments) != 1 {
		t.Fatalf("expected one deep segment, got %v %v", deep, err)
	}
}

func TestListEmptyAndInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.List(ctx, ListInput{Date: "yesterday"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if res.Message != "No segments found for YESTERDAY." || res.Stats.AvgFocus != nil {
		t.Fatalf("unexpected empty result %+v", res)
	}

	for _, in := range []ListInput{{Date: "03/02/2026"}, {Limit: 500}, {IntendedType: "medium"}} {
		if _, err := f.svc.List(ctx, in); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("input %+v: expected validation error, got %v", in, err)
		}
	}
}

// #endregion list-tests
