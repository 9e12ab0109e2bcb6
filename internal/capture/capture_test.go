package capture

import (
	"context"
	"path/filepath"
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
	f := &fixture{store: st, now: time.Date(2026, 3, 2, 10, 0, 0, 0, loc)}
	zone := dayclock.New(loc, func() time.Time { return f.now })
	f.svc = NewService(st, zone, nil)
	return f
}

func ptr[T any](v T) *T { return &v }

// #endregion helpers

func TestCapture_DefaultsAndTrim(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Capture(context.Background(), Input{Content: "  try a bloom filter  "})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	c := res.Capture
	if c.Content != "try a bloom filter" || c.CaptureType != TypeIdea || c.Urgency != UrgencyLater || c.Status != StatusPending {
		t.Fatalf("unexpected capture %+v", c)
	}
	if c.Date != "2026-03-02" || c.SegmentID != nil || res.SegmentActive {
		t.Fatalf("unexpected date or link %+v", c)
	}
	if res.Message != "Idea captured. Will surface in wrap-up." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestCapture_LinksOpenSegment(t *testing.T) {
	f := newFixture(t)
	seg, err := f.store.InsertSegment(context.Background(), store.Segment{
		Date: "2026-03-02", IntendedType: store.Deep, StartTime: f.now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("insert segment: %v", err)
	}

	res, err := f.svc.Capture(context.Background(), Input{Content: "email Sam", Type: TypeAction, Urgency: UrgencyToday})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if res.Capture.SegmentID == nil || *res.Capture.SegmentID != seg.ID || !res.SegmentActive {
		t.Fatalf("capture should link the open segment, got %+v", res.Capture)
	}
	if res.Message != "Action item captured (linked to current segment). Will surface in wrap-up." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestCapture_Validation(t *testing.T) {
	f := newFixture(t)
	for _, in := range []Input{
		{Content: "   "},
		{Content: "x", Type: "todo"},
		{Content: "x", Urgency: "asap"},
	} {
		if _, err := f.svc.Capture(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("Capture(%+v): expected validation error, got %v", in, err)
		}
	}
}

func TestPending_SplitsByType(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.svc.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if empty.Total != 0 || empty.Message != "No pending captures." {
		t.Fatalf("unexpected empty result %+v", empty)
	}

	for _, in := range []Input{
		{Content: "first idea"},
		{Content: "an action", Type: TypeAction},
		{Content: "second idea"},
	} {
		if _, err := f.svc.Capture(ctx, in); err != nil {
			t.Fatalf("Capture: %v", err)
		}
		f.now = f.now.Add(time.Minute)
	}

	res, err := f.svc.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if len(res.Ideas) != 2 || len(res.Actions) != 1 || res.Total != 3 {
		t.Fatalf("unexpected split %+v", res)
	}
	if res.Ideas[0].Content != "first idea" {
		t.Fatalf("oldest first, got %q", res.Ideas[0].Content)
	}
	if res.Message != "Pending: 2 ideas, 1 action item." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	newCapture := func() string {
		res, err := f.svc.Capture(ctx, Input{Content: "thing"})
		if err != nil {
			t.Fatalf("Capture: %v", err)
		}
		return res.Capture.ID
	}

	cases := []struct {
		action     Action
		routedTo   *string
		wantStatus string
		wantDest   *string
		wantMsg    string
	}{
		{ActionComplete, nil, StatusRouted, ptr("completed"), "Marked as complete."},
		{ActionTrello, ptr("https://trello.com/c/abc"), StatusRouted, ptr("https://trello.com/c/abc"), "Routed to Trello: https://trello.com/c/abc"},
		{ActionGitHub, ptr("org/repo#12"), StatusRouted, ptr("org/repo#12"), "Routed to GitHub: org/repo#12"},
		{ActionDismiss, nil, StatusDismissed, nil, "Dismissed."},
		{ActionSkip, nil, StatusPending, nil, "Skipped - will appear in next wrap."},
	}
	for _, tc := range cases {
		t.Run(string(tc.action), func(t *testing.T) {
			res, err := f.svc.Route(ctx, newCapture(), tc.action, tc.routedTo)
			if err != nil {
				t.Fatalf("Route: %v", err)
			}
			if res.Capture.Status != tc.wantStatus || res.Message != tc.wantMsg {
				t.Fatalf("unexpected result %+v", res)
			}
			if (tc.wantDest == nil) != (res.Capture.RoutedTo == nil) ||
				(tc.wantDest != nil && *tc.wantDest != *res.Capture.RoutedTo) {
				t.Fatalf("unexpected routed_to %v", res.Capture.RoutedTo)
			}
		})
	}
}

func TestRoute_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.Capture(ctx, Input{Content: "thing"})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	id := res.Capture.ID

	if _, err := f.svc.Route(ctx, "missing", ActionDismiss, nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := f.svc.Route(ctx, id, ActionTrello, ptr("  ")); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("trello without target should fail validation, got %v", err)
	}
	if _, err := f.svc.Route(ctx, id, "archive", nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("unknown action should fail validation, got %v", err)
	}
	got, err := f.store.GetCapture(ctx, id)
	if err != nil || got.Status != StatusPending {
		t.Fatalf("failed routes must leave the capture pending, got %+v (%v)", got, err)
	}
}
