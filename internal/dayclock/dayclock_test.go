package dayclock

import (
	"testing"
	"time"

	"github.com/danielpatrickdp/veto/internal/apperr"
)

func pacific(t *testing.T, at time.Time) *Zone {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return New(loc, func() time.Time { return at })
}

func TestPhaseForHour_Bands(t *testing.T) {
	cases := map[int]Phase{
		0: Night, 5: Night, 6: MorningPeak, 9: MorningPeak,
		10: Midday, 13: Midday, 14: AfternoonDip, 16: AfternoonDip,
		17: Evening, 20: Evening, 21: Night, 23: Night,
	}
	for h, want := range cases {
		if got := PhaseForHour(h); got != want {
			t.Errorf("hour %d: got %s, want %s", h, got, want)
		}
	}
}

func TestToday_UsesReferenceZone(t *testing.T) {
	// 03:30 UTC on the 5th is 20:30 on the 4th in Pacific (PDT)
	z := pacific(t, time.Date(2026, 6, 5, 3, 30, 0, 0, time.UTC))
	if got := z.Today(); got != "2026-06-04" {
		t.Fatalf("expected 2026-06-04, got %s", got)
	}
	if got := z.CurrentPhase(); got != Evening {
		t.Fatalf("expected evening, got %s", got)
	}
}

func TestDaysAgo(t *testing.T) {
	z := pacific(t, time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))
	if got := z.DaysAgo(1); got != "2026-02-28" {
		t.Fatalf("expected 2026-02-28, got %s", got)
	}
	if got := z.DaysAgo(14); got != "2026-02-15" {
		t.Fatalf("expected 2026-02-15, got %s", got)
	}
}

func TestResolveDate(t *testing.T) {
	z := pacific(t, time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC))

	got, err := z.ResolveDate("today")
	if err != nil || got != "2026-03-10" {
		t.Fatalf("today: %s %v", got, err)
	}
	got, err = z.ResolveDate("yesterday")
	if err != nil || got != "2026-03-09" {
		t.Fatalf("yesterday: %s %v", got, err)
	}
	got, err = z.ResolveDate("2026-01-02")
	if err != nil || got != "2026-01-02" {
		t.Fatalf("explicit: %s %v", got, err)
	}
	if _, err := z.ResolveDate("last tuesday"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoad_UnknownZone(t *testing.T) {
	if _, err := Load("Mars/Olympus_Mons"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
