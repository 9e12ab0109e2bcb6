package dayclock

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/danielpatrickdp/veto/internal/apperr"
)

// DateLayout is the calendar-date format used for every date bucket.
const DateLayout = "2006-01-02"

// DefaultTimezone is the reference zone when none is configured.
const DefaultTimezone = "America/Los_Angeles"

// #region phase
// Phase is a coarse time-of-day bucket.
type Phase string

const (
	MorningPeak  Phase = "morning_peak"
	Midday       Phase = "midday"
	AfternoonDip Phase = "afternoon_dip"
	Evening      Phase = "evening"
	Night        Phase = "night"
)

// PhaseForHour buckets an hour of day (0-23).
func PhaseForHour(hour int) Phase {
	switch {
	case hour >= 6 && hour < 10:
		return MorningPeak
	case hour >= 10 && hour < 14:
		return Midday
	case hour >= 14 && hour < 17:
		return AfternoonDip
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

// #endregion phase

// #region zone
// Zone pins all date and hour derivations to one reference timezone.
type Zone struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Zone for loc. now may be nil (time.Now).
func New(loc *time.Location, now func() time.Time) *Zone {
	if now == nil {
		now = time.Now
	}
	return &Zone{loc: loc, now: now}
}

// Load resolves a named timezone into a Zone backed by the wall clock.
func Load(name string) (*Zone, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", name, err)
	}
	return New(loc, nil), nil
}

// Location returns the reference location.
func (z *Zone) Location() *time.Location {
	return z.loc
}

// Now returns the current instant in the reference zone.
func (z *Zone) Now() time.Time {
	return z.now().In(z.loc)
}

// Today returns today's date in the reference zone.
func (z *Zone) Today() string {
	return z.DateOf(z.now())
}

// DaysAgo returns the calendar date n days before today.
func (z *Zone) DaysAgo(n int) string {
	return z.Now().AddDate(0, 0, -n).Format(DateLayout)
}

// DateOf returns the reference-zone calendar date of t.
func (z *Zone) DateOf(t time.Time) string {
	return t.In(z.loc).Format(DateLayout)
}

// Hour returns the reference-zone hour of t.
func (z *Zone) Hour(t time.Time) int {
	return t.In(z.loc).Hour()
}

// Phase returns the circadian phase of t.
func (z *Zone) Phase(t time.Time) Phase {
	return PhaseForHour(z.Hour(t))
}

// CurrentPhase derives the phase from the current hour.
func (z *Zone) CurrentPhase() Phase {
	return z.Phase(z.now())
}

// ResolveDate turns "today", "yesterday" or YYYY-MM-DD into a date.
func (z *Zone) ResolveDate(spec string) (string, error) {
	switch spec {
	case "", "today":
		return z.Today(), nil
	case "yesterday":
		return z.DaysAgo(1), nil
	}
	if _, err := time.ParseInLocation(DateLayout, spec, z.loc); err != nil {
		return "", apperr.Validation("invalid date %q: use today, yesterday or YYYY-MM-DD", spec)
	}
	return spec, nil
}

// Clock formats t as a 12-hour wall time, e.g. "9:05 AM".
func (z *Zone) Clock(t time.Time) string {
	return t.In(z.loc).Format("3:04 PM")
}

// #endregion zone
