// Package timespec parses the start-time expressions accepted when logging a
// segment after the fact.
package timespec

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/veto/internal/apperr"
)

// #region matchers
// matcher returns ok=false when the input is not its shape. A non-nil error
// means the shape matched but the values are unusable.
type matcher func(input string, now time.Time) (t time.Time, ok bool, err error)

var (
	hoursAgoRe   = regexp.MustCompile(`(?i)^(\d+)\s*hours?\s*ago$`)
	minutesAgoRe = regexp.MustCompile(`(?i)^(\d+)\s*minutes?\s*ago$`)
	clockRe      = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})(?:\s*(AM|PM))?$`)
)

// maxOffset bounds "N hours/minutes ago"; larger values are treated as typos.
const maxOffset = 365 * 24 * time.Hour

var layouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// grammar is tried in order; the first match wins.
var grammar = []matcher{
	relative(hoursAgoRe, time.Hour),
	relative(minutesAgoRe, time.Minute),
	wallClock,
	timestamp,
}

// #endregion matchers

// #region parse
// Parse resolves spec against now. Clock times and zone-less timestamps are
// read in now's location, so callers pass now in the reference zone.
func Parse(spec string, now time.Time) (time.Time, error) {
	input := strings.TrimSpace(spec)
	for _, m := range grammar {
		t, ok, err := m(input, now)
		if err != nil {
			return time.Time{}, err
		}
		if ok {
			return t, nil
		}
	}
	return time.Time{}, apperr.Validation(
		"could not parse start_time %q: use an ISO timestamp, \"HH:MM\", \"X hours ago\" or \"X minutes ago\"", spec)
}

// #endregion parse

// #region shapes
func relative(re *regexp.Regexp, unit time.Duration) matcher {
	return func(input string, now time.Time) (time.Time, bool, error) {
		m := re.FindStringSubmatch(input)
		if m == nil {
			return time.Time{}, false, nil
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n > int(maxOffset/unit) {
			return time.Time{}, true, apperr.Validation("start_time %q: offset too large", input)
		}
		return now.Add(-time.Duration(n) * unit), true, nil
	}
}

func wallClock(input string, now time.Time) (time.Time, bool, error) {
	m := clockRe.FindStringSubmatch(input)
	if m == nil {
		return time.Time{}, false, nil
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	switch strings.ToUpper(m[3]) {
	case "PM":
		if hour < 1 || hour > 12 {
			return time.Time{}, true, apperr.Validation("start_time %q: hour must be 1-12 with AM/PM", input)
		}
		if hour < 12 {
			hour += 12
		}
	case "AM":
		if hour < 1 || hour > 12 {
			return time.Time{}, true, apperr.Validation("start_time %q: hour must be 1-12 with AM/PM", input)
		}
		if hour == 12 {
			hour = 0
		}
	}
	if hour > 23 || minute > 59 {
		return time.Time{}, true, apperr.Validation("start_time %q: not a valid time of day", input)
	}
	y, mo, d := now.Date()
	return time.Date(y, mo, d, hour, minute, 0, 0, now.Location()), true, nil
}

func timestamp(input string, now time.Time) (time.Time, bool, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, input, now.Location()); err == nil {
			return t, true, nil
		}
	}
	return time.Time{}, false, nil
}

// #endregion shapes
