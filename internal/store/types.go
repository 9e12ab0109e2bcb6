package store

import (
	"time"

	"github.com/danielpatrickdp/veto/internal/dayclock"
)

// #region enums
// SegmentType is the declared kind of work in a segment.
type SegmentType string

const (
	Deep    SegmentType = "deep"
	Shallow SegmentType = "shallow"
)

// Valid reports whether t is a known segment type.
func (t SegmentType) Valid() bool {
	return t == Deep || t == Shallow
}

// EnergyTrend summarizes how energy moved across a day.
type EnergyTrend string

const (
	TrendRise   EnergyTrend = "rise"
	TrendStable EnergyTrend = "stable"
	TrendDip    EnergyTrend = "dip"
)

// OutcomeQuality is the post-hoc judgement of an override.
type OutcomeQuality string

const (
	OutcomeGood    OutcomeQuality = "good"
	OutcomeNeutral OutcomeQuality = "neutral"
	OutcomePoor    OutcomeQuality = "poor"
)

// Valid reports whether q is a known outcome quality.
func (q OutcomeQuality) Valid() bool {
	return q == OutcomeGood || q == OutcomeNeutral || q == OutcomePoor
}

// RefusalDeepWorkBlock tags refusals that block deep work.
const RefusalDeepWorkBlock = "deep_work_block"

// #endregion enums

// #region state-log
// StateLog is one self-report of energy and focus. Immutable once created.
type StateLog struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	Date           string         `json:"date"`
	Energy         int            `json:"energy"`
	Focus          int            `json:"focus"`
	Mood           *string        `json:"mood"`
	SleepHours     *float64       `json:"sleep_hours"`
	CircadianPhase dayclock.Phase `json:"circadian_phase"`
	Notes          *string        `json:"notes"`
}

// #endregion state-log

// #region segment
// Segment is one bounded or open work interval. EndTime is nil while open.
type Segment struct {
	ID           string      `json:"id"`
	CreatedAt    time.Time   `json:"created_at"`
	Date         string      `json:"date"`
	IntendedType SegmentType `json:"intended_type"`
	Description  *string     `json:"description"`
	StartTime    time.Time   `json:"start_time"`
	EndTime      *time.Time  `json:"end_time"`
	Completed    bool        `json:"completed"`
	FocusScore   *int        `json:"focus_score"`
	OverrideFlag bool        `json:"override_flag"`
	StateLogID   *string     `json:"state_log_id"`
	TaskRef      *string     `json:"external_task_ref"`
	Notes        *string     `json:"notes"`
}

// Open reports whether the segment has not been closed.
func (s Segment) Open() bool {
	return s.EndTime == nil
}

// DurationMinutes is the rounded length up to end, or up to now while open.
func (s Segment) DurationMinutes(now time.Time) int {
	end := now
	if s.EndTime != nil {
		end = *s.EndTime
	}
	return RoundMinutes(end.Sub(s.StartTime))
}

// SegmentState pairs a segment with the energy/focus of its linked state log.
type SegmentState struct {
	Segment
	Energy *int
	Focus  *int
}

// #endregion segment

// #region daily-summary
// DailySummary is the one-per-date rollup written by WrapDay.
type DailySummary struct {
	ID                 string      `json:"id"`
	CreatedAt          time.Time   `json:"created_at"`
	Date               string      `json:"date"`
	CompletionRatio    *float64    `json:"completion_ratio"`
	MeanFocus          *float64    `json:"mean_focus"`
	EnergyTrend        EnergyTrend `json:"energy_trend"`
	DeepWorkMinutes    int         `json:"deep_work_minutes"`
	ShallowWorkMinutes int         `json:"shallow_work_minutes"`
	NotableEvents      *string     `json:"notable_events"`
}

// #endregion daily-summary

// #region refusal-event
// RefusalEvent records one guardrail refusal.
type RefusalEvent struct {
	ID                  string          `json:"id"`
	CreatedAt           time.Time       `json:"created_at"`
	Date                string          `json:"date"`
	SegmentID           *string         `json:"segment_id"`
	RefusalType         string          `json:"refusal_type"`
	ConfidenceAtRefusal float64         `json:"confidence_at_refusal"`
	Reason              string          `json:"reason"`
	UserOverrode        bool            `json:"user_overrode"`
	OutcomeQuality      *OutcomeQuality `json:"outcome_quality"`
}

// #endregion refusal-event

// #region capture
// Capture is an idea or action item noted during work.
type Capture struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Date        string    `json:"date"`
	SegmentID   *string   `json:"segment_id"`
	CaptureType string    `json:"capture_type"`
	Content     string    `json:"content"`
	Urgency     string    `json:"urgency"`
	RoutedTo    *string   `json:"routed_to"`
	Status      string    `json:"status"`
}

// #endregion capture

// #region range
// Range is an inclusive integer window on the 1-10 scale.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Window returns v±width clamped to [1,10].
func Window(v, width int) Range {
	lo, hi := v-width, v+width
	if lo < 1 {
		lo = 1
	}
	if hi > 10 {
		hi = 10
	}
	return Range{Min: lo, Max: hi}
}

// Contains reports whether v lies in the range.
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// #endregion range

// RoundMinutes rounds a duration to whole minutes, half away from zero.
func RoundMinutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}
