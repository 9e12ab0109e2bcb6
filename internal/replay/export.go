package replay

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danielpatrickdp/veto/internal/segment"
	"github.com/danielpatrickdp/veto/internal/store"
)

// #region export

type exportEvent struct {
	at   time.Time
	step FixtureStep
}

// Export turns the state logs and scored closed segments dated on or after
// since into a fixture that rebuilds that history in a fresh store and ends
// with a deep-work plan call. Open and unscored segments are skipped and
// counted in the description.
func Export(ctx context.Context, st *store.Store, loc *time.Location, since string) (*Fixture, error) {
	logs, err := st.StateLogsSince(ctx, since, -1)
	if err != nil {
		return nil, fmt.Errorf("export state logs: %w", err)
	}
	segs, err := st.SegmentsSince(ctx, since, -1)
	if err != nil {
		return nil, fmt.Errorf("export segments: %w", err)
	}

	var events []exportEvent
	for _, l := range logs {
		args := map[string]any{"energy": l.Energy, "focus": l.Focus}
		putOpt(args, "mood", l.Mood)
		putOpt(args, "notes", l.Notes)
		if l.SleepHours != nil {
			args["sleep_hours"] = *l.SleepHours
		}
		events = append(events, exportEvent{at: l.CreatedAt, step: FixtureStep{Tool: "veto_assess", Arguments: args}})
	}

	skipped := 0
	kept := 0
	for _, s := range segs {
		if s.EndTime == nil || s.FocusScore == nil {
			skipped++
			continue
		}
		minutes := store.RoundMinutes(s.EndTime.Sub(s.StartTime))
		if minutes < 1 || minutes > segment.MaxDurationMinutes {
			skipped++
			continue
		}
		args := map[string]any{
			"intended_type":    string(s.IntendedType),
			"start_time":       s.StartTime.In(loc).Format(time.RFC3339),
			"duration_minutes": minutes,
			"focus_score":      *s.FocusScore,
			"completed":        s.Completed,
		}
		putOpt(args, "description", s.Description)
		putOpt(args, "external_task_ref", s.TaskRef)
		if s.Notes != nil {
			if n := strings.TrimSpace(strings.TrimPrefix(*s.Notes, segment.RetroactiveMarker)); n != "" {
				args["notes"] = n
			}
		}
		events = append(events, exportEvent{at: *s.EndTime, step: FixtureStep{Tool: "veto_log_segment", Arguments: args}})
		kept++
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no state logs or closed segments since %q", since)
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })

	first := events[0].at.In(loc)
	fx := &Fixture{
		Description: fmt.Sprintf("Export: %d state log(s), %d segment(s) since %s (%d segment(s) skipped)",
			len(logs), kept, first.Format("2006-01-02"), skipped),
		Timezone: loc.String(),
		Date:     first.Format("2006-01-02"),
	}
	for i, e := range events {
		step := e.step
		step.ID = fmt.Sprintf("%s-%d", strings.TrimPrefix(step.Tool, "veto_"), i+1)
		step.Day = dayOffset(first, e.at.In(loc))
		step.At = e.at.In(loc).Format("15:04")
		fx.Steps = append(fx.Steps, step)
	}

	fx.Steps = append(fx.Steps, FixtureStep{
		ID:             "plan",
		AdvanceMinutes: 1,
		Tool:           "veto_plan",
		Arguments:      map[string]any{"intended_work_type": "deep"},
		Expect: &FixtureExpect{Tables: map[string]int{
			"state_logs": len(logs),
			"segments":   kept,
		}},
	})
	return fx, nil
}

// #endregion export

func dayOffset(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a) / (24 * time.Hour))
}

func putOpt(args map[string]any, key string, v *string) {
	if v != nil && *v != "" {
		args[key] = *v
	}
}
