package segment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/store"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 200
)

// #region list-types
// ListInput selects segments for one date.
type ListInput struct {
	Date         string            // "today", "yesterday" or YYYY-MM-DD
	IntendedType store.SegmentType // empty for all
	Limit        int               // 0 means DefaultListLimit
}

// Item is one listed segment with its live duration.
type Item struct {
	ID              string            `json:"id"`
	IntendedType    store.SegmentType `json:"intended_type"`
	Description     *string           `json:"description"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         *time.Time        `json:"end_time"`
	DurationMinutes int               `json:"duration_minutes"`
	FocusScore      *int              `json:"focus_score"`
	Completed       bool              `json:"completed"`
	TaskRef         *string           `json:"external_task_ref"`
}

// Stats aggregates the listed segments.
type Stats struct {
	TotalSegments  int      `json:"total_segments"`
	TotalMinutes   int      `json:"total_minutes"`
	AvgFocus       *float64 `json:"avg_focus"`
	DeepMinutes    int      `json:"deep_minutes"`
	ShallowMinutes int      `json:"shallow_minutes"`
}

// ListResult is the listing for one date.
type ListResult struct {
	Segments []Item `json:"segments"`
	Stats    Stats  `json:"stats"`
	Date     string `json:"date"`
	Message  string `json:"message"`
}

// #endregion list-types

// #region list
// List returns a date's segments by start time with aggregate stats.
func (s *Service) List(ctx context.Context, in ListInput) (*ListResult, error) {
	date, err := s.zone.ResolveDate(strings.TrimSpace(in.Date))
	if err != nil {
		return nil, err
	}
	if in.IntendedType != "" && !in.IntendedType.Valid() {
		return nil, apperr.Validation("intended_type must be deep or shallow")
	}
	limit := in.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, apperr.Validation("limit must be between 1 and %d", MaxListLimit)
	}

	segs, err := s.store.SegmentsOn(ctx, date, in.IntendedType, limit)
	if err != nil {
		return nil, s.dependency(err, "failed to fetch segments")
	}

	now := s.zone.Now()
	items := make([]Item, 0, len(segs))
	var stats Stats
	focusSum, focusN := 0, 0
	for _, seg := range segs {
		it := Item{
			ID:              seg.ID,
			IntendedType:    seg.IntendedType,
			Description:     seg.Description,
			StartTime:       seg.StartTime,
			EndTime:         seg.EndTime,
			DurationMinutes: seg.DurationMinutes(now),
			FocusScore:      seg.FocusScore,
			Completed:       seg.Completed,
			TaskRef:         seg.TaskRef,
		}
		items = append(items, it)

		stats.TotalMinutes += it.DurationMinutes
		if it.IntendedType == store.Deep {
			stats.DeepMinutes += it.DurationMinutes
		} else {
			stats.ShallowMinutes += it.DurationMinutes
		}
		if it.FocusScore != nil {
			focusSum += *it.FocusScore
			focusN++
		}
	}
	stats.TotalSegments = len(items)
	if focusN > 0 {
		avg := float64(focusSum) / float64(focusN)
		stats.AvgFocus = &avg
	}

	return &ListResult{
		Segments: items,
		Stats:    stats,
		Date:     date,
		Message:  s.renderList(date, items, stats),
	}, nil
}

// #endregion list

// #region render
func (s *Service) renderList(date string, items []Item, stats Stats) string {
	label := date
	switch date {
	case s.zone.Today():
		label = "TODAY"
	case s.zone.DaysAgo(1):
		label = "YESTERDAY"
	}
	if len(items) == 0 {
		return fmt.Sprintf("No segments found for %s.", label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s'S SEGMENTS (%d)\n\n", label, len(items))
	for i, it := range items {
		end := "ongoing"
		if it.EndTime != nil {
			end = s.zone.Clock(*it.EndTime)
		}
		fmt.Fprintf(&b, "%d. [%s] %s %s - %s (%d min)\n",
			i+1, shortID(it.ID), strings.ToUpper(string(it.IntendedType)), s.zone.Clock(it.StartTime), end, it.DurationMinutes)
		desc := "No description"
		if it.Description != nil {
			desc = *it.Description
		}
		fmt.Fprintf(&b, "   %q\n", desc)
		focus := "Focus: —"
		if it.FocusScore != nil {
			focus = fmt.Sprintf("Focus: %d/10", *it.FocusScore)
		}
		status := "✗"
		if it.Completed {
			status = "✓"
		}
		fmt.Fprintf(&b, "   %s | Completed: %s\n", focus, status)
		if it.TaskRef != nil {
			fmt.Fprintf(&b, "   Task: %s\n", *it.TaskRef)
		}
		b.WriteString("\n")
	}
	b.WriteString("───────────────────────────────────────\n")
	fmt.Fprintf(&b, "Total: %d min | Deep: %d min | Shallow: %d min", stats.TotalMinutes, stats.DeepMinutes, stats.ShallowMinutes)
	if stats.AvgFocus != nil {
		fmt.Fprintf(&b, "\nAvg Focus: %.1f/10", *stats.AvgFocus)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion render
