package tools

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/assess"
	"github.com/danielpatrickdp/veto/internal/capture"
	"github.com/danielpatrickdp/veto/internal/namedquery"
	"github.com/danielpatrickdp/veto/internal/patterns"
	"github.com/danielpatrickdp/veto/internal/planner"
	"github.com/danielpatrickdp/veto/internal/segment"
	"github.com/danielpatrickdp/veto/internal/store"
	"github.com/danielpatrickdp/veto/internal/summary"
)

// Services are the domain services the catalog dispatches to.
type Services struct {
	Assess     *assess.Service
	Segments   *segment.Service
	Planner    *planner.Service
	Summary    *summary.Service
	Patterns   *patterns.Service
	Captures   *capture.Service
	NamedQuery *namedquery.Service
}

// NewCatalog registers every veto tool against svc.
func NewCatalog(svc Services, logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	for _, t := range []Tool{
		assessTool(svc.Assess),
		todayStateTool(svc.Assess),
		startSegmentTool(svc.Segments),
		endSegmentTool(svc.Segments),
		logSegmentTool(svc.Segments),
		editSegmentTool(svc.Segments),
		listSegmentsTool(svc.Segments),
		planTool(svc.Planner),
		recordOverrideTool(svc.Planner),
		assessOverrideTool(svc.Planner),
		wrapDayTool(svc.Summary),
		queryPatternsTool(svc.Patterns),
		captureTool(svc.Captures),
		pendingCapturesTool(svc.Captures),
		routeCaptureTool(svc.Captures),
		namedQueryTool(svc.NamedQuery),
	} {
		r.Register(t)
	}
	return r
}

// #region params
func bound(v float64) *float64 { return &v }

func scale(name, desc string, required bool) Param {
	return Param{Name: name, Kind: KindInteger, Required: required, Description: desc, Min: bound(1), Max: bound(10)}
}

func workType(required bool) Param {
	return Param{
		Name: "intended_type", Kind: KindString, Required: required,
		Description: "Type of work: deep or shallow",
		Enum:        []string{string(store.Deep), string(store.Shallow)},
	}
}

func duration(required bool) Param {
	return Param{
		Name: "duration_minutes", Kind: KindInteger, Required: required,
		Description: "Duration in minutes (1-1440)", Min: bound(1), Max: bound(segment.MaxDurationMinutes),
	}
}

func text(name, desc string) Param {
	return Param{Name: name, Kind: KindString, Description: desc}
}

// #endregion params

// #region state
func assessTool(svc *assess.Service) Tool {
	return Tool{
		Name:        "veto_assess",
		Description: "Log your current cognitive and physiological state. Returns an execution profile recommending the type of work that suits your current condition.",
		Params: []Param{
			scale("energy", "Current energy level (1-10)", true),
			scale("focus", "Current focus level (1-10)", true),
			text("mood", "Current mood in a word or two"),
			{Name: "sleep_hours", Kind: KindNumber, Description: "Hours of sleep last night", Min: bound(0), Max: bound(24)},
			text("notes", "Any additional context"),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Assess(ctx, assess.Input{
				Energy:     a.Int("energy"),
				Focus:      a.Int("focus"),
				Mood:       a.OptString("mood"),
				SleepHours: a.OptFloat("sleep_hours"),
				Notes:      a.OptString("notes"),
			})
		},
	}
}

func todayStateTool(svc *assess.Service) Tool {
	return Tool{
		Name:        "veto_get_today_state",
		Description: "Return today's most recent state assessment, if any.",
		Handler: func(ctx context.Context, _ Args) (any, error) {
			return svc.Today(ctx)
		},
	}
}

// #endregion state

// #region segments
func startSegmentTool(svc *segment.Service) Tool {
	return Tool{
		Name:        "veto_start_segment",
		Description: "Start a work segment. Only one segment may be open at a time.",
		Params: []Param{
			workType(true),
			text("description", "What you are working on"),
			text("state_log_id", "State log this segment follows from"),
			text("external_task_ref", "External task reference"),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Start(ctx, segment.StartInput{
				IntendedType: store.SegmentType(a.String("intended_type")),
				Description:  a.OptString("description"),
				StateLogID:   a.OptString("state_log_id"),
				TaskRef:      a.OptString("external_task_ref"),
			})
		},
	}
}

func endSegmentTool(svc *segment.Service) Tool {
	return Tool{
		Name:        "veto_end_segment",
		Description: "End the open work segment with a focus score and completion flag.",
		Params: []Param{
			scale("focus_score", "How focused the segment was (1-10)", true),
			{Name: "completed", Kind: KindBoolean, Description: "Whether the intended work was completed (default true)"},
			text("notes", "Notes appended to the segment"),
			duration(false),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.End(ctx, segment.EndInput{
				FocusScore:      a.Int("focus_score"),
				Completed:       a.BoolOr("completed", true),
				Notes:           a.OptString("notes"),
				DurationMinutes: a.OptInt("duration_minutes"),
			})
		},
	}
}

func logSegmentTool(svc *segment.Service) Tool {
	return Tool{
		Name:        "veto_log_segment",
		Description: "Log a finished segment after the fact. start_time accepts \"2 hours ago\", \"30 minutes ago\", \"9:00 AM\", \"14:30\" or an ISO timestamp.",
		Params: []Param{
			workType(true),
			{Name: "start_time", Kind: KindString, Required: true, Description: "When the segment started"},
			duration(true),
			scale("focus_score", "How focused the segment was (1-10)", true),
			{Name: "completed", Kind: KindBoolean, Description: "Whether the intended work was completed (default true)"},
			text("description", "What you worked on"),
			text("notes", "Additional notes"),
			text("external_task_ref", "External task reference"),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Log(ctx, segment.LogInput{
				IntendedType:    store.SegmentType(a.String("intended_type")),
				StartTime:       a.String("start_time"),
				DurationMinutes: a.Int("duration_minutes"),
				FocusScore:      a.Int("focus_score"),
				Completed:       a.BoolOr("completed", true),
				Description:     a.OptString("description"),
				Notes:           a.OptString("notes"),
				TaskRef:         a.OptString("external_task_ref"),
			})
		},
	}
}

func editSegmentTool(svc *segment.Service) Tool {
	return Tool{
		Name:        "veto_edit_segment",
		Description: "Correct a segment from today. Only supplied fields change.",
		Params: []Param{
			{Name: "segment_id", Kind: KindString, Required: true, Description: "Segment to edit"},
			// bounds are checked by the service after the segment lookup
			{Name: "focus_score", Kind: KindInteger, Description: "Corrected focus score (1-10)"},
			{Name: "completed", Kind: KindBoolean, Description: "Corrected completion flag"},
			text("description", "Replacement description"),
			text("notes", "Notes appended to the segment"),
			{Name: "duration_minutes", Kind: KindInteger, Description: "Corrected duration in minutes (1-1440)"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Edit(ctx, segment.EditInput{
				SegmentID:       a.String("segment_id"),
				FocusScore:      a.OptInt("focus_score"),
				Completed:       a.OptBool("completed"),
				Description:     a.OptString("description"),
				Notes:           a.OptString("notes"),
				DurationMinutes: a.OptInt("duration_minutes"),
			})
		},
	}
}

func listSegmentsTool(svc *segment.Service) Tool {
	return Tool{
		Name:        "veto_list_segments",
		Description: "List the segments of a day with totals.",
		Params: []Param{
			text("date", "today, yesterday or YYYY-MM-DD (default today)"),
			workType(false),
			{Name: "limit", Kind: KindInteger, Description: "Maximum segments to return (1-200)", Min: bound(1), Max: bound(segment.MaxListLimit)},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.List(ctx, segment.ListInput{
				Date:         a.String("date"),
				IntendedType: store.SegmentType(a.String("intended_type")),
				Limit:        a.Int("limit"),
			})
		},
	}
}

// #endregion segments

// #region guardrail
func planTool(svc *planner.Service) Tool {
	return Tool{
		Name:        "veto_plan",
		Description: "Ask whether now is a good time for deep work. May refuse when confidence is high enough and the evidence is against it.",
		Params: []Param{
			{
				Name: "intended_work_type", Kind: KindString, Description: "The work you intend to do",
				Enum: []string{string(store.Deep), string(store.Shallow)},
			},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Plan(ctx, store.SegmentType(a.String("intended_work_type")))
		},
	}
}

func recordOverrideTool(svc *planner.Service) Tool {
	return Tool{
		Name:        "veto_record_override",
		Description: "Record that you proceeded with deep work despite a refusal.",
		Params: []Param{
			{Name: "refusal_id", Kind: KindString, Required: true, Description: "Refusal being overridden"},
			text("segment_id", "Segment started under the override"),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.RecordOverride(ctx, a.String("refusal_id"), a.OptString("segment_id"))
		},
	}
}

func assessOverrideTool(svc *planner.Service) Tool {
	return Tool{
		Name:        "veto_assess_override",
		Description: "Judge how an overridden refusal turned out.",
		Params: []Param{
			{Name: "refusal_id", Kind: KindString, Required: true, Description: "Overridden refusal"},
			{
				Name: "outcome_quality", Kind: KindString, Required: true, Description: "How the override went",
				Enum: []string{string(store.OutcomeGood), string(store.OutcomeNeutral), string(store.OutcomePoor)},
			},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.AssessOverride(ctx, a.String("refusal_id"), store.OutcomeQuality(a.String("outcome_quality")))
		},
	}
}

// #endregion guardrail

// #region review
func wrapDayTool(svc *summary.Service) Tool {
	return Tool{
		Name:        "veto_wrap_day",
		Description: "Close out today into a daily summary. Fails while a segment is still open.",
		Params: []Param{
			text("notable_events", "Anything notable about the day"),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.WrapDay(ctx, a.OptString("notable_events"))
		},
	}
}

func queryPatternsTool(svc *patterns.Service) Tool {
	kinds := make([]string, len(patterns.QueryTypes))
	for i, q := range patterns.QueryTypes {
		kinds[i] = string(q)
	}
	return Tool{
		Name:        "veto_query_patterns",
		Description: "Query historical patterns behind guardrail decisions.",
		Params: []Param{
			// unknown query types reach the service and come back as not_found
			{Name: "query_type", Kind: KindString, Required: true, Description: "One of: " + strings.Join(kinds, ", ")},
			{Name: "energy_range", Kind: KindRange, Description: "Energy filter {min, max}"},
			{Name: "focus_range", Kind: KindRange, Description: "Focus filter {min, max}"},
			{Name: "days_back", Kind: KindInteger, Description: "Lookback in days (1-90, default 14)"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Query(ctx, patterns.Input{
				QueryType:   patterns.QueryType(a.String("query_type")),
				EnergyRange: a.Range("energy_range"),
				FocusRange:  a.Range("focus_range"),
				DaysBack:    explicit(a, "days_back"),
			})
		},
	}
}

// #endregion review

// #region captures
func captureTool(svc *capture.Service) Tool {
	return Tool{
		Name:        "veto_capture",
		Description: "Capture an idea or action item without breaking focus. Linked to the open segment when there is one.",
		Params: []Param{
			{Name: "content", Kind: KindString, Required: true, Description: "What to capture"},
			{Name: "type", Kind: KindString, Description: "idea or action (default idea)", Enum: []string{capture.TypeIdea, capture.TypeAction}},
			{
				Name: "urgency", Kind: KindString, Description: "now, today or later (default later)",
				Enum: []string{capture.UrgencyNow, capture.UrgencyToday, capture.UrgencyLater},
			},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Capture(ctx, capture.Input{
				Content: a.String("content"),
				Type:    a.String("type"),
				Urgency: a.String("urgency"),
			})
		},
	}
}

func pendingCapturesTool(svc *capture.Service) Tool {
	return Tool{
		Name:        "veto_pending_captures",
		Description: "List pending captures across all days, oldest first.",
		Handler: func(ctx context.Context, _ Args) (any, error) {
			return svc.Pending(ctx)
		},
	}
}

func routeCaptureTool(svc *capture.Service) Tool {
	actions := make([]string, len(capture.Actions))
	for i, act := range capture.Actions {
		actions[i] = string(act)
	}
	return Tool{
		Name:        "veto_route_capture",
		Description: "Route a pending capture: complete, send to trello or github, dismiss, or skip.",
		Params: []Param{
			{Name: "capture_id", Kind: KindString, Required: true, Description: "Capture to route"},
			{Name: "action", Kind: KindString, Required: true, Description: "Routing action", Enum: actions},
			text("routed_to", "Card or issue URL, required for trello and github"),
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Route(ctx, a.String("capture_id"), capture.Action(a.String("action")), a.OptString("routed_to"))
		},
	}
}

// #endregion captures

func namedQueryTool(svc *namedquery.Service) Tool {
	return Tool{
		Name:        "veto_named_query",
		Description: "Run one of the allowlisted read-only queries: " + strings.Join(namedquery.Names(), ", "),
		Params: []Param{
			{Name: "name", Kind: KindString, Required: true, Description: "Query name"},
			{Name: "days_back", Kind: KindInteger, Description: "Lookback in days (1-90, default 14)"},
			{Name: "limit", Kind: KindInteger, Description: "Maximum rows (1-200, default 50)"},
		},
		Handler: func(ctx context.Context, a Args) (any, error) {
			return svc.Run(ctx, a.String("name"), namedquery.Params{DaysBack: explicit(a, "days_back"), Limit: explicit(a, "limit")})
		},
	}
}

// explicit maps a supplied 0 to -1 so services reject it instead of
// applying their default.
func explicit(a Args, name string) int {
	if v := a.OptInt(name); v != nil && *v == 0 {
		return -1
	}
	return a.Int(name)
}
