// Package capture records ideas and action items noted mid-work and routes
// them once the day is reviewed.
package capture

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/veto/internal/apperr"
	"github.com/danielpatrickdp/veto/internal/dayclock"
	"github.com/danielpatrickdp/veto/internal/logging"
	"github.com/danielpatrickdp/veto/internal/store"
)

const (
	TypeIdea   = "idea"
	TypeAction = "action"

	UrgencyNow   = "now"
	UrgencyToday = "today"
	UrgencyLater = "later"

	StatusPending   = "pending"
	StatusRouted    = "routed"
	StatusDismissed = "dismissed"
)

// Action is a routing decision for a pending capture.
type Action string

const (
	ActionComplete Action = "complete"
	ActionTrello   Action = "trello"
	ActionGitHub   Action = "github"
	ActionDismiss  Action = "dismiss"
	ActionSkip     Action = "skip"
)

// Actions lists every routing action.
var Actions = []Action{ActionComplete, ActionTrello, ActionGitHub, ActionDismiss, ActionSkip}

// #region types
// Input is a new capture. Empty Type and Urgency take their defaults.
type Input struct {
	Content string
	Type    string
	Urgency string
}

// Result is the outcome of Capture.
type Result struct {
	Capture       store.Capture `json:"capture"`
	SegmentActive bool          `json:"segment_active"`
	Message       string        `json:"message"`
}

// PendingResult splits pending captures by type, oldest first.
type PendingResult struct {
	Ideas   []store.Capture `json:"ideas"`
	Actions []store.Capture `json:"actions"`
	Total   int             `json:"total"`
	Message string          `json:"message"`
}

// RouteResult is the outcome of Route.
type RouteResult struct {
	Capture store.Capture `json:"capture"`
	Action  Action        `json:"action"`
	Message string        `json:"message"`
}

// #endregion types

// #region service
// Service manages captures.
type Service struct {
	store  *store.Store
	zone   *dayclock.Zone
	logger *zap.Logger
}

// NewService wires a capture service.
func NewService(st *store.Store, zone *dayclock.Zone, logger *zap.Logger) *Service {
	return &Service{store: st, zone: zone, logger: logging.OrNop(logger)}
}

// Capture stores trimmed content as pending, linked to the open segment if any.
func (s *Service) Capture(ctx context.Context, in Input) (*Result, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("Content is required")
	}
	kind := in.Type
	if kind == "" {
		kind = TypeIdea
	}
	if kind != TypeIdea && kind != TypeAction {
		return nil, apperr.Validation("type must be idea or action")
	}
	urgency := in.Urgency
	if urgency == "" {
		urgency = UrgencyLater
	}
	if urgency != UrgencyNow && urgency != UrgencyToday && urgency != UrgencyLater {
		return nil, apperr.Validation("urgency must be now, today or later")
	}

	open, err := s.store.OpenSegment(ctx)
	if err != nil {
		return nil, s.dependency(err, "failed to check active segment")
	}
	c := store.Capture{
		CreatedAt:   s.zone.Now(),
		Date:        s.zone.Today(),
		CaptureType: kind,
		Content:     content,
		Urgency:     urgency,
		Status:      StatusPending,
	}
	if open != nil {
		c.SegmentID = &open.ID
	}
	saved, err := s.store.InsertCapture(ctx, c)
	if err != nil {
		return nil, s.dependency(err, "failed to capture")
	}

	s.logger.Info("capture stored",
		zap.String("capture_id", saved.ID),
		zap.String("type", kind),
		zap.Bool("segment_active", open != nil),
	)
	label := "Idea"
	if kind == TypeAction {
		label = "Action item"
	}
	msg := label + " captured"
	if open != nil {
		msg += " (linked to current segment)"
	}
	return &Result{Capture: saved, SegmentActive: open != nil, Message: msg + ". Will surface in wrap-up."}, nil
}

// Pending returns every pending capture regardless of date.
func (s *Service) Pending(ctx context.Context) (*PendingResult, error) {
	all, err := s.store.PendingCaptures(ctx, 0)
	if err != nil {
		return nil, s.dependency(err, "failed to get captures")
	}
	res := &PendingResult{Ideas: []store.Capture{}, Actions: []store.Capture{}, Total: len(all)}
	for _, c := range all {
		if c.CaptureType == TypeAction {
			res.Actions = append(res.Actions, c)
		} else {
			res.Ideas = append(res.Ideas, c)
		}
	}
	if res.Total == 0 {
		res.Message = "No pending captures."
	} else {
		res.Message = pendingMessage(len(res.Ideas), len(res.Actions))
	}
	return res, nil
}

// Route applies action to a capture. skip leaves it pending.
func (s *Service) Route(ctx context.Context, captureID string, action Action, routedTo *string) (*RouteResult, error) {
	existing, err := s.store.GetCapture(ctx, captureID)
	if err != nil {
		return nil, s.dependency(err, "failed to load capture")
	}
	if existing == nil {
		return nil, apperr.NotFound("Capture not found: %s", captureID)
	}
	target := ""
	if routedTo != nil {
		target = strings.TrimSpace(*routedTo)
	}

	var (
		status string
		dest   *string
		msg    string
	)
	switch action {
	case ActionComplete:
		status, dest, msg = StatusRouted, strPtr("completed"), "Marked as complete."
	case ActionTrello, ActionGitHub:
		if target == "" {
			return nil, apperr.Validation("routed_to is required when routing to %s", destName(action))
		}
		status, dest, msg = StatusRouted, &target, "Routed to "+destName(action)+": "+target
	case ActionDismiss:
		status, msg = StatusDismissed, "Dismissed."
	case ActionSkip:
		return &RouteResult{Capture: *existing, Action: action, Message: "Skipped - will appear in next wrap."}, nil
	default:
		return nil, apperr.Validation("Unknown action: %s", action)
	}

	updated, err := s.store.UpdateCaptureStatus(ctx, captureID, status, dest)
	if err != nil {
		return nil, s.dependency(err, "failed to update capture")
	}
	s.logger.Info("capture routed",
		zap.String("capture_id", captureID),
		zap.String("action", string(action)),
		zap.String("status", status),
	)
	return &RouteResult{Capture: updated, Action: action, Message: msg}, nil
}

// #endregion service

// #region helpers
func destName(a Action) string {
	if a == ActionGitHub {
		return "GitHub"
	}
	return "Trello"
}

func pendingMessage(ideas, actions int) string {
	parts := []string{}
	if ideas > 0 {
		parts = append(parts, plural(ideas, "idea"))
	}
	if actions > 0 {
		parts = append(parts, plural(actions, "action item"))
	}
	return "Pending: " + strings.Join(parts, ", ") + "."
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func strPtr(s string) *string { return &s }

func (s *Service) dependency(err error, msg string) error {
	s.logger.Warn(msg, zap.Error(err))
	return apperr.Dependency(err, "%s", msg)
}

// #endregion helpers
