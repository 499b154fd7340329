package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/observability"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// Defaults applied when CoordinatorConfig fields are zero.
const (
	DefaultConfidenceThreshold = 0.7
	DefaultMaxAutoAttempts     = 3
)

// AssignmentMode selects manual or automatic assignment.
type AssignmentMode struct {
	AgentID string
}

// AutoAssign lets the routing engine pick the agent.
func AutoAssign() AssignmentMode { return AssignmentMode{} }

// ManualAssign targets a specific agent.
func ManualAssign(agentID string) AssignmentMode { return AssignmentMode{AgentID: agentID} }

// Auto reports whether the mode defers to the routing engine.
func (m AssignmentMode) Auto() bool { return m.AgentID == "" }

func (m AssignmentMode) reason() string {
	if m.Auto() {
		return events.ReasonAuto
	}
	return events.ReasonManual
}

// CoordinatorConfig tunes assignment behavior.
type CoordinatorConfig struct {
	// ConfidenceThreshold must be exceeded before a classification overwrites category and priority.
	ConfidenceThreshold float64
	// MaxAutoAttempts bounds re-routing when the chosen agent fills up before the increment lands.
	MaxAutoAttempts int
}

// AssignmentCoordinator is the only writer of ticket assignment together with agent load.
// Every operation holds the ticket's lock while it adjusts agent load, so a ticket and
// the agents counting it change together or not at all.
type AssignmentCoordinator struct {
	registry   *AgentRegistry
	tickets    *TicketStore
	engine     *RoutingEngine
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        CoordinatorConfig
	now        func() time.Time
}

// CoordinatorDependencies bundles collaborators.
type CoordinatorDependencies struct {
	Registry   *AgentRegistry
	Tickets    *TicketStore
	Engine     *RoutingEngine
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAssignmentCoordinator creates the coordinator.
func NewAssignmentCoordinator(deps CoordinatorDependencies, cfg CoordinatorConfig) *AssignmentCoordinator {
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.MaxAutoAttempts <= 0 {
		cfg.MaxAutoAttempts = DefaultMaxAutoAttempts
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentCoordinator{
		registry:   deps.Registry,
		tickets:    deps.Tickets,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

type assignOutcome struct {
	previous string
	agent    *domain.Agent
	changed  bool
}

// Assign assigns a ticket manually or automatically. Auto mode returns a
// NO_AVAILABLE_AGENT error, leaving the ticket untouched, when nobody qualifies.
func (c *AssignmentCoordinator) Assign(ctx context.Context, ticketID string, mode AssignmentMode) (*domain.Ticket, error) {
	attempts := 1
	if mode.Auto() {
		attempts = c.cfg.MaxAutoAttempts
	}

	var (
		ticket  *domain.Ticket
		outcome assignOutcome
		err     error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		outcome = assignOutcome{}
		ticket, err = c.tickets.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Ticket) error {
			return c.applyAssign(ctx, t, mode, &outcome)
		})
		// The snapshot the engine chose from may be stale; the increment is authoritative.
		if mode.Auto() && errors.Is(err, apperrors.ErrAgentAtCapacity) {
			continue
		}
		break
	}
	if mode.Auto() && errors.Is(err, apperrors.ErrAgentAtCapacity) {
		err = apperrors.NewNoAvailableAgent(map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		c.recordOutcome("assign_failed", err)
		if apperrors.IsBusinessOutcome(err) {
			c.logger.Info("no available agent", zap.String("ticket_id", ticketID), zap.String("reason", mode.reason()))
		}
		return nil, err
	}
	if !outcome.changed {
		return ticket, nil
	}

	eventType := events.EventTicketAssigned
	if outcome.previous != "" {
		eventType = events.EventTicketReassigned
	}
	c.recordOutcome(string(eventType), nil)
	c.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("agent_id", outcome.agent.ID),
		zap.String("previous_agent_id", outcome.previous),
		zap.String("reason", mode.reason()))
	c.publish(ctx, eventType, ticket.ID, events.AssignmentPayload{
		OldAgentID: optional(outcome.previous),
		NewAgentID: optional(outcome.agent.ID),
		Team:       ticket.Team,
		Reason:     mode.reason(),
	})
	return ticket, nil
}

func (c *AssignmentCoordinator) applyAssign(ctx context.Context, t *domain.Ticket, mode AssignmentMode, out *assignOutcome) error {
	var agent *domain.Agent
	if mode.Auto() {
		best, err := c.engine.FindBestAgent(ctx, t.CategoryTag(), t.Priority)
		if err != nil {
			return err
		}
		if best == nil {
			return apperrors.NewNoAvailableAgent(map[string]any{"ticket_id": t.ID, "category": t.CategoryTag()})
		}
		agent = best
	} else {
		target, err := c.registry.Get(ctx, mode.AgentID)
		if err != nil {
			return err
		}
		agent = target
	}

	previous := t.AssignedAgentID()
	if previous == agent.ID {
		if t.Status.Terminal() || t.Status == domain.TicketStatusInProgress {
			return errNoChange
		}
		t.Status = domain.TicketStatusInProgress
		return nil
	}

	// Load only counts non-terminal tickets, so a terminal ticket only records the agent.
	if !t.Status.Terminal() {
		if previous != "" {
			if _, _, err := c.registry.Transfer(ctx, previous, agent.ID); err != nil {
				return err
			}
		} else if _, err := c.registry.IncrementLoad(ctx, agent.ID); err != nil {
			return err
		}
		t.Status = domain.TicketStatusInProgress
		now := c.now()
		t.AssignedAt = &now
	}
	setAssignee(t, agent)
	out.previous = previous
	out.agent = agent
	out.changed = true
	return nil
}

// Unassign releases the ticket's agent and returns it to NEW. Unassigning an
// unassigned ticket succeeds without changing anything.
func (c *AssignmentCoordinator) Unassign(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var previous string
	ticket, err := c.tickets.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Ticket) error {
		if !t.IsAssigned() {
			return errNoChange
		}
		previous = t.AssignedAgentID()
		if t.CountsAgainstLoad() {
			if _, err := c.registry.DecrementLoad(ctx, previous); err != nil {
				return err
			}
			t.Status = domain.TicketStatusNew
		}
		t.AssignedAgent = nil
		t.Team = nil
		t.AssignedAt = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	if previous == "" {
		return ticket, nil
	}
	c.recordOutcome(string(events.EventTicketUnassigned), nil)
	c.logger.Info("ticket unassigned", zap.String("ticket_id", ticket.ID), zap.String("agent_id", previous))
	c.publish(ctx, events.EventTicketUnassigned, ticket.ID, events.AssignmentPayload{
		OldAgentID: optional(previous),
		Reason:     events.ReasonUnassign,
	})
	return ticket, nil
}

// classificationSnapshot is the state a reassignment decision was made against.
type classificationSnapshot struct {
	version  int64
	agentID  string
	category string
	priority domain.TicketPriority
}

// OnClassificationUpdate records a classifier result and, when it is confident
// enough to change the category of an assigned ticket whose agent lacks the new
// skill, moves the ticket to a qualified agent. The move is re-validated against
// the ticket's current state; if another operation got there first it is dropped.
func (c *AssignmentCoordinator) OnClassificationUpdate(ctx context.Context, ticketID string, result domain.Classification) error {
	var (
		snapshot classificationSnapshot
		changed  bool
	)
	record := result.Clone()
	record.Category = domain.NormalizeCategory(record.Category)
	record.Applied = record.Confidence > c.cfg.ConfidenceThreshold
	record.ClassifiedAt = c.now()

	ticket, err := c.tickets.mutate(ctx, ticketID, func(_ context.Context, t *domain.Ticket) error {
		t.Classification = record
		if !record.Applied {
			return nil
		}
		if record.Category != "" {
			changed = !strings.EqualFold(t.CategoryTag(), record.Category)
			category := record.Category
			t.Category = &category
		}
		if record.Priority.Valid() {
			t.Priority = record.Priority
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.publish(ctx, events.EventTicketClassified, ticket.ID, events.TicketClassifiedPayload{
		Category:   record.Category,
		Priority:   record.Priority,
		Confidence: record.Confidence,
		Applied:    record.Applied,
	})
	if !record.Applied {
		c.logger.Info("classification below threshold",
			zap.String("ticket_id", ticket.ID),
			zap.Float64("confidence", record.Confidence))
		return nil
	}
	if !changed || !ticket.CountsAgainstLoad() {
		return nil
	}

	snapshot = classificationSnapshot{
		version:  ticket.Version,
		agentID:  ticket.AssignedAgentID(),
		category: ticket.CategoryTag(),
		priority: ticket.Priority,
	}
	current, err := c.registry.Get(ctx, snapshot.agentID)
	if err != nil {
		return err
	}
	if current.HasSkill(snapshot.category) {
		return nil
	}
	candidate, err := c.engine.FindBestAgent(ctx, snapshot.category, snapshot.priority)
	if err != nil {
		return err
	}
	if candidate == nil || candidate.ID == snapshot.agentID {
		c.logger.Info("no alternate agent for reclassified ticket",
			zap.String("ticket_id", ticket.ID),
			zap.String("agent_id", snapshot.agentID),
			zap.String("category", snapshot.category))
		return nil
	}
	return c.reassign(ctx, ticket.ID, snapshot, candidate)
}

func (c *AssignmentCoordinator) reassign(ctx context.Context, ticketID string, snapshot classificationSnapshot, candidate *domain.Agent) error {
	ticket, err := c.tickets.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Ticket) error {
		if t.Version != snapshot.version || t.AssignedAgentID() != snapshot.agentID || !t.CountsAgainstLoad() {
			return apperrors.NewStaleAssignment(t.ID)
		}
		if _, _, err := c.registry.Transfer(ctx, snapshot.agentID, candidate.ID); err != nil {
			return err
		}
		setAssignee(t, candidate)
		now := c.now()
		t.AssignedAt = &now
		return nil
	})
	if errors.Is(err, apperrors.ErrStaleAssignment) || errors.Is(err, apperrors.ErrAgentAtCapacity) {
		c.recordOutcome("reassign_aborted", err)
		c.logger.Info("classification reassignment aborted",
			zap.String("ticket_id", ticketID),
			zap.String("agent_id", snapshot.agentID),
			zap.String("candidate_agent_id", candidate.ID),
			zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	c.recordOutcome(string(events.EventTicketReassigned), nil)
	c.logger.Info("ticket reassigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("previous_agent_id", snapshot.agentID),
		zap.String("agent_id", candidate.ID),
		zap.String("reason", events.ReasonClassification))
	c.publish(ctx, events.EventTicketReassigned, ticket.ID, events.AssignmentPayload{
		OldAgentID: optional(snapshot.agentID),
		NewAgentID: optional(candidate.ID),
		Team:       ticket.Team,
		Reason:     events.ReasonClassification,
	})
	return nil
}

// OnStatusChange moves a ticket to newStatus. Entering RESOLVED or CLOSED from an
// open status releases the agent's load and counts one resolution; repeating a
// terminal status is a no-op. CLOSED is final. Reopening a RESOLVED ticket puts
// it back on its agent's load.
func (c *AssignmentCoordinator) OnStatusChange(ctx context.Context, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid ticket status", map[string]any{"status": newStatus})
	}
	var payload events.TicketStatusChangedPayload
	ticket, err := c.tickets.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Ticket) error {
		old := t.Status
		if old == newStatus {
			return errNoChange
		}
		if old == domain.TicketStatusClosed {
			return apperrors.NewInvalidTransition(string(old), string(newStatus))
		}
		if newStatus == domain.TicketStatusNew && t.IsAssigned() {
			return apperrors.NewInvalidTransition(string(old), string(newStatus))
		}

		now := c.now()
		payload = events.TicketStatusChangedPayload{OldStatus: old, NewStatus: newStatus, AgentID: t.AssignedAgent}
		switch {
		case !old.Terminal() && newStatus.Terminal():
			if t.IsAssigned() {
				var elapsed time.Duration
				if t.AssignedAt != nil {
					elapsed = now.Sub(*t.AssignedAt)
				}
				if _, err := c.registry.ReleaseForResolution(ctx, t.AssignedAgentID(), elapsed); err != nil {
					return err
				}
				payload.ReleasedLoad = true
			}
		case old.Terminal() && !newStatus.Terminal():
			if t.IsAssigned() {
				if _, err := c.registry.IncrementLoad(ctx, t.AssignedAgentID()); err != nil {
					return err
				}
				t.AssignedAt = &now
				payload.RestoredLoad = true
			}
			t.ResolvedAt = nil
		}

		t.Status = newStatus
		switch newStatus {
		case domain.TicketStatusResolved:
			t.ResolvedAt = &now
		case domain.TicketStatusClosed:
			if t.ResolvedAt == nil {
				t.ResolvedAt = &now
			}
			t.ClosedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if payload.NewStatus == "" {
		return ticket, nil
	}
	c.logger.Info("ticket status changed",
		zap.String("ticket_id", ticket.ID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)),
		zap.Bool("released_load", payload.ReleasedLoad),
		zap.Bool("restored_load", payload.RestoredLoad))
	c.publish(ctx, events.EventTicketStatusChanged, ticket.ID, payload)
	return ticket, nil
}

func setAssignee(t *domain.Ticket, agent *domain.Agent) {
	id := agent.ID
	t.AssignedAgent = &id
	t.Team = nil
	if agent.Team != nil {
		team := *agent.Team
		t.Team = &team
	}
}

func (c *AssignmentCoordinator) recordOutcome(outcome string, err error) {
	if err != nil {
		if de := apperrors.ToDomainError(err); de != nil {
			outcome = outcome + ":" + de.Code
		}
	}
	c.metrics.RecordAssignment(outcome)
}

func (c *AssignmentCoordinator) publish(ctx context.Context, eventType events.EventType, ticketID string, payload interface{}) {
	if c.dispatcher == nil {
		return
	}
	_ = c.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Timestamp: c.now(),
		Payload:   payload,
	})
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
