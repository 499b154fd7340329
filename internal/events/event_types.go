package events

import (
	"time"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketUnassigned    EventType = "ticket_unassigned"
	EventTicketReassigned    EventType = "ticket_reassigned"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketClassified    EventType = "ticket_classified"
)

// AllEventTypes lists every event the coordinator emits.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketAssigned,
	EventTicketUnassigned,
	EventTicketReassigned,
	EventTicketStatusChanged,
	EventTicketClassified,
}

// Assignment reasons.
const (
	ReasonManual         = "manual"
	ReasonAuto           = "auto"
	ReasonClassification = "classification"
	ReasonUnassign       = "unassign"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string                `json:"customer_id"`
	Priority   domain.TicketPriority `json:"priority"`
	Subject    string                `json:"subject"`
	Source     string                `json:"source"`
}

// AssignmentPayload is shared by assigned, unassigned and reassigned events.
type AssignmentPayload struct {
	OldAgentID *string `json:"old_agent_id,omitempty"`
	NewAgentID *string `json:"new_agent_id,omitempty"`
	Team       *string `json:"team,omitempty"`
	Reason     string  `json:"reason"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	AgentID      *string             `json:"agent_id,omitempty"`
	ReleasedLoad bool                `json:"released_load"`
	RestoredLoad bool                `json:"restored_load"`
}

// TicketClassifiedPayload payload.
type TicketClassifiedPayload struct {
	Category   string                `json:"category"`
	Priority   domain.TicketPriority `json:"priority"`
	Confidence float64               `json:"confidence"`
	Applied    bool                  `json:"applied"`
}
