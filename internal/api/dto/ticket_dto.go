package dto

import (
	"time"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CustomerEmail string                `json:"customer_email"`
	CustomerName  *string               `json:"customer_name"`
	Subject       string                `json:"subject"`
	Description   string                `json:"description"`
	OrderID       *string               `json:"order_id"`
	Source        string                `json:"source"`
	Category      *string               `json:"category"`
	Priority      domain.TicketPriority `json:"priority"`
	Tags          []string              `json:"tags"`
}

// TicketStatusRequest payload.
type TicketStatusRequest struct {
	Status string `json:"status"`
}

// AssignTicketRequest selects manual assignment by agent_id or auto routing.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
	Auto    bool   `json:"auto"`
}

// ClassificationRequest is the external classifier callback body.
type ClassificationRequest struct {
	Category        string         `json:"category"`
	Priority        string         `json:"priority"`
	Confidence      float64        `json:"confidence"`
	Sentiment       string         `json:"sentiment"`
	UrgencyKeywords []string       `json:"urgency_keywords"`
	ExtractedInfo   map[string]any `json:"extracted_info"`
}

// ClassificationResponse shows the recorded classifier output.
type ClassificationResponse struct {
	Category        string                `json:"ai_suggested_category"`
	Priority        domain.TicketPriority `json:"ai_suggested_priority"`
	Confidence      float64               `json:"ai_confidence"`
	Sentiment       string                `json:"sentiment,omitempty"`
	UrgencyKeywords []string              `json:"urgency_keywords"`
	ExtractedInfo   map[string]any        `json:"extracted_metadata,omitempty"`
	Applied         bool                  `json:"applied"`
	ClassifiedAt    time.Time             `json:"classified_at"`
}

// TicketResponse representation.
type TicketResponse struct {
	ID             string                  `json:"id"`
	CustomerID     string                  `json:"customer_id"`
	CustomerEmail  string                  `json:"customer_email"`
	CustomerName   *string                 `json:"customer_name,omitempty"`
	Subject        string                  `json:"subject"`
	Description    string                  `json:"description"`
	OrderID        *string                 `json:"order_id,omitempty"`
	Source         string                  `json:"source"`
	Category       *string                 `json:"category"`
	Priority       domain.TicketPriority   `json:"priority"`
	Status         domain.TicketStatus     `json:"status"`
	AssignedAgent  *string                 `json:"assigned_agent"`
	Team           *string                 `json:"team"`
	Tags           []string                `json:"tags"`
	Classification *ClassificationResponse `json:"classification,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
	AssignedAt     *time.Time              `json:"assigned_at,omitempty"`
	ResolvedAt     *time.Time              `json:"resolved_at,omitempty"`
	ClosedAt       *time.Time              `json:"closed_at,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	resp := TicketResponse{
		ID:            t.ID,
		CustomerID:    t.CustomerID,
		CustomerEmail: t.CustomerEmail,
		CustomerName:  t.CustomerName,
		Subject:       t.Subject,
		Description:   t.Description,
		OrderID:       t.OrderID,
		Source:        t.Source,
		Category:      t.Category,
		Priority:      t.Priority,
		Status:        t.Status,
		AssignedAgent: t.AssignedAgent,
		Team:          t.Team,
		Tags:          tags,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
		AssignedAt:    t.AssignedAt,
		ResolvedAt:    t.ResolvedAt,
		ClosedAt:      t.ClosedAt,
	}
	if c := t.Classification; c != nil {
		keywords := c.UrgencyKeywords
		if keywords == nil {
			keywords = []string{}
		}
		resp.Classification = &ClassificationResponse{
			Category:        c.Category,
			Priority:        c.Priority,
			Confidence:      c.Confidence,
			Sentiment:       c.Sentiment,
			UrgencyKeywords: keywords,
			ExtractedInfo:   c.ExtractedInfo,
			Applied:         c.Applied,
			ClassifiedAt:    c.ClassifiedAt,
		}
	}
	return resp
}
