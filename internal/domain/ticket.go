package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusNew, TicketStatusOpen, TicketStatusInProgress, TicketStatusPending,
		TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Terminal reports statuses that no longer count against agent load.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// ParseTicketStatus accepts any casing.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	s := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// ParseTicketPriority accepts any casing.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	return p, p.Valid()
}

// Category tags used by the classifier and as agent skills.
const (
	CategoryShipping  = "SHIPPING"
	CategoryBilling   = "BILLING"
	CategoryProduct   = "PRODUCT"
	CategoryAccount   = "ACCOUNT"
	CategoryTechnical = "TECHNICAL"
	CategoryRefund    = "REFUND"
	CategoryGeneral   = "GENERAL"
	CategoryOther     = "OTHER"
)

// NormalizeCategory upper-cases and trims a tag.
func NormalizeCategory(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// KnownCategory reports whether tag is one of the standard categories.
func KnownCategory(tag string) bool {
	switch NormalizeCategory(tag) {
	case CategoryShipping, CategoryBilling, CategoryProduct, CategoryAccount,
		CategoryTechnical, CategoryRefund, CategoryGeneral, CategoryOther:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID             string
	CustomerID     string
	CustomerEmail  string
	CustomerName   *string
	Subject        string
	Description    string
	OrderID        *string
	Source         string
	Category       *string
	Priority       TicketPriority
	Status         TicketStatus
	AssignedAgent  *string
	Team           *string
	Tags           []string
	Classification *Classification
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	AssignedAt     *time.Time
	ResolvedAt     *time.Time
	ClosedAt       *time.Time
}

// IsAssigned reports whether an agent is recorded on the ticket.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedAgent != nil && *t.AssignedAgent != ""
}

// AssignedAgentID returns the agent id or an empty string.
func (t *Ticket) AssignedAgentID() string {
	if t.AssignedAgent == nil {
		return ""
	}
	return *t.AssignedAgent
}

// CategoryTag returns the category or an empty string.
func (t *Ticket) CategoryTag() string {
	if t.Category == nil {
		return ""
	}
	return *t.Category
}

// CountsAgainstLoad reports whether an agent's load accounts for this ticket.
func (t *Ticket) CountsAgainstLoad() bool {
	return t.IsAssigned() && !t.Status.Terminal()
}

// Clone returns a deep copy safe to hand out of a store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	cp := *t
	cp.CustomerName = cloneString(t.CustomerName)
	cp.OrderID = cloneString(t.OrderID)
	cp.Category = cloneString(t.Category)
	cp.AssignedAgent = cloneString(t.AssignedAgent)
	cp.Team = cloneString(t.Team)
	cp.Tags = cloneStrings(t.Tags)
	cp.AssignedAt = cloneTime(t.AssignedAt)
	cp.ResolvedAt = cloneTime(t.ResolvedAt)
	cp.ClosedAt = cloneTime(t.ClosedAt)
	if t.Classification != nil {
		cp.Classification = t.Classification.Clone()
	}
	return &cp
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneStrings(v []string) []string {
	if v == nil {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
