package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// errNoChange aborts a ticket mutation that would leave the ticket as it is.
var errNoChange = errors.New("no change")

// TicketStore owns ticket records. Assignment and status changes go through
// AssignmentCoordinator, which uses the unexported mutate.
type TicketStore struct {
	tickets repository.TicketRepository
	now     func() time.Time
}

// TicketCreateInput describes ticket submission.
type TicketCreateInput struct {
	CustomerEmail string
	CustomerName  *string
	Subject       string
	Description   string
	OrderID       *string
	Source        string
	Category      *string
	Priority      domain.TicketPriority
	Tags          []string
}

// NewTicketStore constructs the store.
func NewTicketStore(tickets repository.TicketRepository) *TicketStore {
	return &TicketStore{tickets: tickets, now: time.Now}
}

// Create stores a NEW, unassigned ticket.
func (s *TicketStore) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	details := map[string]any{}
	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" || !strings.Contains(email, "@") {
		details["customer_email"] = "valid email required"
	}
	if strings.TrimSpace(input.Subject) == "" {
		details["subject"] = "required"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "required"
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		details["priority"] = "invalid priority"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ticket", details)
	}

	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = "web"
	}
	var category *string
	if input.Category != nil {
		if tag := domain.NormalizeCategory(*input.Category); tag != "" {
			category = &tag
		}
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:            generateTicketID(now),
		CustomerID:    customerID(email),
		CustomerEmail: email,
		CustomerName:  trimOptional(input.CustomerName),
		Subject:       strings.TrimSpace(input.Subject),
		Description:   strings.TrimSpace(input.Description),
		OrderID:       trimOptional(input.OrderID),
		Source:        source,
		Category:      category,
		Priority:      priority,
		Status:        domain.TicketStatusNew,
		Tags:          append([]string{}, input.Tags...),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.NewDuplicateID("ticket", ticket.ID)
		}
		return nil, err
	}
	return ticket, nil
}

// Get returns a ticket by id.
func (s *TicketStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketError(err, id)
	}
	return ticket, nil
}

// List returns tickets newest first.
func (s *TicketStore) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, filter)
}

// mutate runs fn under the ticket's lock and stamps UpdatedAt. If fn returns
// errNoChange the stored ticket is returned unmodified.
func (s *TicketStore) mutate(ctx context.Context, id string, fn repository.TicketMutation) (*domain.Ticket, error) {
	ticket, err := s.tickets.Mutate(ctx, id, func(ctx context.Context, t *domain.Ticket) error {
		if err := fn(ctx, t); err != nil {
			return err
		}
		t.UpdatedAt = s.now()
		return nil
	})
	if errors.Is(err, errNoChange) {
		return s.Get(ctx, id)
	}
	if err != nil {
		return nil, ticketError(err, id)
	}
	return ticket, nil
}

func ticketError(err error, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return err
}

func generateTicketID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("TKT-%s-%s", now.UTC().Format("20060102"), suffix)
}

func customerID(email string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(email)))
	return fmt.Sprintf("CUST-%05d", h.Sum32()%100000)
}
