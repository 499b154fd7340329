package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/events"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// ClassificationQueue accepts tickets for background classification.
type ClassificationQueue interface {
	Submit(ticket *domain.Ticket) bool
}

// IntakeService handles ticket submission: store, optionally auto-assign, then
// queue for classification.
type IntakeService struct {
	tickets     *TicketStore
	coordinator *AssignmentCoordinator
	queue       ClassificationQueue
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	autoAssign  bool
}

// NewIntakeService constructs the service. queue may be nil, which skips classification.
func NewIntakeService(tickets *TicketStore, coordinator *AssignmentCoordinator, queue ClassificationQueue, dispatcher events.Dispatcher, logger *zap.Logger, autoAssign bool) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		tickets:     tickets,
		coordinator: coordinator,
		queue:       queue,
		dispatcher:  dispatcher,
		logger:      logger,
		autoAssign:  autoAssign,
	}
}

// Submit creates a ticket. A ticket nobody can take yet stays NEW; that is not
// an error for the submitter.
func (s *IntakeService) Submit(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ticket created", zap.String("ticket_id", ticket.ID), zap.String("customer_id", ticket.CustomerID))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTicketCreated,
			TicketID:  ticket.ID,
			Timestamp: time.Now(),
			Payload: events.TicketCreatedPayload{
				CustomerID: ticket.CustomerID,
				Priority:   ticket.Priority,
				Subject:    ticket.Subject,
				Source:     ticket.Source,
			},
		})
	}

	if s.autoAssign {
		assigned, err := s.coordinator.Assign(ctx, ticket.ID, AutoAssign())
		switch {
		case err == nil:
			ticket = assigned
		case errors.Is(err, apperrors.ErrNoAvailableAgent):
			// queued; Assign already logged the outcome
		default:
			s.logger.Error("auto-assign on create", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if s.queue != nil {
		s.queue.Submit(ticket)
	}
	return ticket, nil
}
