package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/spec-kit/ticket-router/internal/domain"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

var ticketIDPattern = regexp.MustCompile(`^TKT-\d{8}-[0-9A-F]{8}$`)

func TestCreateTicket(t *testing.T) {
	env := newTestEnv(t)
	category := " shipping "
	ticket, err := env.tickets.Create(context.Background(), TicketCreateInput{
		CustomerEmail: "Jane@Example.com",
		Subject:       "  Late parcel ",
		Description:   "Still waiting",
		Category:      &category,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !ticketIDPattern.MatchString(ticket.ID) {
		t.Errorf("id %q does not match %s", ticket.ID, ticketIDPattern)
	}
	if !regexp.MustCompile(`^CUST-\d{5}$`).MatchString(ticket.CustomerID) {
		t.Errorf("customer id = %q", ticket.CustomerID)
	}
	if ticket.Status != domain.TicketStatusNew || ticket.Priority != domain.TicketPriorityMedium || ticket.IsAssigned() {
		t.Errorf("ticket = %+v", ticket)
	}
	if ticket.CategoryTag() != "SHIPPING" || ticket.Subject != "Late parcel" || ticket.Source != "web" {
		t.Errorf("normalization: category=%s subject=%q source=%s", ticket.CategoryTag(), ticket.Subject, ticket.Source)
	}

	again, err := env.tickets.Create(context.Background(), TicketCreateInput{
		CustomerEmail: "jane@example.com",
		Subject:       "Another",
		Description:   "Another one",
	})
	if err != nil {
		t.Fatal(err)
	}
	if again.CustomerID != ticket.CustomerID {
		t.Errorf("customer id differs by email case: %s vs %s", again.CustomerID, ticket.CustomerID)
	}
	if again.ID == ticket.ID {
		t.Error("ticket ids collide")
	}
}

func TestCreateTicketValidation(t *testing.T) {
	tests := []struct {
		name  string
		input TicketCreateInput
		field string
	}{
		{"missing email", TicketCreateInput{Subject: "s", Description: "d"}, "customer_email"},
		{"missing subject", TicketCreateInput{CustomerEmail: "a@b.c", Description: "d"}, "subject"},
		{"blank description", TicketCreateInput{CustomerEmail: "a@b.c", Subject: "s", Description: "  "}, "description"},
		{"bad priority", TicketCreateInput{CustomerEmail: "a@b.c", Subject: "s", Description: "d", Priority: "URGENT"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.tickets.Create(context.Background(), tt.input)
			var de *apperrors.DomainError
			if !errors.As(err, &de) || de.Code != apperrors.CodeValidationFailed {
				t.Fatalf("err = %v", err)
			}
			if _, ok := de.Details[tt.field]; !ok {
				t.Errorf("details = %v, want %q", de.Details, tt.field)
			}
		})
	}
}

func TestGetUnknownTicket(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.tickets.Get(context.Background(), "TKT-00000000-DEADBEEF"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}

func TestMutateNoChangeReturnsStored(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	created := env.createTicket(t, "SHIPPING")

	got, err := env.tickets.mutate(ctx, created.ID, func(_ context.Context, tk *domain.Ticket) error {
		tk.Subject = "discarded"
		return errNoChange
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Subject != created.Subject || got.Version != created.Version {
		t.Errorf("ticket = %+v", got)
	}
}
