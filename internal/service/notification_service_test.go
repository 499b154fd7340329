package service

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-router/internal/config"
	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/events"
)

func TestNotificationsFollowEvents(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	n := NewNotificationService(dispatcher, zap.New(core), config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "https://hooks.example.com/tickets",
	})
	n.RegisterHandlers()
	ctx := context.Background()

	agent := "A"
	_ = dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: "T1",
		Payload:  events.AssignmentPayload{NewAgentID: &agent, Reason: events.ReasonAuto},
	})
	assigned := logs.FilterMessage("TicketAssignmentChanged").All()
	if len(assigned) != 1 || assigned[0].ContextMap()["agent_id"] != "A" {
		t.Fatalf("assignment log = %+v", assigned)
	}

	_ = dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "T1",
		Payload:  events.TicketStatusChangedPayload{OldStatus: domain.TicketStatusInProgress, NewStatus: domain.TicketStatusPending},
	})
	_ = dispatcher.Publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: "T1",
		Payload:  events.TicketStatusChangedPayload{OldStatus: domain.TicketStatusPending, NewStatus: domain.TicketStatusResolved},
	})
	if got := logs.FilterMessage("sendEmailNotificationStub").Len(); got != 1 {
		t.Errorf("emails = %d, want 1 for the terminal status only", got)
	}
	if got := logs.FilterMessage("sendWebhookNotificationStub").Len(); got != 3 {
		t.Errorf("webhooks = %d, want 3", got)
	}
}
