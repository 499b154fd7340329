package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-router/internal/api/dto"
	"github.com/spec-kit/ticket-router/internal/classifier"
	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
	"github.com/spec-kit/ticket-router/internal/service"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// TicketsHandler manages ticket intake, routing and status endpoints.
type TicketsHandler struct {
	intake      *service.IntakeService
	tickets     *service.TicketStore
	coordinator *service.AssignmentCoordinator
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(intake *service.IntakeService, tickets *service.TicketStore, coordinator *service.AssignmentCoordinator) *TicketsHandler {
	return &TicketsHandler{intake: intake, tickets: tickets, coordinator: coordinator}
}

// Create POST /api/tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority := req.Priority
	if priority != "" {
		parsed, ok := domain.ParseTicketPriority(string(priority))
		if !ok {
			return apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
		}
		priority = parsed
	}
	ticket, err := h.intake.Submit(c.UserContext(), service.TicketCreateInput{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Subject:       req.Subject,
		Description:   req.Description,
		OrderID:       req.OrderID,
		Source:        req.Source,
		Category:      req.Category,
		Priority:      priority,
		Tags:          req.Tags,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// List GET /api/tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /api/tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.tickets.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateStatus PUT /api/tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.TicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, ok := domain.ParseTicketStatus(req.Status)
	if !ok {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": req.Status})
	}
	ticket, err := h.coordinator.OnStatusChange(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Assign PUT /api/tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agentID := strings.TrimSpace(req.AgentID)
	var mode service.AssignmentMode
	switch {
	case req.Auto && agentID != "":
		return apperrors.NewValidationError("agent_id and auto are mutually exclusive", nil)
	case req.Auto:
		mode = service.AutoAssign()
	case agentID != "":
		mode = service.ManualAssign(agentID)
	default:
		return apperrors.NewValidationError("agent_id or auto required", nil)
	}
	ticket, err := h.coordinator.Assign(c.UserContext(), c.Params("id"), mode)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Unassign DELETE /api/tickets/:id/assign.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	ticket, err := h.coordinator.Unassign(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Classify POST /api/tickets/:id/classification, the callback for external classifiers.
func (h *TicketsHandler) Classify(c *fiber.Ctx) error {
	var req dto.ClassificationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Category) == "" {
		return apperrors.NewValidationError("category required", nil)
	}
	result := classifier.Normalize(&domain.Classification{
		Category:        req.Category,
		Priority:        domain.TicketPriority(req.Priority),
		Confidence:      req.Confidence,
		Sentiment:       req.Sentiment,
		UrgencyKeywords: req.UrgencyKeywords,
		ExtractedInfo:   req.ExtractedInfo,
	})
	id := c.Params("id")
	if err := h.coordinator.OnClassificationUpdate(c.UserContext(), id, *result); err != nil {
		return err
	}
	ticket, err := h.tickets.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) (repository.TicketFilter, error) {
	filter := repository.TicketFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, ok := domain.ParseTicketStatus(part)
			if !ok {
				return filter, apperrors.NewValidationError("invalid status", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			priority, ok := domain.ParseTicketPriority(part)
			if !ok {
				return filter, apperrors.NewValidationError("invalid priority", map[string]any{"priority": part})
			}
			filter.Priorities = append(filter.Priorities, priority)
		}
	}
	if agent := strings.TrimSpace(c.Query("assigned_agent")); agent != "" {
		filter.AssignedAgent = &agent
	}
	filter.Limit = parseInt(c.Query("limit"), repository.DefaultTicketLimit)
	return filter, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
