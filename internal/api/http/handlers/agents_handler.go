package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-router/internal/api/dto"
	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
	"github.com/spec-kit/ticket-router/internal/service"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// AgentsHandler exposes agent administration and capacity endpoints.
type AgentsHandler struct {
	registry *service.AgentRegistry
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(registry *service.AgentRegistry) *AgentsHandler {
	return &AgentsHandler{registry: registry}
}

// Create POST /api/agents.
func (h *AgentsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.registry.Register(c.UserContext(), service.AgentCreateInput{
		ID:          req.ID,
		Name:        req.Name,
		Email:       req.Email,
		Team:        req.Team,
		Skills:      req.Skills,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// List GET /api/agents.
func (h *AgentsHandler) List(c *fiber.Ctx) error {
	filter := repository.AgentFilter{EnabledOnly: c.QueryBool("enabled_only", false)}
	if team := strings.TrimSpace(c.Query("team")); team != "" {
		filter.Team = &team
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := domain.ParseAgentStatus(raw)
		if !ok {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}
	agents, err := h.registry.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponses(agents)})
}

// Get GET /api/agents/:id.
func (h *AgentsHandler) Get(c *fiber.Ctx) error {
	agent, err := h.registry.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// Update PUT /api/agents/:id.
func (h *AgentsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.AgentUpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		Team:        req.Team,
		MaxCapacity: req.MaxCapacity,
		Enabled:     req.Enabled,
	}
	if req.Skills != nil {
		input.Skills = append([]string{}, (*req.Skills)...)
	}
	if req.Status != nil {
		status, ok := domain.ParseAgentStatus(string(*req.Status))
		if !ok {
			return apperrors.NewValidationError("invalid status", map[string]any{"status": *req.Status})
		}
		input.Status = &status
	}
	agent, err := h.registry.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// Deactivate DELETE /api/agents/:id. Agents are never hard-deleted.
func (h *AgentsHandler) Deactivate(c *fiber.Ctx) error {
	agent, err := h.registry.Deactivate(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// SetStatus POST /api/agents/:id/status.
func (h *AgentsHandler) SetStatus(c *fiber.Ctx) error {
	var req dto.AgentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	status, ok := domain.ParseAgentStatus(req.Status)
	if !ok {
		return apperrors.NewValidationError("invalid status", map[string]any{"status": req.Status})
	}
	agent, err := h.registry.SetStatus(c.UserContext(), c.Params("id"), status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAgentResponse(agent)})
}

// Available GET /api/agents/available?skill=.
func (h *AgentsHandler) Available(c *fiber.Ctx) error {
	agents, err := h.registry.ListAvailable(c.UserContext(), c.Query("skill"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponses(agents)})
}

// Stats GET /api/agents/stats.
func (h *AgentsHandler) Stats(c *fiber.Ctx) error {
	var team *string
	if raw := strings.TrimSpace(c.Query("team")); raw != "" {
		team = &raw
	}
	stats, err := h.registry.Stats(c.UserContext(), team)
	if err != nil {
		return err
	}
	items := make([]dto.AgentStatsResponse, 0, len(stats))
	for _, s := range stats {
		items = append(items, dto.AgentStatsResponse{
			AgentID:               s.AgentID,
			Name:                  s.Name,
			Team:                  s.Team,
			CurrentLoad:           s.CurrentLoad,
			MaxCapacity:           s.MaxCapacity,
			UtilizationPercentage: s.UtilizationPercent,
			AvailableCapacity:     s.AvailableCapacity,
			IsAvailable:           s.IsAvailable,
			TotalResolved:         s.TotalResolved,
			AvgResolutionMinutes:  s.AvgResolutionMinutes,
			Status:                s.Status,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func agentResponses(agents []domain.Agent) []dto.AgentResponse {
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, dto.NewAgentResponse(&agents[i]))
	}
	return items
}
