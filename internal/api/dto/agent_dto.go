package dto

import (
	"time"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// CreateAgentRequest payload.
type CreateAgentRequest struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Team        *string  `json:"team"`
	Skills      []string `json:"skills"`
	MaxCapacity int      `json:"max_capacity"`
}

// UpdateAgentRequest is a partial update; omitted fields are unchanged.
type UpdateAgentRequest struct {
	Name        *string             `json:"name"`
	Email       *string             `json:"email"`
	Team        *string             `json:"team"`
	Skills      *[]string           `json:"skills"`
	MaxCapacity *int                `json:"max_capacity"`
	Status      *domain.AgentStatus `json:"status"`
	Enabled     *bool               `json:"enabled"`
}

// AgentStatusRequest payload.
type AgentStatusRequest struct {
	Status string `json:"status"`
}

// AgentResponse representation.
type AgentResponse struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Email                string             `json:"email"`
	Team                 *string            `json:"team"`
	Skills               []string           `json:"skills"`
	MaxCapacity          int                `json:"max_capacity"`
	CurrentLoad          int                `json:"current_load"`
	Status               domain.AgentStatus `json:"status"`
	Enabled              bool               `json:"enabled"`
	TotalResolved        int                `json:"total_resolved"`
	AvgResolutionMinutes *float64           `json:"avg_resolution_minutes"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	LastActive           time.Time          `json:"last_active"`
}

// AgentStatsResponse is one row of the capacity dashboard.
type AgentStatsResponse struct {
	AgentID               string             `json:"agent_id"`
	Name                  string             `json:"name"`
	Team                  *string            `json:"team"`
	CurrentLoad           int                `json:"current_load"`
	MaxCapacity           int                `json:"max_capacity"`
	UtilizationPercentage float64            `json:"utilization_percentage"`
	AvailableCapacity     int                `json:"available_capacity"`
	IsAvailable           bool               `json:"is_available"`
	TotalResolved         int                `json:"total_resolved"`
	AvgResolutionMinutes  *float64           `json:"avg_resolution_minutes"`
	Status                domain.AgentStatus `json:"status"`
}

// NewAgentResponse maps a domain agent.
func NewAgentResponse(a *domain.Agent) AgentResponse {
	skills := a.Skills
	if skills == nil {
		skills = []string{}
	}
	return AgentResponse{
		ID:                   a.ID,
		Name:                 a.Name,
		Email:                a.Email,
		Team:                 a.Team,
		Skills:               skills,
		MaxCapacity:          a.MaxCapacity,
		CurrentLoad:          a.CurrentLoad,
		Status:               a.Status,
		Enabled:              a.Enabled,
		TotalResolved:        a.TotalResolved,
		AvgResolutionMinutes: a.AvgResolutionMinutes,
		CreatedAt:            a.CreatedAt,
		UpdatedAt:            a.UpdatedAt,
		LastActive:           a.LastActive,
	}
}
