package service

import (
	"context"
	"strings"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
)

// RoutingEngine selects the best agent for a ticket from the current registry state.
type RoutingEngine struct {
	registry *AgentRegistry
}

// NewRoutingEngine constructs the engine.
func NewRoutingEngine(registry *AgentRegistry) *RoutingEngine {
	return &RoutingEngine{registry: registry}
}

// FindBestAgent returns the least-loaded available agent whose skills contain
// category, or nil when no agent qualifies. An empty category matches any skill set.
//
// priority is reserved for priority-weighted selection and currently has no
// effect on the choice.
func (e *RoutingEngine) FindBestAgent(ctx context.Context, category string, priority domain.TicketPriority) (*domain.Agent, error) {
	agents, err := e.registry.List(ctx, repository.AgentFilter{EnabledOnly: true})
	if err != nil {
		return nil, err
	}
	return SelectBestAgent(agents, category), nil
}

// SelectBestAgent applies the matching rules to a snapshot of agents: enabled,
// ACTIVE, below capacity and, when category is set, holding it as a skill
// (case-insensitive, exact). Minimum load wins; ties go to the smaller id.
func SelectBestAgent(agents []domain.Agent, category string) *domain.Agent {
	category = strings.TrimSpace(category)
	var best *domain.Agent
	for i := range agents {
		candidate := &agents[i]
		if !candidate.Available() {
			continue
		}
		if category != "" && !candidate.HasSkill(category) {
			continue
		}
		if best == nil ||
			candidate.CurrentLoad < best.CurrentLoad ||
			(candidate.CurrentLoad == best.CurrentLoad && candidate.ID < best.ID) {
			best = candidate
		}
	}
	if best == nil {
		return nil
	}
	return best.Clone()
}
