package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/repository"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// AgentRegistry owns agent records and their load counters.
type AgentRegistry struct {
	agents repository.AgentRepository
	logger *zap.Logger
	now    func() time.Time
}

// AgentCreateInput describes agent registration.
type AgentCreateInput struct {
	ID          string
	Name        string
	Email       string
	Team        *string
	Skills      []string
	MaxCapacity int
}

// AgentUpdateInput is a partial update; nil fields are left untouched.
// A non-nil empty Skills slice clears the skill set.
type AgentUpdateInput struct {
	Name        *string
	Email       *string
	Team        *string
	Skills      []string
	MaxCapacity *int
	Status      *domain.AgentStatus
	Enabled     *bool
}

// AgentStats summarizes capacity for dashboards.
type AgentStats struct {
	AgentID              string
	Name                 string
	Team                 *string
	CurrentLoad          int
	MaxCapacity          int
	UtilizationPercent   float64
	AvailableCapacity    int
	IsAvailable          bool
	TotalResolved        int
	AvgResolutionMinutes *float64
	Status               domain.AgentStatus
}

// NewAgentRegistry constructs the registry.
func NewAgentRegistry(agents repository.AgentRepository, logger *zap.Logger) *AgentRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentRegistry{agents: agents, logger: logger, now: time.Now}
}

// Register stores a new agent with zero load.
func (r *AgentRegistry) Register(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	capacity := input.MaxCapacity
	if capacity == 0 {
		capacity = domain.DefaultAgentCapacity
	}
	agent := &domain.Agent{
		ID:          strings.TrimSpace(input.ID),
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.TrimSpace(input.Email),
		Team:        trimOptional(input.Team),
		Skills:      domain.NormalizeSkills(input.Skills),
		MaxCapacity: capacity,
		Status:      domain.AgentStatusActive,
		Enabled:     true,
		LastActive:  r.now(),
	}
	if err := validateAgent(agent); err != nil {
		return nil, err
	}
	if err := r.agents.Create(ctx, agent); err != nil {
		return nil, agentError(err, agent.ID)
	}
	r.logger.Info("agent registered",
		zap.String("agent_id", agent.ID),
		zap.Strings("skills", agent.Skills),
		zap.Int("max_capacity", agent.MaxCapacity))
	return agent, nil
}

// Get returns an agent by id.
func (r *AgentRegistry) Get(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := r.agents.GetByID(ctx, id)
	if err != nil {
		return nil, agentError(err, id)
	}
	return agent, nil
}

// List returns agents ordered by id.
func (r *AgentRegistry) List(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	return r.agents.List(ctx, filter)
}

// Update applies a partial administrative update. Load is never touched here.
func (r *AgentRegistry) Update(ctx context.Context, id string, input AgentUpdateInput) (*domain.Agent, error) {
	agent, err := r.agents.Mutate(ctx, id, func(a *domain.Agent) error {
		if input.Name != nil {
			a.Name = strings.TrimSpace(*input.Name)
		}
		if input.Email != nil {
			a.Email = strings.TrimSpace(*input.Email)
		}
		if input.Team != nil {
			a.Team = trimOptional(input.Team)
		}
		if input.Skills != nil {
			a.Skills = domain.NormalizeSkills(input.Skills)
		}
		if input.MaxCapacity != nil {
			a.MaxCapacity = *input.MaxCapacity
		}
		if input.Enabled != nil {
			a.Enabled = *input.Enabled
		}
		if input.Status != nil {
			if !input.Status.Valid() {
				return apperrors.NewValidationError("invalid agent status", map[string]any{"status": *input.Status})
			}
			applyStatus(a, *input.Status)
		}
		if err := validateAgent(a); err != nil {
			return err
		}
		if a.MaxCapacity < a.CurrentLoad {
			return apperrors.NewValidationError("max_capacity below current load", map[string]any{
				"agent_id":     a.ID,
				"current_load": a.CurrentLoad,
				"max_capacity": a.MaxCapacity,
			})
		}
		a.LastActive = r.now()
		return nil
	})
	if err != nil {
		return nil, agentError(err, id)
	}
	return agent, nil
}

// SetStatus changes availability. OFFLINE also disables the agent.
func (r *AgentRegistry) SetStatus(ctx context.Context, id string, status domain.AgentStatus) (*domain.Agent, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid agent status", map[string]any{"status": status})
	}
	agent, err := r.agents.Mutate(ctx, id, func(a *domain.Agent) error {
		applyStatus(a, status)
		a.LastActive = r.now()
		return nil
	})
	if err != nil {
		return nil, agentError(err, id)
	}
	r.logger.Info("agent status changed", zap.String("agent_id", id), zap.String("status", string(status)))
	return agent, nil
}

// Deactivate disables the agent and marks it OFFLINE. Agents are never hard-deleted.
func (r *AgentRegistry) Deactivate(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := r.agents.Mutate(ctx, id, func(a *domain.Agent) error {
		a.Enabled = false
		a.Status = domain.AgentStatusOffline
		a.LastActive = r.now()
		return nil
	})
	if err != nil {
		return nil, agentError(err, id)
	}
	r.logger.Info("agent deactivated", zap.String("agent_id", id))
	return agent, nil
}

// ListAvailable returns enabled ACTIVE agents with spare capacity holding skill.
// An empty skill matches every agent. Results are ordered by load, then id.
func (r *AgentRegistry) ListAvailable(ctx context.Context, skill string) ([]domain.Agent, error) {
	all, err := r.agents.List(ctx, repository.AgentFilter{EnabledOnly: true})
	if err != nil {
		return nil, err
	}
	skill = strings.TrimSpace(skill)
	available := make([]domain.Agent, 0, len(all))
	for i := range all {
		if !all[i].Available() {
			continue
		}
		if skill != "" && !all[i].HasSkill(skill) {
			continue
		}
		available = append(available, all[i])
	}
	domain.SortAgentsByLoad(available)
	return available, nil
}

// Stats reports utilization per agent, available agents first, then by load and id.
func (r *AgentRegistry) Stats(ctx context.Context, team *string) ([]AgentStats, error) {
	agents, err := r.agents.List(ctx, repository.AgentFilter{Team: team})
	if err != nil {
		return nil, err
	}
	stats := make([]AgentStats, 0, len(agents))
	for i := range agents {
		a := &agents[i]
		stats = append(stats, AgentStats{
			AgentID:              a.ID,
			Name:                 a.Name,
			Team:                 a.Team,
			CurrentLoad:          a.CurrentLoad,
			MaxCapacity:          a.MaxCapacity,
			UtilizationPercent:   a.Utilization(),
			AvailableCapacity:    a.AvailableCapacity(),
			IsAvailable:          a.Available(),
			TotalResolved:        a.TotalResolved,
			AvgResolutionMinutes: a.AvgResolutionMinutes,
			Status:               a.Status,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].IsAvailable != stats[j].IsAvailable {
			return stats[i].IsAvailable
		}
		if stats[i].CurrentLoad != stats[j].CurrentLoad {
			return stats[i].CurrentLoad < stats[j].CurrentLoad
		}
		return stats[i].AgentID < stats[j].AgentID
	})
	return stats, nil
}

// IncrementLoad adds one ticket to the agent's load, failing at capacity.
func (r *AgentRegistry) IncrementLoad(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := r.agents.Mutate(ctx, id, func(a *domain.Agent) error {
		if !a.HasCapacity() {
			return apperrors.NewAgentAtCapacity(a.ID, a.MaxCapacity)
		}
		a.CurrentLoad++
		a.LastActive = r.now()
		return nil
	})
	if err != nil {
		return nil, agentError(err, id)
	}
	return agent, nil
}

// DecrementLoad removes one ticket from the agent's load, clamping at zero.
// It does not count a resolution; see ReleaseForResolution.
func (r *AgentRegistry) DecrementLoad(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := r.agents.Mutate(ctx, id, func(a *domain.Agent) error {
		if a.CurrentLoad > 0 {
			a.CurrentLoad--
		}
		a.LastActive = r.now()
		return nil
	})
	if err != nil {
		return nil, agentError(err, id)
	}
	return agent, nil
}

// ReleaseForResolution decrements load and, when a ticket was actually released,
// counts one resolution taking elapsed.
func (r *AgentRegistry) ReleaseForResolution(ctx context.Context, id string, elapsed time.Duration) (*domain.Agent, error) {
	agent, err := r.agents.Mutate(ctx, id, func(a *domain.Agent) error {
		if a.CurrentLoad > 0 {
			a.CurrentLoad--
			a.RecordResolution(elapsed)
		}
		a.LastActive = r.now()
		return nil
	})
	if err != nil {
		return nil, agentError(err, id)
	}
	return agent, nil
}

// Transfer moves one ticket of load from one agent to another as a single step.
// It fails with AgentAtCapacity, leaving both agents untouched, if the target is full.
func (r *AgentRegistry) Transfer(ctx context.Context, fromID, toID string) (*domain.Agent, *domain.Agent, error) {
	from, to, err := r.agents.MutatePair(ctx, fromID, toID, func(from, to *domain.Agent) error {
		if !to.HasCapacity() {
			return apperrors.NewAgentAtCapacity(to.ID, to.MaxCapacity)
		}
		if from.CurrentLoad > 0 {
			from.CurrentLoad--
		}
		to.CurrentLoad++
		now := r.now()
		from.LastActive = now
		to.LastActive = now
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperrors.NewNotFound("agent", map[string]any{"agent_ids": []string{fromID, toID}})
		}
		return nil, nil, err
	}
	return from, to, nil
}

func applyStatus(a *domain.Agent, status domain.AgentStatus) {
	a.Status = status
	if status == domain.AgentStatusOffline {
		a.Enabled = false
	}
}

func validateAgent(a *domain.Agent) error {
	details := map[string]any{}
	if a.ID == "" {
		details["id"] = "required"
	}
	if a.Name == "" {
		details["name"] = "required"
	}
	if a.Email == "" || !strings.Contains(a.Email, "@") {
		details["email"] = "valid email required"
	}
	if a.MaxCapacity < domain.MinAgentCapacity || a.MaxCapacity > domain.MaxAgentCapacity {
		details["max_capacity"] = "must be between 1 and 50"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid agent", details)
	}
	return nil
}

func agentError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("agent", map[string]any{"agent_id": id})
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewDuplicateID("agent", id)
	}
	return err
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
