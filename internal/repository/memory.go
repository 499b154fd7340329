package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/ticket-router/internal/domain"
)

type agentEntry struct {
	mu    sync.Mutex
	agent *domain.Agent
}

type memoryAgentRepository struct {
	mu      sync.RWMutex
	entries map[string]*agentEntry
}

// NewMemoryAgentRepository returns an in-process repository with per-agent locking.
func NewMemoryAgentRepository() AgentRepository {
	return &memoryAgentRepository{entries: make(map[string]*agentEntry)}
}

func (r *memoryAgentRepository) Create(_ context.Context, agent *domain.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[agent.ID]; exists {
		return ErrConflict
	}
	r.entries[agent.ID] = &agentEntry{agent: agent.Clone()}
	return nil
}

func (r *memoryAgentRepository) entry(id string) (*agentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *memoryAgentRepository) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.agent.Clone(), nil
}

func (r *memoryAgentRepository) List(_ context.Context, filter AgentFilter) ([]domain.Agent, error) {
	r.mu.RLock()
	entries := make([]*agentEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	result := make([]domain.Agent, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		agent := e.agent.Clone()
		e.mu.Unlock()
		if filter.Team != nil && agent.TeamName() != *filter.Team {
			continue
		}
		if filter.Status != nil && agent.Status != *filter.Status {
			continue
		}
		if filter.EnabledOnly && !agent.Enabled {
			continue
		}
		result = append(result, *agent)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryAgentRepository) Mutate(_ context.Context, id string, fn AgentMutation) (*domain.Agent, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.agent.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.agent = working
	return working.Clone(), nil
}

func (r *memoryAgentRepository) MutatePair(_ context.Context, firstID, secondID string, fn AgentPairMutation) (*domain.Agent, *domain.Agent, error) {
	if firstID == secondID {
		return nil, nil, fmt.Errorf("mutate pair: identical agent ids %q", firstID)
	}
	first, ok := r.entry(firstID)
	if !ok {
		return nil, nil, ErrNotFound
	}
	second, ok := r.entry(secondID)
	if !ok {
		return nil, nil, ErrNotFound
	}

	// Lock in id order so concurrent swaps cannot deadlock.
	lo, hi := first, second
	if secondID < firstID {
		lo, hi = second, first
	}
	lo.mu.Lock()
	defer lo.mu.Unlock()
	hi.mu.Lock()
	defer hi.mu.Unlock()

	a, b := first.agent.Clone(), second.agent.Clone()
	if err := fn(a, b); err != nil {
		return nil, nil, err
	}
	first.agent, second.agent = a, b
	return a.Clone(), b.Clone(), nil
}

type ticketEntry struct {
	mu     sync.Mutex
	ticket *domain.Ticket
}

type memoryTicketRepository struct {
	mu      sync.RWMutex
	entries map[string]*ticketEntry
}

// NewMemoryTicketRepository returns an in-process repository with per-ticket locking.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{entries: make(map[string]*ticketEntry)}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[ticket.ID]; exists {
		return ErrConflict
	}
	r.entries[ticket.ID] = &ticketEntry{ticket: ticket.Clone()}
	return nil
}

func (r *memoryTicketRepository) entry(id string) (*ticketEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e, ok
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ticket.Clone(), nil
}

func (r *memoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	entries := make([]*ticketEntry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	statuses := make(map[domain.TicketStatus]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = struct{}{}
	}
	priorities := make(map[domain.TicketPriority]struct{}, len(filter.Priorities))
	for _, p := range filter.Priorities {
		priorities[p] = struct{}{}
	}

	result := make([]domain.Ticket, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		ticket := e.ticket.Clone()
		e.mu.Unlock()
		if _, ok := statuses[ticket.Status]; len(statuses) > 0 && !ok {
			continue
		}
		if _, ok := priorities[ticket.Priority]; len(priorities) > 0 && !ok {
			continue
		}
		if filter.AssignedAgent != nil && ticket.AssignedAgentID() != *filter.AssignedAgent {
			continue
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	if limit := ClampLimit(filter.Limit); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryTicketRepository) Mutate(ctx context.Context, id string, fn TicketMutation) (*domain.Ticket, error) {
	e, ok := r.entry(id)
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.ticket.Clone()
	if err := fn(ctx, working); err != nil {
		return nil, err
	}
	working.Version++
	e.ticket = working
	return working.Clone(), nil
}
