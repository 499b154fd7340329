package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/domain"
	"github.com/spec-kit/ticket-router/internal/events"
	"github.com/spec-kit/ticket-router/internal/observability"
	"github.com/spec-kit/ticket-router/internal/repository"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	agentRepo   repository.AgentRepository
	ticketRepo  repository.TicketRepository
	registry    *AgentRegistry
	tickets     *TicketStore
	engine      *RoutingEngine
	coordinator *AssignmentCoordinator
	dispatcher  events.Dispatcher
	recorder    *eventRecorder
	metrics     *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		agentRepo:  repository.NewMemoryAgentRepository(),
		ticketRepo: repository.NewMemoryTicketRepository(),
		dispatcher: events.NewInMemoryDispatcher(zap.NewNop()),
		recorder:   &eventRecorder{},
		metrics:    observability.NewMetrics(),
	}
	for _, et := range events.AllEventTypes {
		env.dispatcher.Subscribe(et, env.recorder.handle)
	}
	env.registry = NewAgentRegistry(env.agentRepo, zap.NewNop())
	env.tickets = NewTicketStore(env.ticketRepo)
	env.engine = NewRoutingEngine(env.registry)
	env.coordinator = NewAssignmentCoordinator(CoordinatorDependencies{
		Registry:   env.registry,
		Tickets:    env.tickets,
		Engine:     env.engine,
		Dispatcher: env.dispatcher,
		Metrics:    env.metrics,
		Logger:     zap.NewNop(),
	}, CoordinatorConfig{})
	return env
}

// seedAgent stores an agent directly so tests can start from arbitrary load.
func (e *testEnv) seedAgent(t *testing.T, id string, load, capacity int, skills ...string) *domain.Agent {
	t.Helper()
	agent := &domain.Agent{
		ID:          id,
		Name:        "Agent " + id,
		Email:       id + "@example.com",
		Skills:      domain.NormalizeSkills(skills),
		MaxCapacity: capacity,
		CurrentLoad: load,
		Status:      domain.AgentStatusActive,
		Enabled:     true,
		LastActive:  time.Now(),
	}
	if err := e.agentRepo.Create(context.Background(), agent); err != nil {
		t.Fatalf("seed agent %s: %v", id, err)
	}
	return agent
}

func (e *testEnv) createTicket(t *testing.T, category string) *domain.Ticket {
	t.Helper()
	input := TicketCreateInput{
		CustomerEmail: "customer@example.com",
		Subject:       "Where is my order?",
		Description:   "It has been two weeks.",
	}
	if category != "" {
		input.Category = &category
	}
	ticket, err := e.tickets.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return ticket
}

func (e *testEnv) agent(t *testing.T, id string) *domain.Agent {
	t.Helper()
	agent, err := e.registry.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get agent %s: %v", id, err)
	}
	return agent
}

func (e *testEnv) ticket(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := e.tickets.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get ticket %s: %v", id, err)
	}
	return ticket
}

// assertLoadsMatchTickets checks that every agent's load equals the number of
// non-terminal tickets assigned to it and stays within capacity. Only valid
// when all agents were seeded with zero load.
func (e *testEnv) assertLoadsMatchTickets(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	agents, err := e.registry.List(ctx, repository.AgentFilter{})
	if err != nil {
		t.Fatal(err)
	}
	tickets, err := e.tickets.List(ctx, repository.TicketFilter{Limit: repository.MaxTicketLimit})
	if err != nil {
		t.Fatal(err)
	}
	counted := map[string]int{}
	for i := range tickets {
		if tickets[i].CountsAgainstLoad() {
			counted[tickets[i].AssignedAgentID()]++
		}
	}
	for _, a := range agents {
		if a.CurrentLoad < 0 || a.CurrentLoad > a.MaxCapacity {
			t.Errorf("agent %s load %d outside [0,%d]", a.ID, a.CurrentLoad, a.MaxCapacity)
		}
		if counted[a.ID] != a.CurrentLoad {
			t.Errorf("agent %s load %d but %d open tickets assigned", a.ID, a.CurrentLoad, counted[a.ID])
		}
		delete(counted, a.ID)
	}
	for id, n := range counted {
		t.Errorf("%d open tickets assigned to unknown agent %s", n, id)
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
