package service

import (
	"context"
	"testing"

	"github.com/spec-kit/ticket-router/internal/domain"
)

func TestSelectBestAgent(t *testing.T) {
	agent := func(id string, load, capacity int, status domain.AgentStatus, enabled bool, skills ...string) domain.Agent {
		return domain.Agent{
			ID:          id,
			CurrentLoad: load,
			MaxCapacity: capacity,
			Status:      status,
			Enabled:     enabled,
			Skills:      domain.NormalizeSkills(skills),
		}
	}
	active := domain.AgentStatusActive

	tests := []struct {
		name     string
		agents   []domain.Agent
		category string
		want     string
	}{
		{
			name:     "lowest load wins",
			agents:   []domain.Agent{agent("B", 3, 5, active, true, "BILLING"), agent("C", 1, 5, active, true, "BILLING")},
			category: "BILLING",
			want:     "C",
		},
		{
			name:     "tie broken by id",
			agents:   []domain.Agent{agent("z", 1, 5, active, true, "SHIPPING"), agent("m", 1, 5, active, true, "SHIPPING")},
			category: "SHIPPING",
			want:     "m",
		},
		{
			name:     "skill match ignores case",
			agents:   []domain.Agent{agent("A", 0, 5, active, true, "billing")},
			category: "Billing",
			want:     "A",
		},
		{
			name:     "skill must match exactly",
			agents:   []domain.Agent{agent("A", 0, 5, active, true, "BILLING_DISPUTES")},
			category: "BILLING",
		},
		{
			name: "unavailable agents skipped",
			agents: []domain.Agent{
				agent("full", 5, 5, active, true, "SHIPPING"),
				agent("away", 0, 5, domain.AgentStatusAway, true, "SHIPPING"),
				agent("off", 0, 5, active, false, "SHIPPING"),
				agent("ok", 4, 5, active, true, "SHIPPING"),
			},
			category: "SHIPPING",
			want:     "ok",
		},
		{
			name:     "empty category matches any skill set",
			agents:   []domain.Agent{agent("b", 2, 5, active, true), agent("a", 2, 5, active, true, "REFUND")},
			category: "",
			want:     "a",
		},
		{
			name:     "no candidates",
			agents:   nil,
			category: "SHIPPING",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectBestAgent(tt.agents, tt.category)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("got %s, want none", got.ID)
			case tt.want != "" && (got == nil || got.ID != tt.want):
				t.Errorf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestSelectBestAgentReturnsCopy(t *testing.T) {
	agents := []domain.Agent{{ID: "A", MaxCapacity: 2, Status: domain.AgentStatusActive, Enabled: true, Skills: []string{"SHIPPING"}}}
	got := SelectBestAgent(agents, "SHIPPING")
	got.CurrentLoad = 2
	got.Skills[0] = "MUTATED"
	if agents[0].CurrentLoad != 0 || agents[0].Skills[0] != "SHIPPING" {
		t.Errorf("snapshot mutated: %+v", agents[0])
	}
}

func TestFindBestAgentIgnoresPriority(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedAgent(t, "senior", 3, 5, "TECHNICAL")
	env.seedAgent(t, "junior", 1, 5, "TECHNICAL")

	for _, p := range []domain.TicketPriority{domain.TicketPriorityLow, domain.TicketPriorityCritical} {
		got, err := env.engine.FindBestAgent(ctx, "TECHNICAL", p)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.ID != "junior" {
			t.Errorf("priority %s picked %v", p, got)
		}
	}
}
