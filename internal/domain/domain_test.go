package domain

import (
	"math"
	"testing"
	"time"
)

func TestAgentAvailability(t *testing.T) {
	tests := []struct {
		name  string
		agent Agent
		want  bool
	}{
		{"active with room", Agent{Status: AgentStatusActive, Enabled: true, CurrentLoad: 1, MaxCapacity: 2}, true},
		{"full", Agent{Status: AgentStatusActive, Enabled: true, CurrentLoad: 2, MaxCapacity: 2}, false},
		{"away", Agent{Status: AgentStatusAway, Enabled: true, MaxCapacity: 2}, false},
		{"disabled", Agent{Status: AgentStatusActive, MaxCapacity: 2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.agent.Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentUtilization(t *testing.T) {
	a := Agent{CurrentLoad: 1, MaxCapacity: 3}
	if got := a.Utilization(); got != 33.33 {
		t.Errorf("Utilization() = %v", got)
	}
	if got := a.AvailableCapacity(); got != 2 {
		t.Errorf("AvailableCapacity() = %d", got)
	}
	over := Agent{CurrentLoad: 5, MaxCapacity: 3}
	if over.AvailableCapacity() != 0 {
		t.Error("over-capacity agent reports room")
	}
}

func TestRecordResolutionRunningMean(t *testing.T) {
	a := Agent{}
	for _, m := range []int{10, 20, 60} {
		a.RecordResolution(time.Duration(m) * time.Minute)
	}
	if a.TotalResolved != 3 || a.AvgResolutionMinutes == nil || math.Abs(*a.AvgResolutionMinutes-30) > 1e-9 {
		t.Errorf("agent = %+v avg=%v", a, a.AvgResolutionMinutes)
	}
}

func TestNormalizeSkills(t *testing.T) {
	got := NormalizeSkills([]string{" billing", "", "Billing", "refund"})
	if len(got) != 2 || got[0] != "BILLING" || got[1] != "REFUND" {
		t.Errorf("NormalizeSkills = %v", got)
	}
}

func TestParseStatusAndPriority(t *testing.T) {
	if s, ok := ParseTicketStatus(" in_progress "); !ok || s != TicketStatusInProgress {
		t.Errorf("ParseTicketStatus = %s %v", s, ok)
	}
	if _, ok := ParseTicketStatus("DONE"); ok {
		t.Error("accepted unknown status")
	}
	if p, ok := ParseTicketPriority("critical"); !ok || p != TicketPriorityCritical {
		t.Errorf("ParseTicketPriority = %s %v", p, ok)
	}
	if !TicketStatusClosed.Terminal() || TicketStatusPending.Terminal() {
		t.Error("Terminal() wrong")
	}
}

func TestTicketCountsAgainstLoad(t *testing.T) {
	agent := "A"
	open := Ticket{AssignedAgent: &agent, Status: TicketStatusPending}
	if !open.CountsAgainstLoad() {
		t.Error("pending assigned ticket should count")
	}
	resolved := Ticket{AssignedAgent: &agent, Status: TicketStatusResolved}
	if resolved.CountsAgainstLoad() {
		t.Error("resolved ticket should not count")
	}
	empty := ""
	if (&Ticket{AssignedAgent: &empty, Status: TicketStatusOpen}).CountsAgainstLoad() {
		t.Error("empty agent id counts as unassigned")
	}
}

func TestTicketCloneIsDeep(t *testing.T) {
	agent := "A"
	orig := &Ticket{
		AssignedAgent:  &agent,
		Tags:           []string{"vip"},
		Classification: &Classification{Category: "BILLING", UrgencyKeywords: []string{"now"}, ExtractedInfo: map[string]any{"k": 1}},
	}
	cp := orig.Clone()
	*cp.AssignedAgent = "B"
	cp.Tags[0] = "x"
	cp.Classification.UrgencyKeywords[0] = "later"
	cp.Classification.ExtractedInfo["k"] = 2
	if *orig.AssignedAgent != "A" || orig.Tags[0] != "vip" || orig.Classification.UrgencyKeywords[0] != "now" || orig.Classification.ExtractedInfo["k"] != 1 {
		t.Errorf("clone shares state: %+v %+v", orig, orig.Classification)
	}
}
