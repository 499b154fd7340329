package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// AgentStatus enumerates agent availability.
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "ACTIVE"
	AgentStatusAway    AgentStatus = "AWAY"
	AgentStatusOffline AgentStatus = "OFFLINE"
)

// Capacity bounds for a single agent.
const (
	MinAgentCapacity     = 1
	MaxAgentCapacity     = 50
	DefaultAgentCapacity = 15
)

// Valid reports whether s is a known status.
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusAway, AgentStatusOffline:
		return true
	}
	return false
}

// ParseAgentStatus accepts any casing.
func ParseAgentStatus(raw string) (AgentStatus, bool) {
	s := AgentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Agent models a support worker with a bounded daily ticket capacity.
type Agent struct {
	ID                   string
	Name                 string
	Email                string
	Team                 *string
	Skills               []string
	MaxCapacity          int
	CurrentLoad          int
	Status               AgentStatus
	Enabled              bool
	TotalResolved        int
	AvgResolutionMinutes *float64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	LastActive           time.Time
}

// HasSkill matches a category tag against the skill set, ignoring case.
func (a *Agent) HasSkill(tag string) bool {
	for _, skill := range a.Skills {
		if strings.EqualFold(skill, tag) {
			return true
		}
	}
	return false
}

// HasCapacity reports whether one more ticket fits.
func (a *Agent) HasCapacity() bool {
	return a.CurrentLoad < a.MaxCapacity
}

// Available reports whether the agent may receive new work right now.
func (a *Agent) Available() bool {
	return a.Enabled && a.Status == AgentStatusActive && a.HasCapacity()
}

// AvailableCapacity is the number of tickets the agent can still take.
func (a *Agent) AvailableCapacity() int {
	if a.CurrentLoad >= a.MaxCapacity {
		return 0
	}
	return a.MaxCapacity - a.CurrentLoad
}

// Utilization is load over capacity as a percentage, rounded to two decimals.
func (a *Agent) Utilization() float64 {
	if a.MaxCapacity <= 0 {
		return 0
	}
	pct := float64(a.CurrentLoad) / float64(a.MaxCapacity) * 100
	return math.Round(pct*100) / 100
}

// TeamName returns the team label or an empty string.
func (a *Agent) TeamName() string {
	if a.Team == nil {
		return ""
	}
	return *a.Team
}

// Clone returns a deep copy safe to hand out of a store.
func (a *Agent) Clone() *Agent {
	if a == nil {
		return nil
	}
	cp := *a
	cp.Skills = cloneStrings(a.Skills)
	if a.Team != nil {
		team := *a.Team
		cp.Team = &team
	}
	if a.AvgResolutionMinutes != nil {
		avg := *a.AvgResolutionMinutes
		cp.AvgResolutionMinutes = &avg
	}
	return &cp
}

// RecordResolution folds one resolution into the lifetime counters.
func (a *Agent) RecordResolution(elapsed time.Duration) {
	a.TotalResolved++
	if elapsed <= 0 {
		return
	}
	minutes := elapsed.Minutes()
	if a.AvgResolutionMinutes == nil || a.TotalResolved == 1 {
		a.AvgResolutionMinutes = &minutes
		return
	}
	avg := *a.AvgResolutionMinutes + (minutes-*a.AvgResolutionMinutes)/float64(a.TotalResolved)
	a.AvgResolutionMinutes = &avg
}

// NormalizeSkills upper-cases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, raw := range skills {
		tag := strings.ToUpper(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// SortAgentsByLoad orders ascending by current load, then by id.
func SortAgentsByLoad(agents []Agent) {
	sort.SliceStable(agents, func(i, j int) bool {
		if agents[i].CurrentLoad != agents[j].CurrentLoad {
			return agents[i].CurrentLoad < agents[j].CurrentLoad
		}
		return agents[i].ID < agents[j].ID
	})
}
