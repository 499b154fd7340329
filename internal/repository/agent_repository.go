package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// AgentFilter narrows agent listings.
type AgentFilter struct {
	Team        *string
	Status      *domain.AgentStatus
	EnabledOnly bool
}

// AgentMutation edits an agent in place. Returning an error discards the edit.
type AgentMutation func(agent *domain.Agent) error

// AgentPairMutation edits two agents together. Returning an error discards both edits.
type AgentPairMutation func(first, second *domain.Agent) error

// AgentRepository handles persistence for agents. Mutate and MutatePair are atomic
// read-modify-write operations serialized per agent id.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
	Mutate(ctx context.Context, id string, fn AgentMutation) (*domain.Agent, error)
	MutatePair(ctx context.Context, firstID, secondID string, fn AgentPairMutation) (*domain.Agent, *domain.Agent, error)
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the PostgreSQL repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, team, skills, max_capacity, current_load, status, enabled,
               total_resolved, avg_resolution_minutes, created_at, updated_at, last_active`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (id, name, email, team, skills, max_capacity, current_load, status, enabled,
            total_resolved, avg_resolution_minutes, last_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		agent.ID,
		agent.Name,
		agent.Email,
		agent.Team,
		agent.Skills,
		agent.MaxCapacity,
		agent.CurrentLoad,
		agent.Status,
		agent.Enabled,
		agent.TotalResolved,
		agent.AvgResolutionMinutes,
		agent.LastActive,
	).Scan(&agent.CreatedAt, &agent.UpdatedAt)
	return translate(err)
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	agent, err := scanAgent(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return agent, nil
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents`
	args := []any{}
	clauses := []string{}

	if filter.Team != nil {
		args = append(args, *filter.Team)
		clauses = append(clauses, fmt.Sprintf("team=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.EnabledOnly {
		clauses = append(clauses, "enabled=TRUE")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) Mutate(ctx context.Context, id string, fn AgentMutation) (*domain.Agent, error) {
	var updated *domain.Agent
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		agent, err := lockAgent(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(agent); err != nil {
			return err
		}
		if err := saveAgent(ctx, tx, agent); err != nil {
			return err
		}
		updated = agent
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

func (r *agentRepository) MutatePair(ctx context.Context, firstID, secondID string, fn AgentPairMutation) (*domain.Agent, *domain.Agent, error) {
	if firstID == secondID {
		return nil, nil, fmt.Errorf("mutate pair: identical agent ids %q", firstID)
	}
	var first, second *domain.Agent
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		// Lock rows in id order so concurrent swaps cannot deadlock.
		lo, hi := firstID, secondID
		if hi < lo {
			lo, hi = hi, lo
		}
		loAgent, err := lockAgent(ctx, tx, lo)
		if err != nil {
			return err
		}
		hiAgent, err := lockAgent(ctx, tx, hi)
		if err != nil {
			return err
		}
		first, second = loAgent, hiAgent
		if lo != firstID {
			first, second = hiAgent, loAgent
		}
		if err := fn(first, second); err != nil {
			return err
		}
		if err := saveAgent(ctx, tx, first); err != nil {
			return err
		}
		return saveAgent(ctx, tx, second)
	})
	if err != nil {
		return nil, nil, translate(err)
	}
	return first, second, nil
}

func lockAgent(ctx context.Context, tx pgx.Tx, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1 FOR UPDATE`
	return scanAgent(tx.QueryRow(ctx, query, id))
}

func saveAgent(ctx context.Context, tx pgx.Tx, agent *domain.Agent) error {
	const query = `
        UPDATE agents SET name=$1, email=$2, team=$3, skills=$4, max_capacity=$5, current_load=$6,
            status=$7, enabled=$8, total_resolved=$9, avg_resolution_minutes=$10, last_active=$11, updated_at=NOW()
        WHERE id=$12
        RETURNING updated_at`
	return tx.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.Team,
		agent.Skills,
		agent.MaxCapacity,
		agent.CurrentLoad,
		agent.Status,
		agent.Enabled,
		agent.TotalResolved,
		agent.AvgResolutionMinutes,
		agent.LastActive,
		agent.ID,
	).Scan(&agent.UpdatedAt)
}

func scanAgent(row pgx.Row) (*domain.Agent, error) {
	var agent domain.Agent
	if err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Email,
		&agent.Team,
		&agent.Skills,
		&agent.MaxCapacity,
		&agent.CurrentLoad,
		&agent.Status,
		&agent.Enabled,
		&agent.TotalResolved,
		&agent.AvgResolutionMinutes,
		&agent.CreatedAt,
		&agent.UpdatedAt,
		&agent.LastActive,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}
