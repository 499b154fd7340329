package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// Listing bounds.
const (
	DefaultTicketLimit = 50
	MaxTicketLimit     = 200
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
	AssignedAgent *string
	Limit         int
}

// TicketMutation edits a ticket while its row is held. The context carries the
// enclosing transaction, so agent repository calls made with it commit together
// with the ticket. Returning an error discards the edit.
type TicketMutation func(ctx context.Context, ticket *domain.Ticket) error

// TicketRepository encapsulates ticket persistence. Mutate is an atomic
// read-modify-write serialized per ticket id and bumps Version on success.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Mutate(ctx context.Context, id string, fn TicketMutation) (*domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the PostgreSQL repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, customer_id, customer_email, customer_name, subject, description, order_id, source,
               category, priority, status, assigned_agent, team, tags, classification, version,
               created_at, updated_at, assigned_at, resolved_at, closed_at`

// classificationRecord is the jsonb layout of domain.Classification.
type classificationRecord struct {
	Category        string                `json:"category"`
	Priority        domain.TicketPriority `json:"priority"`
	Confidence      float64               `json:"confidence"`
	Sentiment       string                `json:"sentiment,omitempty"`
	UrgencyKeywords []string              `json:"urgency_keywords,omitempty"`
	ExtractedInfo   map[string]any        `json:"extracted_info,omitempty"`
	Applied         bool                  `json:"applied"`
	ClassifiedAt    time.Time             `json:"classified_at"`
}

func encodeClassification(c *domain.Classification) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(classificationRecord(*c))
}

func decodeClassification(raw []byte) (*domain.Classification, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rec classificationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}
	c := domain.Classification(rec)
	return &c, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, customer_id, customer_email, customer_name, subject, description, order_id, source,
            category, priority, status, assigned_agent, team, tags, classification, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING created_at, updated_at`
	classification, err := encodeClassification(ticket.Classification)
	if err != nil {
		return err
	}
	err = conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.ID,
		ticket.CustomerID,
		ticket.CustomerEmail,
		ticket.CustomerName,
		ticket.Subject,
		ticket.Description,
		ticket.OrderID,
		ticket.Source,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgent,
		ticket.Team,
		ticket.Tags,
		classification,
		ticket.Version,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignedAgent != nil {
		args = append(args, *filter.AssignedAgent)
		clauses = append(clauses, fmt.Sprintf("assigned_agent=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d`,
		base, strings.Join(clauses, " AND "), ClampLimit(filter.Limit))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Mutate(ctx context.Context, id string, fn TicketMutation) (*domain.Ticket, error) {
	var updated *domain.Ticket
	err := inTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
		ticket, err := scanTicket(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		if err := fn(ctx, ticket); err != nil {
			return err
		}
		ticket.Version++
		if err := saveTicket(ctx, tx, ticket); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return updated, nil
}

func saveTicket(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category=$1, priority=$2, status=$3, assigned_agent=$4, team=$5, tags=$6,
            classification=$7, version=$8, updated_at=$9, assigned_at=$10, resolved_at=$11, closed_at=$12
        WHERE id=$13`
	classification, err := encodeClassification(ticket.Classification)
	if err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, query,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedAgent,
		ticket.Team,
		ticket.Tags,
		classification,
		ticket.Version,
		ticket.UpdatedAt,
		ticket.AssignedAt,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var classification []byte
	if err := row.Scan(
		&ticket.ID,
		&ticket.CustomerID,
		&ticket.CustomerEmail,
		&ticket.CustomerName,
		&ticket.Subject,
		&ticket.Description,
		&ticket.OrderID,
		&ticket.Source,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedAgent,
		&ticket.Team,
		&ticket.Tags,
		&classification,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.AssignedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	decoded, err := decodeClassification(classification)
	if err != nil {
		return nil, err
	}
	ticket.Classification = decoded
	return &ticket, nil
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultTicketLimit
	}
	if limit > MaxTicketLimit {
		return MaxTicketLimit
	}
	return limit
}
