package support

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the Postgres implementation of TicketStore.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateTicket(ctx context.Context, t Ticket) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx, `
		INSERT INTO support_tickets (name, email, subject, message, client_ip, user_agent, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		t.Name, t.Email, t.Subject, t.Message, t.ClientIP, t.UserAgent, t.Status,
	).Scan(&id)
	return id, err
}

var _ TicketStore = (*Store)(nil)
