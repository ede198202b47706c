package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink is the durable audit backend, distinct from the Prompt
// Resolver's lib/pq store: the audit log is high-volume append/update
// traffic, well suited to pgx's connection pool rather than database/sql.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink opens a pooled connection to dsn and verifies it with a
// bounded ping.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: ping: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresSink) Close() {
	s.pool.Close()
}

// Write inserts a new audit row in StatusPending (or whatever e.Status is
// at call time).
func (s *PostgresSink) Write(ctx context.Context, e Entry) error {
	input, err := json.Marshal(e.InputParams)
	if err != nil {
		return fmt.Errorf("audit: encode input_params: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_log (id, user_id, action_type, action_name, input_params, compensable, compensation_action, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.UserID, e.ActionType, e.ActionName, input, e.Compensable, e.CompensationAction, e.Status, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Update records the terminal status (success/failed), result, and
// completion time for an existing entry.
func (s *PostgresSink) Update(ctx context.Context, e Entry) error {
	result, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("audit: encode result: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE audit_log
		SET status = $2, result = $3, error_message = $4, completed_at = $5
		WHERE id = $1
	`, e.ID, e.Status, result, e.ErrorMessage, e.CompletedAt)
	if err != nil {
		return fmt.Errorf("audit: update: %w", err)
	}
	return nil
}
