package prompts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/clinicflow/orchestrator/pkg/models"
)

// ErrNotFound is returned by Store.GetCustom/GetDefault when no row exists
// for the given (company_id, agent_key) pair; callers fall through to the
// next resolution tier rather than treating it as a hard failure.
var ErrNotFound = errors.New("prompts: not found")

// Store persists tenant custom and default prompt tiers (spec §4.B, tiers
// 1-2). Tier 3 (hardcoded) and tier 4 (emergency) never touch storage.
type Store interface {
	GetCustom(ctx context.Context, companyID string, agentKey models.AgentKey) (*models.PromptTemplate, error)
	GetDefault(ctx context.Context, companyID string, agentKey models.AgentKey) (*models.PromptTemplate, error)
}

// PostgresStore implements Store against a `prompts` table with columns
// (company_id, agent_key, body, provenance, version, last_modified, active).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("prompts: open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prompts: ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetCustom(ctx context.Context, companyID string, agentKey models.AgentKey) (*models.PromptTemplate, error) {
	return s.get(ctx, companyID, agentKey, true)
}

func (s *PostgresStore) GetDefault(ctx context.Context, companyID string, agentKey models.AgentKey) (*models.PromptTemplate, error) {
	return s.get(ctx, companyID, agentKey, false)
}

func (s *PostgresStore) get(ctx context.Context, companyID string, agentKey models.AgentKey, custom bool) (*models.PromptTemplate, error) {
	provenance := models.ProvenanceDefault
	if custom {
		provenance = models.ProvenanceCustom
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT body, version, last_modified FROM prompts
		 WHERE company_id = $1 AND agent_key = $2 AND provenance = $3 AND active = true
		 ORDER BY version DESC LIMIT 1`,
		companyID, string(agentKey), string(provenance),
	)
	var pt models.PromptTemplate
	if err := row.Scan(&pt.Body, &pt.Version, &pt.LastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("prompts: query %s prompt: %w", provenance, err)
	}
	pt.CompanyID = companyID
	pt.AgentKey = agentKey
	pt.Provenance = provenance
	return &pt, nil
}
