package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/storage"
)

// DeploymentStore implements storage.DeploymentStore using PostgreSQL.
type DeploymentStore struct {
	pool *Pool
}

// NewDeploymentStore creates a new DeploymentStore.
func NewDeploymentStore(pool *Pool) *DeploymentStore {
	return &DeploymentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DeploymentStore = (*DeploymentStore)(nil)

const deploymentColumns = `
	deployment_id, session_id, network, name, symbol, decimals, initial_supply::text,
	admin_wallet, has_metadata, base_fee::text, metadata_fee::text, total_fee::text,
	state, transaction_id, error_message, started_at, finished_at
`

// Insert adds a finished attempt. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(ctx context.Context, r *domain.DeploymentRecord) error {
	if r == nil || r.DeploymentID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO deployments (
			deployment_id, session_id, network, name, symbol, decimals, initial_supply,
			admin_wallet, has_metadata, base_fee, metadata_fee, total_fee,
			state, transaction_id, error_message, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10::numeric, $11::numeric, $12::numeric, $13, $14, $15, $16, $17)
	`

	return s.pool.insert(ctx, "insert_deployment", query,
		r.DeploymentID,
		r.SessionID,
		r.Network,
		r.Name,
		r.Symbol,
		r.Decimals,
		r.InitialSupply,
		r.AdminWallet,
		r.HasMetadata,
		r.BaseFee,
		r.MetadataFee,
		r.TotalFee,
		string(r.State),
		r.TransactionID,
		r.ErrorMessage,
		r.StartedAt,
		r.FinishedAt,
	)
}

// GetByID retrieves an attempt by ID. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(ctx context.Context, deploymentID string) (*domain.DeploymentRecord, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE deployment_id = $1`

	row := s.pool.QueryRow(ctx, query, deploymentID)
	r, err := scanDeployment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get deployment by id: %w", err)
	}
	return r, nil
}

// GetBySession retrieves all attempts of a session, ordered by started_at ASC.
func (s *DeploymentStore) GetBySession(ctx context.Context, sessionID string) ([]*domain.DeploymentRecord, error) {
	query := `SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE session_id = $1
		ORDER BY started_at ASC, deployment_id ASC
	`
	return s.queryMany(ctx, query, sessionID)
}

// GetBySymbol retrieves all attempts for a symbol, ordered by started_at ASC.
func (s *DeploymentStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.DeploymentRecord, error) {
	query := `SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE symbol = $1
		ORDER BY started_at ASC, deployment_id ASC
	`
	return s.queryMany(ctx, query, symbol)
}

func (s *DeploymentStore) queryMany(ctx context.Context, query string, arg string) ([]*domain.DeploymentRecord, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var result []*domain.DeploymentRecord
	for rows.Next() {
		r, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return result, nil
}

// scanDeployment scans a single row into DeploymentRecord.
func scanDeployment(row pgx.Row) (*domain.DeploymentRecord, error) {
	var r domain.DeploymentRecord
	var state string

	err := row.Scan(
		&r.DeploymentID,
		&r.SessionID,
		&r.Network,
		&r.Name,
		&r.Symbol,
		&r.Decimals,
		&r.InitialSupply,
		&r.AdminWallet,
		&r.HasMetadata,
		&r.BaseFee,
		&r.MetadataFee,
		&r.TotalFee,
		&state,
		&r.TransactionID,
		&r.ErrorMessage,
		&r.StartedAt,
		&r.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	r.State = domain.DeploymentState(state)
	return &r, nil
}
