package storage

import (
	"context"

	"token-deploy-wizard/internal/domain"
)

// DeploymentStore provides access to deployments storage.
// A record is written once, when the attempt reaches a terminal state.
type DeploymentStore interface {
	// Insert adds a finished deploy attempt. Returns ErrDuplicateKey if deployment_id exists.
	Insert(ctx context.Context, r *domain.DeploymentRecord) error

	// GetByID retrieves an attempt by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, deploymentID string) (*domain.DeploymentRecord, error)

	// GetBySession retrieves all attempts of a wizard session, ordered by started_at ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.DeploymentRecord, error)

	// GetBySymbol retrieves all attempts for a token symbol, ordered by started_at ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.DeploymentRecord, error)
}

// WizardEventStore provides access to the append-only wizard_events log.
type WizardEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.WizardEvent) error

	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, events []*domain.WizardEvent) error

	// GetBySession retrieves all events of a session, ordered by (timestamp, event_id) ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.WizardEvent, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.WizardEvent, error)
}
