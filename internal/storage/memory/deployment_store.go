package memory

import (
	"context"
	"sort"
	"sync"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/storage"
)

// DeploymentStore is an in-memory implementation of storage.DeploymentStore.
type DeploymentStore struct {
	mu      sync.RWMutex
	records map[string]*domain.DeploymentRecord // keyed by deployment_id
}

// NewDeploymentStore creates a new in-memory deployment store.
func NewDeploymentStore() *DeploymentStore {
	return &DeploymentStore{
		records: make(map[string]*domain.DeploymentRecord),
	}
}

// Insert adds a finished attempt. Returns ErrDuplicateKey if deployment_id exists.
func (s *DeploymentStore) Insert(_ context.Context, r *domain.DeploymentRecord) error {
	if r == nil || r.DeploymentID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[r.DeploymentID]; exists {
		return storage.ErrDuplicateKey
	}

	s.records[r.DeploymentID] = copyRecord(r)
	return nil
}

// GetByID retrieves an attempt by ID. Returns ErrNotFound if not exists.
func (s *DeploymentStore) GetByID(_ context.Context, deploymentID string) (*domain.DeploymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[deploymentID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRecord(r), nil
}

// GetBySession retrieves all attempts of a session, ordered by started_at ASC.
func (s *DeploymentStore) GetBySession(_ context.Context, sessionID string) ([]*domain.DeploymentRecord, error) {
	return s.filter(func(r *domain.DeploymentRecord) bool { return r.SessionID == sessionID }), nil
}

// GetBySymbol retrieves all attempts for a symbol, ordered by started_at ASC.
func (s *DeploymentStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.DeploymentRecord, error) {
	return s.filter(func(r *domain.DeploymentRecord) bool { return r.Symbol == symbol }), nil
}

func (s *DeploymentStore) filter(match func(*domain.DeploymentRecord) bool) []*domain.DeploymentRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DeploymentRecord
	for _, r := range s.records {
		if match(r) {
			result = append(result, copyRecord(r))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].DeploymentID < result[j].DeploymentID
	})
	return result
}

func copyRecord(r *domain.DeploymentRecord) *domain.DeploymentRecord {
	cp := *r
	if r.TransactionID != nil {
		v := *r.TransactionID
		cp.TransactionID = &v
	}
	if r.ErrorMessage != nil {
		v := *r.ErrorMessage
		cp.ErrorMessage = &v
	}
	if r.FinishedAt != nil {
		v := *r.FinishedAt
		cp.FinishedAt = &v
	}
	return &cp
}

var _ storage.DeploymentStore = (*DeploymentStore)(nil)
