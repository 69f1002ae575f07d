package memory

import (
	"context"
	"sort"
	"sync"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/storage"
)

// WizardEventStore is an in-memory implementation of storage.WizardEventStore.
type WizardEventStore struct {
	mu     sync.RWMutex
	events []*domain.WizardEvent
	ids    map[string]struct{}
}

// NewWizardEventStore creates a new in-memory wizard event store.
func NewWizardEventStore() *WizardEventStore {
	return &WizardEventStore{
		ids: make(map[string]struct{}),
	}
}

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *WizardEventStore) Insert(_ context.Context, e *domain.WizardEvent) error {
	if e == nil || e.EventID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[e.EventID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *e
	s.events = append(s.events, &cp)
	s.ids[e.EventID] = struct{}{}
	return nil
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *WizardEventStore) InsertBulk(_ context.Context, events []*domain.WizardEvent) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for duplicates within batch and against existing data
	seen := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.EventID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.ids[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := seen[e.EventID]; exists {
			return storage.ErrDuplicateKey
		}
		seen[e.EventID] = struct{}{}
	}

	for _, e := range events {
		cp := *e
		s.events = append(s.events, &cp)
		s.ids[e.EventID] = struct{}{}
	}
	return nil
}

// GetBySession retrieves all events of a session, ordered by (timestamp, event_id) ASC.
func (s *WizardEventStore) GetBySession(_ context.Context, sessionID string) ([]*domain.WizardEvent, error) {
	return s.filter(func(e *domain.WizardEvent) bool { return e.SessionID == sessionID }), nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by timestamp ASC.
func (s *WizardEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.WizardEvent, error) {
	return s.filter(func(e *domain.WizardEvent) bool {
		return e.Timestamp >= start && e.Timestamp <= end
	}), nil
}

func (s *WizardEventStore) filter(match func(*domain.WizardEvent) bool) []*domain.WizardEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WizardEvent
	for _, e := range s.events {
		if match(e) {
			cp := *e
			result = append(result, &cp)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].EventID < result[j].EventID
	})
	return result
}

var _ storage.WizardEventStore = (*WizardEventStore)(nil)
