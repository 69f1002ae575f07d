// Package form holds the in-progress token draft across wizard steps.
//
// The store is storage plus shallow merge only: it never validates. Top-level
// fields are merged from a patch; metadata is replaced as a whole, so callers
// assemble the sibling field themselves before writing.
package form

import (
	"sync"

	"token-deploy-wizard/internal/domain"
)

// Store holds one TokenDraft.
type Store struct {
	mu    sync.RWMutex
	draft domain.TokenDraft
}

// NewStore creates a store holding an empty draft.
func NewStore() *Store {
	return &Store{}
}

// Draft returns a copy of the current draft.
func (s *Store) Draft() domain.TokenDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.Clone()
}

// Update merges the non-nil fields of patch into the draft and returns the
// resulting draft. Fields not targeted by patch are preserved.
func (s *Store) Update(patch domain.DraftPatch) domain.TokenDraft {
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.Name != nil {
		s.draft.Name = *patch.Name
	}
	if patch.Symbol != nil {
		s.draft.Symbol = *patch.Symbol
	}
	if patch.Decimals != nil {
		s.draft.Decimals = *patch.Decimals
	}
	if patch.InitialSupply != nil {
		s.draft.InitialSupply = *patch.InitialSupply
	}
	if patch.AdminWallet != nil {
		s.draft.AdminWallet = *patch.AdminWallet
	}
	return s.draft.Clone()
}

// SetMetadata replaces the metadata object wholesale. The stored value is a
// copy of m; a nil m clears metadata to absent.
func (s *Store) SetMetadata(m *domain.Metadata) domain.TokenDraft {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m == nil {
		s.draft.Metadata = nil
	} else {
		cp := *m
		s.draft.Metadata = &cp
	}
	return s.draft.Clone()
}

// Reset discards all accumulated state and returns to the empty draft.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = domain.TokenDraft{}
}
