package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// IdentityStore keeps identity records in a map keyed by ID, with a
// secondary email index.
type IdentityStore struct {
	mu      sync.RWMutex
	byID    map[string]models.Identity
	byEmail map[string]string
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:    make(map[string]models.Identity),
		byEmail: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *IdentityStore) Create(ctx context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[identity.ID]; ok {
		return interfaces.ErrConflict
	}
	if _, ok := s.byEmail[normalizeEmail(identity.Email)]; ok {
		return interfaces.ErrConflict
	}

	s.byID[identity.ID] = *identity
	s.byEmail[normalizeEmail(identity.Email)] = identity.ID
	return nil
}

func (s *IdentityStore) Get(ctx context.Context, id string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.byID[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &ident, nil
}

func (s *IdentityStore) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	ident := s.byID[id]
	return &ident, nil
}

func (s *IdentityStore) Save(ctx context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[identity.ID]; ok {
		// Keep the email index in step when the address changes.
		prevEmail := normalizeEmail(prev.Email)
		newEmail := normalizeEmail(identity.Email)
		if prevEmail != newEmail {
			if owner, taken := s.byEmail[newEmail]; taken && owner != identity.ID {
				return interfaces.ErrConflict
			}
			delete(s.byEmail, prevEmail)
			s.byEmail[newEmail] = identity.ID
		}
	} else {
		s.byEmail[normalizeEmail(identity.Email)] = identity.ID
	}

	identity.ModifiedAt = time.Now()
	s.byID[identity.ID] = *identity
	return nil
}

func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.byID[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	delete(s.byEmail, normalizeEmail(ident.Email))
	delete(s.byID, id)
	return nil
}

// Compile-time check
var _ interfaces.IdentityStore = (*IdentityStore)(nil)
