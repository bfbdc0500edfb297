package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
	"github.com/akumol/guardian/internal/storage/notify"
)

// ProfileStore keeps profile documents in a map and publishes every write
// to the notifier.
type ProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]models.Profile
	notifier *notify.ProfileNotifier
}

func NewProfileStore(notifier *notify.ProfileNotifier) *ProfileStore {
	return &ProfileStore{
		profiles: make(map[string]models.Profile),
		notifier: notifier,
	}
}

func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	if _, ok := s.profiles[profile.UID]; ok {
		s.mu.Unlock()
		return interfaces.ErrConflict
	}
	s.profiles[profile.UID] = *profile
	s.mu.Unlock()

	s.notifier.Publish(*profile)
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, uid string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[uid]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &p, nil
}

func (s *ProfileStore) Patch(ctx context.Context, uid string, patch *models.ProfilePatch) (*models.Profile, error) {
	s.mu.Lock()
	p, ok := s.profiles[uid]
	if !ok {
		s.mu.Unlock()
		return nil, interfaces.ErrNotFound
	}
	patch.Apply(&p)
	s.profiles[uid] = p
	s.mu.Unlock()

	s.notifier.Publish(p)
	return &p, nil
}

func (s *ProfileStore) Delete(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[uid]; !ok {
		return interfaces.ErrNotFound
	}
	delete(s.profiles, uid)
	return nil
}

func (s *ProfileStore) List(ctx context.Context) ([]*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Profile, 0, len(s.profiles))
	for uid := range s.profiles {
		p := s.profiles[uid]
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (s *ProfileStore) Watch(ctx context.Context, uid string) (<-chan models.Profile, error) {
	updates, cancel := s.notifier.Subscribe(uid)

	out := make(chan models.Profile, 8)
	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case p, ok := <-updates:
				if !ok {
					return
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Compile-time check
var _ interfaces.ProfileStore = (*ProfileStore)(nil)
