package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// TicketStore keeps support tickets in a map.
type TicketStore struct {
	mu      sync.RWMutex
	tickets map[string]models.SupportTicket
}

func NewTicketStore() *TicketStore {
	return &TicketStore{tickets: make(map[string]models.SupportTicket)}
}

func (s *TicketStore) Create(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket.ID == "" {
		ticket.ID = "tk_" + uuid.New().String()[:8]
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusOpen
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[ticket.ID] = *ticket
	return nil
}

func (s *TicketStore) Get(ctx context.Context, id string) (*models.SupportTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tk, ok := s.tickets[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return &tk, nil
}

func (s *TicketStore) List(ctx context.Context, opts interfaces.TicketListOptions) ([]*models.SupportTicket, int, error) {
	s.mu.RLock()
	var matched []*models.SupportTicket
	for id := range s.tickets {
		tk := s.tickets[id]
		if opts.UserID != "" && tk.UserID != opts.UserID {
			continue
		}
		if opts.Status != "" && tk.Status != opts.Status {
			continue
		}
		if opts.Type != "" && tk.Type != opts.Type {
			continue
		}
		if opts.Since != nil && tk.CreatedAt.Before(*opts.Since) {
			continue
		}
		matched = append(matched, &tk)
	}
	s.mu.RUnlock()

	// Newest first, ID as tiebreaker for deterministic ordering.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)

	page := opts.Page
	if page < 1 {
		page = 1
	}
	perPage := opts.PerPage
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}

	start := (page - 1) * perPage
	if start >= total {
		return []*models.SupportTicket{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *TicketStore) UpdateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tk, ok := s.tickets[id]
	if !ok {
		return interfaces.ErrNotFound
	}
	tk.Status = status
	s.tickets[id] = tk
	return nil
}

func (s *TicketStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tickets[id]; !ok {
		return interfaces.ErrNotFound
	}
	delete(s.tickets, id)
	return nil
}

// Compile-time check
var _ interfaces.TicketStore = (*TicketStore)(nil)
