// Package interfaces defines the contracts between storage, clients,
// services, and the HTTP layer.
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/akumol/guardian/internal/models"
)

// Sentinel storage errors. Engines wrap driver errors into these so
// callers can branch without knowing the backend.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)

// IdentityStore persists authentication records.
type IdentityStore interface {
	Create(ctx context.Context, identity *models.Identity) error
	Get(ctx context.Context, id string) (*models.Identity, error)
	GetByEmail(ctx context.Context, email string) (*models.Identity, error)
	Save(ctx context.Context, identity *models.Identity) error
	Delete(ctx context.Context, id string) error
}

// ProfileStore persists profile documents and serves live snapshots.
// All profile mutations are field-level patches; there is no replace.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	Get(ctx context.Context, uid string) (*models.Profile, error)
	Patch(ctx context.Context, uid string, patch *models.ProfilePatch) (*models.Profile, error)
	Delete(ctx context.Context, uid string) error
	List(ctx context.Context) ([]*models.Profile, error)

	// Watch returns a channel of raw profile snapshots for uid, delivered
	// after each successful write until ctx is cancelled. The channel is
	// closed on cancellation. No initial snapshot is sent; callers Get
	// once after subscribing.
	Watch(ctx context.Context, uid string) (<-chan models.Profile, error)
}

// TicketListOptions filters and paginates ticket listings.
type TicketListOptions struct {
	UserID  string
	Status  string
	Type    string
	Since   *time.Time
	Page    int
	PerPage int
}

// TicketStore persists support tickets.
type TicketStore interface {
	Create(ctx context.Context, ticket *models.SupportTicket) error
	Get(ctx context.Context, id string) (*models.SupportTicket, error)
	List(ctx context.Context, opts TicketListOptions) ([]*models.SupportTicket, int, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
}

// ChatStore persists counselor transcripts.
type ChatStore interface {
	Append(ctx context.Context, msg *models.ChatMessage) error
	History(ctx context.Context, userID string, limit int) ([]*models.ChatMessage, error)
	Clear(ctx context.Context, userID string) error
}

// StorageManager is the top-level storage facade selected by the engine
// factory.
type StorageManager interface {
	IdentityStore() IdentityStore
	ProfileStore() ProfileStore
	TicketStore() TicketStore
	ChatStore() ChatStore
	Close() error
}
