// Package memory provides an in-process storage engine. It backs the
// development profile and the test suite, where a SurrealDB instance is
// not available.
package memory

import (
	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/storage/notify"
)

// Manager implements interfaces.StorageManager over in-process maps.
type Manager struct {
	identityStore *IdentityStore
	profileStore  *ProfileStore
	ticketStore   *TicketStore
	chatStore     *ChatStore
	notifier      *notify.ProfileNotifier
}

// NewManager creates an in-memory storage manager.
func NewManager(logger *common.Logger, notifier *notify.ProfileNotifier) *Manager {
	return &Manager{
		identityStore: NewIdentityStore(),
		profileStore:  NewProfileStore(notifier),
		ticketStore:   NewTicketStore(),
		chatStore:     NewChatStore(),
		notifier:      notifier,
	}
}

func (m *Manager) IdentityStore() interfaces.IdentityStore {
	return m.identityStore
}

func (m *Manager) ProfileStore() interfaces.ProfileStore {
	return m.profileStore
}

func (m *Manager) TicketStore() interfaces.TicketStore {
	return m.ticketStore
}

func (m *Manager) ChatStore() interfaces.ChatStore {
	return m.chatStore
}

// Notifier exposes the profile notifier for subscription-count assertions.
func (m *Manager) Notifier() *notify.ProfileNotifier {
	return m.notifier
}

func (m *Manager) Close() error {
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
