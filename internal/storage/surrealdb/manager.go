// Package surrealdb implements the storage contracts on SurrealDB.
package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/storage/notify"
)

// Manager implements interfaces.StorageManager using SurrealDB.
type Manager struct {
	db     *surrealdb.DB
	logger *common.Logger

	identityStore *IdentityStore
	profileStore  *ProfileStore
	ticketStore   *TicketStore
	chatStore     *ChatStore
}

// NewManager connects to SurrealDB and prepares the stores.
func NewManager(logger *common.Logger, config *common.Config, notifier *notify.ProfileNotifier) (*Manager, error) {
	ctx := context.Background()

	db, err := surrealdb.New(config.Storage.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": config.Storage.Username,
		"pass": config.Storage.Password,
	}); err != nil {
		return nil, fmt.Errorf("failed to sign in to SurrealDB: %w", err)
	}

	if err := db.Use(ctx, config.Storage.Namespace, config.Storage.Database); err != nil {
		return nil, fmt.Errorf("failed to select namespace/database: %w", err)
	}

	// Define tables to ensure they exist (SurrealDB v3 errors on querying non-existent tables)
	tables := []string{"identity", "profile", "ticket", "chat_message"}
	for _, table := range tables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			return nil, fmt.Errorf("failed to define table %s: %w", table, err)
		}
	}

	m := &Manager{
		db:            db,
		logger:        logger,
		identityStore: NewIdentityStore(db, logger),
		profileStore:  NewProfileStore(db, logger, notifier),
		ticketStore:   NewTicketStore(db, logger),
		chatStore:     NewChatStore(db, logger),
	}

	logger.Info().
		Str("address", config.Storage.Address).
		Str("namespace", config.Storage.Namespace).
		Str("database", config.Storage.Database).
		Msg("SurrealDB storage manager initialized")

	return m, nil
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

func (m *Manager) Close() error {
	m.db.Close(context.Background())
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
