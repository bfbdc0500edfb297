// Package storage selects and constructs the persistence engine.
package storage

import (
	"fmt"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/storage/memory"
	"github.com/akumol/guardian/internal/storage/notify"
	"github.com/akumol/guardian/internal/storage/surrealdb"
)

// Engine type constants.
const (
	EngineSurreal = "surreal"
	EngineMemory  = "memory"
)

// NewManager creates a storage manager for the configured engine.
// Both engines share a single profile notifier so session watchers are
// engine-agnostic.
func NewManager(logger *common.Logger, config *common.Config) (interfaces.StorageManager, *notify.ProfileNotifier, error) {
	notifier := notify.NewProfileNotifier(logger)

	engine := config.Storage.Engine
	if engine == "" {
		engine = EngineSurreal
	}

	switch engine {
	case EngineSurreal:
		mgr, err := surrealdb.NewManager(logger, config, notifier)
		if err != nil {
			return nil, nil, err
		}
		return mgr, notifier, nil

	case EngineMemory:
		return memory.NewManager(logger, notifier), notifier, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage engine: %s (supported: surreal, memory)", engine)
	}
}
