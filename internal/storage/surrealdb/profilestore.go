package surrealdb

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
	"github.com/akumol/guardian/internal/storage/notify"
)

// ProfileStore persists profile documents. Every write publishes the
// resulting snapshot to the notifier so session watchers see it live.
type ProfileStore struct {
	db       *surrealdb.DB
	logger   *common.Logger
	notifier *notify.ProfileNotifier
}

func NewProfileStore(db *surrealdb.DB, logger *common.Logger, notifier *notify.ProfileNotifier) *ProfileStore {
	return &ProfileStore{db: db, logger: logger, notifier: notifier}
}

func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	if existing, err := s.Get(ctx, profile.UID); err == nil && existing != nil {
		return interfaces.ErrConflict
	}

	sql := "UPSERT type::record('profile', $id) CONTENT $profile"
	vars := map[string]any{"id": profile.UID, "profile": profile}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]models.Profile](ctx, s.db, sql, vars)
		if err == nil {
			s.notifier.Publish(*profile)
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to create profile after retries: %w", err)
		}
	}
	return nil
}

func (s *ProfileStore) Get(ctx context.Context, uid string) (*models.Profile, error) {
	profile, err := surrealdb.Select[models.Profile](ctx, s.db, surrealmodels.NewRecordID("profile", uid))
	if err != nil {
		if isNotFoundError(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select profile: %w", err)
	}
	if profile == nil || profile.UID == "" {
		return nil, interfaces.ErrNotFound
	}
	return profile, nil
}

// Patch applies a field-level merge. Only the fields carried by the patch
// are written, so concurrent patches to different fields never clobber
// each other.
func (s *ProfileStore) Patch(ctx context.Context, uid string, patch *models.ProfilePatch) (*models.Profile, error) {
	if _, err := s.Get(ctx, uid); err != nil {
		return nil, err
	}

	sql := "UPDATE type::record('profile', $id) MERGE $fields"
	vars := map[string]any{"id": uid, "fields": patch.Fields()}

	results, err := surrealdb.Query[[]models.Profile](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to patch profile: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, interfaces.ErrNotFound
	}

	updated := (*results)[0].Result[0]
	s.notifier.Publish(updated)
	return &updated, nil
}

func (s *ProfileStore) Delete(ctx context.Context, uid string) error {
	_, err := surrealdb.Delete[models.Profile](ctx, s.db, surrealmodels.NewRecordID("profile", uid))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) List(ctx context.Context) ([]*models.Profile, error) {
	sql := "SELECT * FROM profile ORDER BY created_at ASC"

	results, err := surrealdb.Query[[]models.Profile](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	var out []*models.Profile
	if results != nil && len(*results) > 0 {
		for i := range (*results)[0].Result {
			out = append(out, &(*results)[0].Result[i])
		}
	}
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
