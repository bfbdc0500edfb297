package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// identitySelectFields aliases identity_id to id for struct mapping. The
// record id itself is a RecordID and never decodes into the model.
const identitySelectFields = `identity_id as id, email, password_hash, display_name, photo_url, email_verified, created_at, modified_at`

// IdentityStore persists identity records in the identity table, keyed by ID.
type IdentityStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

func NewIdentityStore(db *surrealdb.DB, logger *common.Logger) *IdentityStore {
	return &IdentityStore{db: db, logger: logger}
}

func (s *IdentityStore) Create(ctx context.Context, identity *models.Identity) error {
	if existing, err := s.Get(ctx, identity.ID); err == nil && existing != nil {
		return interfaces.ErrConflict
	}
	if existing, err := s.GetByEmail(ctx, identity.Email); err == nil && existing != nil {
		return interfaces.ErrConflict
	}
	return s.Save(ctx, identity)
}

func (s *IdentityStore) Get(ctx context.Context, id string) (*models.Identity, error) {
	sql := "SELECT " + identitySelectFields + " FROM $rid"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("identity", id)}

	results, err := surrealdb.Query[[]models.Identity](ctx, s.db, sql, vars)
	if err != nil {
		if isNotFoundError(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select identity: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, interfaces.ErrNotFound
	}
	ident := &(*results)[0].Result[0]
	if ident.ID == "" {
		return nil, interfaces.ErrNotFound
	}
	return ident, nil
}

func (s *IdentityStore) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	sql := "SELECT " + identitySelectFields + " FROM identity WHERE string::lowercase(email) = $email LIMIT 1"
	vars := map[string]any{"email": strings.ToLower(strings.TrimSpace(email))}

	results, err := surrealdb.Query[[]models.Identity](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to query identity by email: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

func (s *IdentityStore) Save(ctx context.Context, identity *models.Identity) error {
	identity.ModifiedAt = time.Now()

	sql := `UPSERT $rid SET
		identity_id = $identity_id, email = $email, password_hash = $password_hash,
		display_name = $display_name, photo_url = $photo_url,
		email_verified = $email_verified, created_at = $created_at,
		modified_at = $modified_at`
	vars := map[string]any{
		"rid":            surrealmodels.NewRecordID("identity", identity.ID),
		"identity_id":    identity.ID,
		"email":          identity.Email,
		"password_hash":  identity.PasswordHash,
		"display_name":   identity.DisplayName,
		"photo_url":      identity.PhotoURL,
		"email_verified": identity.EmailVerified,
		"created_at":     identity.CreatedAt,
		"modified_at":    identity.ModifiedAt,
	}

	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[any](ctx, s.db, sql, vars)
		if err == nil {
			return nil
		}
		if attempt == 3 {
			return fmt.Errorf("failed to save identity after retries: %w", err)
		}
	}
	return nil
}

func (s *IdentityStore) Delete(ctx context.Context, id string) error {
	_, err := surrealdb.Delete[models.Identity](ctx, s.db, surrealmodels.NewRecordID("identity", id))
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

// Compile-time check
var _ interfaces.IdentityStore = (*IdentityStore)(nil)
