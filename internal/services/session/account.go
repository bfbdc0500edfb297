package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

var (
	// ErrRecentLoginRequired is returned when a sensitive mutation is
	// attempted on a token older than the configured window.
	ErrRecentLoginRequired = errors.New("recent login required")
	// ErrInvalidCredentials is returned when a supplied password does not
	// match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for unknown or expired reset and
	// verification tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrEmptyPatch is returned when a profile update carries no fields.
	ErrEmptyPatch = errors.New("empty profile patch")
	// ErrEmailTaken is returned when an email change collides with an
	// existing account.
	ErrEmailTaken = errors.New("email already in use")
)

const (
	resetTokenTTL  = 30 * time.Minute
	verifyTokenTTL = 24 * time.Hour
)

type issuedToken struct {
	identityID string
	expiresAt  time.Time
}

// Service implements account mutations that flow through the session
// layer: profile updates, credential changes and the reset flow.
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	auth    common.AuthConfig

	mu           sync.Mutex
	resetTokens  map[string]issuedToken
	verifyTokens map[string]issuedToken
	resetLimits  map[string]*rate.Limiter

	now func() time.Time
}

// NewService creates the account service.
func NewService(storage interfaces.StorageManager, logger *common.Logger, auth common.AuthConfig) *Service {
	return &Service{
		storage:      storage,
		logger:       logger,
		auth:         auth,
		resetTokens:  make(map[string]issuedToken),
		verifyTokens: make(map[string]issuedToken),
		resetLimits:  make(map[string]*rate.Limiter),
		now:          time.Now,
	}
}

var _ interfaces.AccountService = (*Service)(nil)

// UpdateProfile applies a field-level patch. Changes to display name or
// photo are mirrored onto the identity record first so the two stores
// never disagree about who the user is.
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch *models.ProfilePatch) (*models.Profile, error) {
	if patch == nil || patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}

	if patch.TouchesIdentity() {
		ident, err := s.storage.IdentityStore().Get(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("load identity: %w", err)
		}
		if patch.DisplayName != nil {
			ident.DisplayName = *patch.DisplayName
		}
		if patch.PhotoURL != nil {
			ident.PhotoURL = *patch.PhotoURL
		}
		ident.ModifiedAt = s.now().UTC()
		if err := s.storage.IdentityStore().Save(ctx, ident); err != nil {
			return nil, fmt.Errorf("save identity: %w", err)
		}
	}

	profile, err := s.storage.ProfileStore().Patch(ctx, userID, patch)
	if err != nil {
		return nil, fmt.Errorf("patch profile: %w", err)
	}
	return profile, nil
}

// UpdateEmail changes the account email. Requires the current password and
// a recent token. The new address starts unverified.
func (s *Service) UpdateEmail(ctx context.Context, userID, newEmail, password string, tokenIssuedAt time.Time) error {
	if err := s.requireRecentLogin(tokenIssuedAt); err != nil {
		return err
	}

	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return fmt.Errorf("email is required")
	}

	ident, err := s.storage.IdentityStore().Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if err := ComparePassword(ident.PasswordHash, password); err != nil {
		return ErrInvalidCredentials
	}

	if existing, err := s.storage.IdentityStore().GetByEmail(ctx, newEmail); err == nil && existing.ID != userID {
		return ErrEmailTaken
	} else if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}

	ident.Email = newEmail
	ident.EmailVerified = false
	ident.ModifiedAt = s.now().UTC()
	if err := s.storage.IdentityStore().Save(ctx, ident); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}

	email := newEmail
	if _, err := s.storage.ProfileStore().Patch(ctx, userID, &models.ProfilePatch{Email: &email}); err != nil {
		return fmt.Errorf("patch profile: %w", err)
	}

	token := s.IssueVerificationToken(userID)
	s.logger.Info().Str("identity", userID).Str("token", token).Msg("Verification token issued for changed email")
	return nil
}

// UpdatePassword replaces the stored hash. Requires the current password
// and a recent token.
func (s *Service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string, tokenIssuedAt time.Time) error {
	if err := s.requireRecentLogin(tokenIssuedAt); err != nil {
		return err
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	ident, err := s.storage.IdentityStore().Get(ctx, userID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	if err := ComparePassword(ident.PasswordHash, currentPassword); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ident.PasswordHash = hash
	ident.ModifiedAt = s.now().UTC()
	if err := s.storage.IdentityStore().Save(ctx, ident); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token for the account behind email.
// The response is uniform whether or not the account exists, and repeat
// requests for the same address are rate limited.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	if !s.resetLimiter(email).Allow() {
		s.logger.Warn().Str("email", email).Msg("Password reset rate limited")
		return nil
	}

	ident, err := s.storage.IdentityStore().GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Error().Err(err).Msg("Password reset lookup failed")
		}
		return nil
	}

	token := uuid.New().String()
	s.mu.Lock()
	s.resetTokens[token] = issuedToken{identityID: ident.ID, expiresAt: s.now().Add(resetTokenTTL)}
	s.mu.Unlock()

	// Delivery is a log line until a mailer is wired in.
	s.logger.Info().Str("identity", ident.ID).Str("token", token).Msg("Password reset token issued")
	return nil
}

// ResetPassword consumes a reset token and installs a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	s.mu.Lock()
	issued, ok := s.resetTokens[token]
	if ok {
		delete(s.resetTokens, token)
	}
	s.mu.Unlock()
	if !ok || s.now().After(issued.expiresAt) {
		return ErrInvalidToken
	}

	ident, err := s.storage.IdentityStore().Get(ctx, issued.identityID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ident.PasswordHash = hash
	ident.ModifiedAt = s.now().UTC()
	if err := s.storage.IdentityStore().Save(ctx, ident); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// IssueVerificationToken mints a token proving control of the account's
// email address. Returned so callers can dispatch it.
func (s *Service) IssueVerificationToken(identityID string) string {
	token := uuid.New().String()
	s.mu.Lock()
	s.verifyTokens[token] = issuedToken{identityID: identityID, expiresAt: s.now().Add(verifyTokenTTL)}
	s.mu.Unlock()
	return token
}

// VerifyEmail consumes a verification token and marks the identity
// verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	s.mu.Lock()
	issued, ok := s.verifyTokens[token]
	if ok {
		delete(s.verifyTokens, token)
	}
	s.mu.Unlock()
	if !ok || s.now().After(issued.expiresAt) {
		return ErrInvalidToken
	}

	ident, err := s.storage.IdentityStore().Get(ctx, issued.identityID)
	if err != nil {
		return fmt.Errorf("load identity: %w", err)
	}
	ident.EmailVerified = true
	ident.ModifiedAt = s.now().UTC()
	if err := s.storage.IdentityStore().Save(ctx, ident); err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

func (s *Service) requireRecentLogin(tokenIssuedAt time.Time) error {
	if tokenIssuedAt.IsZero() {
		return ErrRecentLoginRequired
	}
	if s.now().Sub(tokenIssuedAt) > s.auth.GetRecentLoginWindow() {
		return ErrRecentLoginRequired
	}
	return nil
}

func (s *Service) resetLimiter(email string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.resetLimits[email]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute), 3)
		s.resetLimits[email] = lim
	}
	return lim
}

// HashPassword hashes a password with bcrypt. Input is truncated to
// bcrypt's 72 byte limit so long passphrases hash deterministically.
func HashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(b, 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks a password against a stored bcrypt hash, with
// the same 72 byte truncation applied at hash time.
func ComparePassword(hash, password string) error {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b)
}
