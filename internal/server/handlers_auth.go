package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
	"github.com/akumol/guardian/internal/services/session"
)

// --- JWT helpers ---

// signJWT creates a signed HMAC-SHA256 JWT for the given identity.
func signJWT(identity *models.Identity, config *common.AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   identity.ID,
		"email": identity.Email,
		"name":  identity.DisplayName,
		"iss":   "guardian-server",
		"iat":   now.Unix(),
		"exp":   now.Add(config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// validateJWT parses and validates a JWT token string using the given secret.
func validateJWT(tokenString string, secret []byte) (*jwt.Token, jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return token, claims, nil
}

// requireUser pulls the authenticated user from the request context.
// Writes a 401 and returns false when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) (*common.UserContext, bool) {
	uc := common.UserContextFromContext(r.Context())
	if uc == nil || uc.UserID == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return uc, true
}

// requireVerifiedUser is requireUser plus the verification gate: an
// unverified identity is logged out to the application surface, the same
// policy the session stream applies.
func (s *Server) requireVerifiedUser(w http.ResponseWriter, r *http.Request) (*common.UserContext, bool) {
	uc, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}
	ident, err := s.app.Storage.IdentityStore().Get(r.Context(), uc.UserID)
	if err != nil || !ident.EmailVerified {
		WriteErrorWithCode(w, http.StatusForbidden, "Email verification required", "email_verification_required")
		return nil, false
	}
	return uc, true
}

// identityResponse shapes an identity for API responses. The password
// hash never leaves the server.
func identityResponse(ident *models.Identity) map[string]interface{} {
	return map[string]interface{}{
		"id":             ident.ID,
		"email":          ident.Email,
		"display_name":   ident.DisplayName,
		"photo_url":      ident.PhotoURL,
		"email_verified": ident.EmailVerified,
	}
}

// handleAuthRegister handles POST /api/auth/register.
func (s *Server) handleAuthRegister(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"display_name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		WriteError(w, http.StatusBadRequest, "valid email is required")
		return
	}
	if len(req.Password) < 8 {
		WriteError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	ctx := r.Context()
	if _, err := s.app.Storage.IdentityStore().GetByEmail(ctx, req.Email); err == nil {
		WriteError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.Error().Err(err).Msg("Registration lookup failed")
		WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	hash, err := session.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	now := time.Now().UTC()
	ident := &models.Identity{
		ID:           fmt.Sprintf("usr_%s", uuid.New().String()[:8]),
		Email:        req.Email,
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		CreatedAt:    now,
		ModifiedAt:   now,
	}
	if err := s.app.Storage.IdentityStore().Create(ctx, ident); err != nil {
		if errors.Is(err, interfaces.ErrConflict) {
			WriteError(w, http.StatusConflict, "email already registered")
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create identity")
		WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	// The profile document is the application-facing record; it exists
	// from the moment the account does.
	if err := s.app.Storage.ProfileStore().Create(ctx, models.NewProfile(ident)); err != nil {
		s.logger.Error().Err(err).Str("identity", ident.ID).Msg("Failed to create profile")
		WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	if svc, ok := s.app.AccountService.(*session.Service); ok {
		token := svc.IssueVerificationToken(ident.ID)
		s.logger.Info().Str("identity", ident.ID).Str("token", token).Msg("Verification token issued")
	}

	token, err := signJWT(ident, &s.app.Config.Auth)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign JWT")
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	WriteData(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  identityResponse(ident),
	})
}

// handleAuthLogin handles POST /api/auth/login. A login on an unverified
// account still returns a token; the session stream stays unauthenticated
// until the email is confirmed.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	ident, err := s.app.Storage.IdentityStore().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := session.ComparePassword(ident.PasswordHash, req.Password); err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := signJWT(ident, &s.app.Config.Auth)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to sign JWT")
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  identityResponse(ident),
	})
}

// handlePasswordResetRequest handles POST /api/auth/password-reset.
// The response never reveals whether the address has an account.
func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := s.app.AccountService.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.logger.Error().Err(err).Msg("Password reset request failed")
	}
	WriteData(w, http.StatusAccepted, map[string]string{
		"message": "If that email has an account, a reset link is on its way",
	})
}

// handlePasswordResetConfirm handles POST /api/auth/password-reset/confirm.
func (s *Server) handlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := s.app.AccountService.ResetPassword(r.Context(), req.Token, req.Password)
	switch {
	case errors.Is(err, session.ErrInvalidToken):
		WriteError(w, http.StatusBadRequest, "invalid or expired token")
	case err != nil:
		WriteError(w, http.StatusBadRequest, err.Error())
	default:
		WriteData(w, http.StatusOK, map[string]string{"message": "password updated"})
	}
}

// handleVerifyEmail handles POST /api/auth/verify-email.
func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := s.app.AccountService.VerifyEmail(r.Context(), req.Token)
	switch {
	case errors.Is(err, session.ErrInvalidToken):
		WriteError(w, http.StatusBadRequest, "invalid or expired token")
	case err != nil:
		s.logger.Error().Err(err).Msg("Email verification failed")
		WriteError(w, http.StatusInternalServerError, "verification failed")
	default:
		WriteData(w, http.StatusOK, map[string]string{"message": "email verified"})
	}
}

// handleAuthEmail handles PUT /api/auth/email - change the account email.
func (s *Server) handleAuthEmail(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := s.app.AccountService.UpdateEmail(r.Context(), uc.UserID, req.Email, req.Password, uc.IssuedAt)
	if !writeAccountError(w, err) {
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"message": "email updated, verification required"})
}

// handleAuthPassword handles PUT /api/auth/password - change the password.
func (s *Server) handleAuthPassword(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	err := s.app.AccountService.UpdatePassword(r.Context(), uc.UserID, req.CurrentPassword, req.NewPassword, uc.IssuedAt)
	if !writeAccountError(w, err) {
		return
	}
	WriteData(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// writeAccountError maps account service errors to HTTP responses.
// Returns true when err was nil and the caller should write success.
func writeAccountError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, session.ErrRecentLoginRequired):
		WriteErrorWithCode(w, http.StatusForbidden, "recent login required, please sign in again", "recent_login_required")
	case errors.Is(err, session.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, session.ErrEmailTaken):
		WriteError(w, http.StatusConflict, "email already in use")
	case errors.Is(err, session.ErrEmptyPatch):
		WriteError(w, http.StatusBadRequest, "no fields to update")
	case errors.Is(err, interfaces.ErrNotFound):
		WriteError(w, http.StatusNotFound, "account not found")
	default:
		WriteError(w, http.StatusBadRequest, err.Error())
	}
	return false
}
