package server

import (
	"errors"
	"net/http"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// handleAccessResolve handles GET /api/access/resolve?path=/counselor.
// Resolves a destination against the caller's current session. Anonymous
// callers resolve as logged out rather than erroring, so the client can
// use one endpoint for every navigation.
func (s *Server) handleAccessResolve(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		WriteError(w, http.StatusBadRequest, "path query parameter is required")
		return
	}

	view := models.SessionView{}
	if uc := common.UserContextFromContext(r.Context()); uc != nil && uc.UserID != "" {
		// Same gate as the session stream: an unverified identity
		// resolves as logged out.
		ident, err := s.app.Storage.IdentityStore().Get(r.Context(), uc.UserID)
		switch {
		case errors.Is(err, interfaces.ErrNotFound):
		case err != nil:
			s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to load identity for access check")
			WriteError(w, http.StatusInternalServerError, "failed to resolve access")
			return
		case ident.EmailVerified:
			profile, err := s.app.Storage.ProfileStore().Get(r.Context(), uc.UserID)
			switch {
			case errors.Is(err, interfaces.ErrNotFound):
				// Authenticated with no profile resolves as logged out.
			case err != nil:
				s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to load profile for access check")
				WriteError(w, http.StatusInternalServerError, "failed to resolve access")
				return
			default:
				view.Profile = profile.Normalized()
			}
		}
	}

	decision := s.app.AccessResolver.Resolve(view, path)
	WriteData(w, http.StatusOK, decision)
}
