package server

import (
	"errors"
	"net/http"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// handleProfile handles GET and PATCH /api/profile.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleProfileGet(w, r)
	case http.MethodPatch:
		s.handleProfilePatch(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	uc, ok := s.requireVerifiedUser(w, r)
	if !ok {
		return
	}

	profile, err := s.app.Storage.ProfileStore().Get(r.Context(), uc.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "profile not found")
			return
		}
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to load profile")
		WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	WriteData(w, http.StatusOK, profile.Normalized())
}

// handleProfilePatch applies a field-level update. Plan, role and email
// are not writable here: plan and role belong to the admin surface, email
// changes go through the credentialed /api/auth/email flow.
func (s *Server) handleProfilePatch(w http.ResponseWriter, r *http.Request) {
	uc, ok := s.requireVerifiedUser(w, r)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string                   `json:"display_name"`
		PhotoURL    *string                   `json:"photo_url"`
		Bio         *string                   `json:"bio"`
		Financial   *models.FinancialSnapshot `json:"financial"`
		Preferences *models.Preferences       `json:"preferences"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	patch := &models.ProfilePatch{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
		Bio:         req.Bio,
		Financial:   req.Financial,
		Preferences: req.Preferences,
	}

	profile, err := s.app.AccountService.UpdateProfile(r.Context(), uc.UserID, patch)
	if !writeAccountError(w, err) {
		return
	}

	WriteData(w, http.StatusOK, profile.Normalized())
}
