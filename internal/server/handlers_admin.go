package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// requireAdmin checks that the caller is authenticated and has the admin
// role. Returns false after writing the error response if not.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	uc := common.UserContextFromContext(r.Context())
	if uc == nil || uc.UserID == "" {
		WriteError(w, http.StatusUnauthorized, "Authentication required")
		return false
	}
	if uc.Role != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "Admin access required")
		return false
	}
	return true
}

// handleAdminListUsers handles GET /api/admin/users.
func (s *Server) handleAdminListUsers(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	profiles, err := s.app.Storage.ProfileStore().List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list profiles")
		WriteError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	users := make([]*models.Profile, 0, len(profiles))
	for _, p := range profiles {
		users = append(users, p.Normalized())
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"count": len(users),
	})
}

// handleAdminUserPlan handles PUT /api/admin/users/{id}/plan. The change
// lands on the profile document, so open session streams see the new
// plan without a re-login.
func (s *Server) handleAdminUserPlan(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var req struct {
		Plan string `json:"plan"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	plan := models.Plan(strings.ToLower(strings.TrimSpace(req.Plan)))
	if !plan.Valid() {
		WriteError(w, http.StatusBadRequest, "plan must be one of: basic, premium, plus, ultimate")
		return
	}

	profile, err := s.app.Storage.ProfileStore().Patch(r.Context(), id, &models.ProfilePatch{Plan: &plan})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error().Err(err).Str("user", id).Msg("Failed to update plan")
		WriteError(w, http.StatusInternalServerError, "failed to update plan")
		return
	}

	s.logger.Info().Str("user", id).Str("plan", string(plan)).Msg("Plan updated by admin")
	WriteData(w, http.StatusOK, profile.Normalized())
}

// handleAdminUserRole handles PUT /api/admin/users/{id}/role.
func (s *Server) handleAdminUserRole(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPut) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !models.ValidRoles[role] {
		WriteError(w, http.StatusBadRequest, "role must be one of: user, family_admin, admin")
		return
	}

	// An admin demoting themselves would lock the panel; refuse it.
	if uc := common.UserContextFromContext(r.Context()); uc != nil && uc.UserID == id && role != models.RoleAdmin {
		WriteError(w, http.StatusBadRequest, "cannot remove your own admin role")
		return
	}

	profile, err := s.app.Storage.ProfileStore().Patch(r.Context(), id, &models.ProfilePatch{Role: &role})
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error().Err(err).Str("user", id).Msg("Failed to update role")
		WriteError(w, http.StatusInternalServerError, "failed to update role")
		return
	}

	s.logger.Info().Str("user", id).Str("role", role).Msg("Role updated by admin")
	WriteData(w, http.StatusOK, profile.Normalized())
}

// handleAdminTicketDelete handles DELETE /api/admin/tickets/{id}.
func (s *Server) handleAdminTicketDelete(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	ctx := r.Context()
	if _, err := s.app.Storage.TicketStore().Get(ctx, id); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "ticket not found")
			return
		}
		s.logger.Error().Err(err).Str("ticket", id).Msg("Failed to load ticket")
		WriteError(w, http.StatusInternalServerError, "failed to delete ticket")
		return
	}

	if err := s.app.Storage.TicketStore().Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("ticket", id).Msg("Failed to delete ticket")
		WriteError(w, http.StatusInternalServerError, "failed to delete ticket")
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"message": "ticket deleted"})
}

// handleAdminListTickets handles GET /api/admin/tickets - every user's
// tickets with the standard list filters.
func (s *Server) handleAdminListTickets(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if !s.requireAdmin(w, r) {
		return
	}

	opts := ticketListOptions(r)
	opts.UserID = r.URL.Query().Get("user_id")

	tickets, total, err := s.app.Storage.TicketStore().List(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list tickets")
		WriteError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []*models.SupportTicket{}
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"total":   total,
	})
}
