package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// counselorProfile loads the caller's profile and enforces the plan gate.
// The counselor is a premium feature; admins pass regardless of plan.
func (s *Server) counselorProfile(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	uc, ok := requireUser(w, r)
	if !ok {
		return nil, false
	}

	profile, err := s.app.Storage.ProfileStore().Get(r.Context(), uc.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "profile not found")
			return nil, false
		}
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to load profile")
		WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return nil, false
	}

	p := profile.Normalized()
	if p.Role != models.RoleAdmin && !p.Plan.AtLeast(models.PlanPremium) {
		WriteErrorWithCode(w, http.StatusForbidden, "counselor requires the premium plan", "plan_required")
		return nil, false
	}
	return p, true
}

// handleCounselorChat handles POST /api/counselor/chat.
func (s *Server) handleCounselorChat(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	profile, ok := s.counselorProfile(w, r)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	reply, err := s.app.CounselorService.Chat(r.Context(), profile, req.Message)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteData(w, http.StatusOK, reply)
}

// handleCounselorHistory handles GET /api/counselor/history?limit=50.
func (s *Server) handleCounselorHistory(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	profile, ok := s.counselorProfile(w, r)
	if !ok {
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	history, err := s.app.CounselorService.History(r.Context(), profile.UID, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("user", profile.UID).Msg("Failed to load chat history")
		WriteError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if history == nil {
		history = []*models.ChatMessage{}
	}

	WriteData(w, http.StatusOK, map[string]interface{}{
		"messages": history,
		"count":    len(history),
	})
}
