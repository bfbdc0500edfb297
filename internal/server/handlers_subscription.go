package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// handleSubscriptionsRoot handles GET /api/subscriptions (list) and POST
// /api/subscriptions (add a manual entry).
func (s *Server) handleSubscriptionsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleSubscriptionList(w, r)
	case http.MethodPost:
		s.handleSubscriptionCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleSubscriptionList(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	profile, ok := s.loadProfile(w, r, uc.UserID)
	if !ok {
		return
	}

	subs := profile.Subscriptions
	if subs == nil {
		subs = []models.TrackedSubscription{}
	}
	WriteData(w, http.StatusOK, map[string]interface{}{
		"subscriptions": subs,
		"count":         len(subs),
	})
}

func (s *Server) handleSubscriptionCreate(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Name          string  `json:"name"`
		MonthlyAmount float64 `json:"monthly_amount"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.MonthlyAmount <= 0 {
		WriteError(w, http.StatusBadRequest, "monthly_amount must be positive")
		return
	}

	profile, ok := s.loadProfile(w, r, uc.UserID)
	if !ok {
		return
	}

	for _, sub := range profile.Subscriptions {
		if strings.EqualFold(sub.Name, req.Name) {
			WriteError(w, http.StatusConflict, "subscription already tracked")
			return
		}
	}

	now := time.Now().UTC()
	subs := append(profile.Subscriptions, models.TrackedSubscription{
		ID:            "sub_" + uuid.New().String()[:8],
		Name:          req.Name,
		MonthlyAmount: req.MonthlyAmount,
		FirstSeen:     now,
		LastSeen:      now,
		Source:        models.SubscriptionSourceManual,
	})

	updated, err := s.app.Storage.ProfileStore().Patch(r.Context(), uc.UserID, &models.ProfilePatch{Subscriptions: &subs})
	if err != nil {
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to save subscription")
		WriteError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	WriteData(w, http.StatusCreated, map[string]interface{}{
		"subscriptions": updated.Subscriptions,
		"count":         len(updated.Subscriptions),
	})
}

// handleSubscriptionByID handles DELETE /api/subscriptions/{id}.
func (s *Server) handleSubscriptionByID(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodDelete) {
		return
	}
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	id := PathParam(r, "/api/subscriptions/", "")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "subscription id is required")
		return
	}

	profile, ok := s.loadProfile(w, r, uc.UserID)
	if !ok {
		return
	}

	subs := make([]models.TrackedSubscription, 0, len(profile.Subscriptions))
	found := false
	for _, sub := range profile.Subscriptions {
		if sub.ID == id {
			found = true
			continue
		}
		subs = append(subs, sub)
	}
	if !found {
		WriteError(w, http.StatusNotFound, "subscription not found")
		return
	}

	if _, err := s.app.Storage.ProfileStore().Patch(r.Context(), uc.UserID, &models.ProfilePatch{Subscriptions: &subs}); err != nil {
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to remove subscription")
		WriteError(w, http.StatusInternalServerError, "failed to remove subscription")
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"message": "subscription removed"})
}

// loadProfile fetches the caller's profile, writing the error response on
// failure.
func (s *Server) loadProfile(w http.ResponseWriter, r *http.Request, uid string) (*models.Profile, bool) {
	profile, err := s.app.Storage.ProfileStore().Get(r.Context(), uid)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "profile not found")
			return nil, false
		}
		s.logger.Error().Err(err).Str("user", uid).Msg("Failed to load profile")
		WriteError(w, http.StatusInternalServerError, "failed to load profile")
		return nil, false
	}
	return profile.Normalized(), true
}
