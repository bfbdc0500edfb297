package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/akumol/guardian/internal/interfaces"
	"github.com/akumol/guardian/internal/models"
)

// handleTicketsRoot handles POST /api/tickets (create) and GET
// /api/tickets (list own tickets).
func (s *Server) handleTicketsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleTicketCreate(w, r)
	case http.MethodGet:
		s.handleTicketList(w, r)
	default:
		RequireMethod(w, r, http.MethodPost, http.MethodGet)
	}
}

func (s *Server) handleTicketCreate(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if !models.ValidTicketTypes[req.Type] {
		WriteError(w, http.StatusBadRequest, "type must be one of: error, suggestion, question")
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		WriteError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()
	ticket := &models.SupportTicket{
		UserID:    uc.UserID,
		UserEmail: uc.Email,
		Type:      req.Type,
		Message:   req.Message,
		Status:    models.TicketStatusOpen,
		CreatedAt: time.Now().UTC(),
	}
	if profile, err := s.app.Storage.ProfileStore().Get(ctx, uc.UserID); err == nil {
		ticket.UserName = profile.DisplayName
	}

	if err := s.app.Storage.TicketStore().Create(ctx, ticket); err != nil {
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to create ticket")
		WriteError(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	WriteData(w, http.StatusCreated, ticket)
}

func (s *Server) handleTicketList(w http.ResponseWriter, r *http.Request) {
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	opts := ticketListOptions(r)
	opts.UserID = uc.UserID

	tickets, total, err := s.app.Storage.TicketStore().List(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Str("user", uc.UserID).Msg("Failed to list tickets")
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

// handleTicketByID handles GET and DELETE /api/tickets/{id}. Owners can
// read and withdraw their own tickets; admins can touch any.
func (s *Server) handleTicketByID(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	uc, ok := requireUser(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	ticket, err := s.app.Storage.TicketStore().Get(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "ticket not found")
			return
		}
		s.logger.Error().Err(err).Str("ticket", id).Msg("Failed to load ticket")
		WriteError(w, http.StatusInternalServerError, "failed to load ticket")
		return
	}

	if ticket.UserID != uc.UserID && uc.Role != models.RoleAdmin {
		WriteError(w, http.StatusForbidden, "not your ticket")
		return
	}

	switch r.Method {
	case http.MethodGet:
		WriteData(w, http.StatusOK, ticket)
	case http.MethodDelete:
		if err := s.app.Storage.TicketStore().Delete(ctx, id); err != nil {
			s.logger.Error().Err(err).Str("ticket", id).Msg("Failed to delete ticket")
			WriteError(w, http.StatusInternalServerError, "failed to delete ticket")
			return
		}
		WriteData(w, http.StatusOK, map[string]string{"message": "ticket deleted"})
	}
}

// handleTicketResolve handles POST /api/tickets/{id}/resolve (admin).
// Resolution removes the ticket; the queue only holds open work.
func (s *Server) handleTicketResolve(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
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
		WriteError(w, http.StatusInternalServerError, "failed to resolve ticket")
		return
	}

	if err := s.app.Storage.TicketStore().Delete(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("ticket", id).Msg("Failed to resolve ticket")
		WriteError(w, http.StatusInternalServerError, "failed to resolve ticket")
		return
	}

	WriteData(w, http.StatusOK, map[string]string{"message": "ticket resolved"})
}

// ticketListOptions parses common list query parameters.
func ticketListOptions(r *http.Request) interfaces.TicketListOptions {
	q := r.URL.Query()
	opts := interfaces.TicketListOptions{
		Status: strings.ToLower(q.Get("status")),
		Type:   strings.ToLower(q.Get("type")),
	}
	if v := q.Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Page = n
		}
	}
	if v := q.Get("per_page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.PerPage = n
		}
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			opts.Since = &t
		}
	}
	return opts
}
