package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/akumol/guardian/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Auth
	mux.HandleFunc("/api/auth/register", s.handleAuthRegister)
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)
	mux.HandleFunc("/api/auth/password-reset", s.handlePasswordResetRequest)
	mux.HandleFunc("/api/auth/password-reset/confirm", s.handlePasswordResetConfirm)
	mux.HandleFunc("/api/auth/verify-email", s.handleVerifyEmail)
	mux.HandleFunc("/api/auth/email", s.handleAuthEmail)
	mux.HandleFunc("/api/auth/password", s.handleAuthPassword)

	// Profile
	mux.HandleFunc("/api/profile", s.handleProfile)

	// Session stream
	mux.HandleFunc("/ws/session", s.handleSessionWS)

	// Access resolution
	mux.HandleFunc("/api/access/resolve", s.handleAccessResolve)

	// Counselor
	mux.HandleFunc("/api/counselor/chat", s.handleCounselorChat)
	mux.HandleFunc("/api/counselor/history", s.handleCounselorHistory)

	// Support tickets
	mux.HandleFunc("/api/tickets/", s.routeTickets)
	mux.HandleFunc("/api/tickets", s.handleTicketsRoot)

	// Tracked subscriptions
	mux.HandleFunc("/api/subscriptions/", s.handleSubscriptionByID)
	mux.HandleFunc("/api/subscriptions", s.handleSubscriptionsRoot)

	// Statement import
	mux.HandleFunc("/api/statements/import", s.handleStatementImport)

	// Reports
	mux.HandleFunc("/api/reports/balance-history.png", s.handleBalanceHistoryChart)

	// Admin
	mux.HandleFunc("/api/admin/users/", s.routeAdminUsers) // handles {id}/plan, {id}/role
	mux.HandleFunc("/api/admin/users", s.handleAdminListUsers)
	mux.HandleFunc("/api/admin/tickets/", s.routeAdminTickets)
	mux.HandleFunc("/api/admin/tickets", s.handleAdminListTickets)
}

// routeAdminTickets dispatches /api/admin/tickets/{id}.
func (s *Server) routeAdminTickets(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/admin/tickets/")
	if path == "" {
		s.handleAdminListTickets(w, r)
		return
	}
	s.handleAdminTicketDelete(w, r, path)
}

// routeTickets dispatches /api/tickets/{id} and /api/tickets/{id}/resolve.
func (s *Server) routeTickets(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tickets/")
	if path == "" {
		s.handleTicketsRoot(w, r)
		return
	}

	if strings.HasSuffix(path, "/resolve") {
		id := strings.TrimSuffix(path, "/resolve")
		s.handleTicketResolve(w, r, id)
		return
	}

	s.handleTicketByID(w, r, path)
}

// routeAdminUsers dispatches /api/admin/users/{id}/plan and {id}/role.
func (s *Server) routeAdminUsers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/admin/users/")
	if path == "" {
		s.handleAdminListUsers(w, r)
		return
	}

	switch {
	case strings.HasSuffix(path, "/plan"):
		s.handleAdminUserPlan(w, r, strings.TrimSuffix(path, "/plan"))
	case strings.HasSuffix(path, "/role"):
		s.handleAdminUserRole(w, r, strings.TrimSuffix(path, "/role"))
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}
