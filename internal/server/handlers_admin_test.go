package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/models"
)

func TestRequireAdmin_Anonymous(t *testing.T) {
	srv := newTestServerWithStorage(t)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	rec := httptest.NewRecorder()
	srv.handleAdminListUsers(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAdmin_RegularUser(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req = withUser(req, &common.UserContext{UserID: id, Role: models.RoleUser})
	rec := httptest.NewRecorder()
	srv.handleAdminListUsers(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestHandleAdminListUsers(t *testing.T) {
	srv := newTestServerWithStorage(t)
	registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.handleAdminListUsers(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Users []models.Profile `json:"users"`
			Count int              `json:"count"`
		} `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Data.Count != 2 {
		t.Errorf("expected 2 users, got %d", resp.Data.Count)
	}
}

func TestHandleAdminUserPlan_Upgrade(t *testing.T) {
	srv := newTestServerWithStorage(t)
	alice, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	body := jsonBody(t, map[string]string{"plan": "Premium"})
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+alice+"/plan", body)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.handleAdminUserPlan(rec, req, alice)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	profile, err := srv.app.Storage.ProfileStore().Get(context.Background(), alice)
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	if profile.Plan != models.PlanPremium {
		t.Errorf("expected premium plan, got %q", profile.Plan)
	}
}

func TestHandleAdminUserPlan_UnknownPlan(t *testing.T) {
	srv := newTestServerWithStorage(t)
	alice, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	body := jsonBody(t, map[string]string{"plan": "platinum"})
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+alice+"/plan", body)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.handleAdminUserPlan(rec, req, alice)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAdminUserRole_Promote(t *testing.T) {
	srv := newTestServerWithStorage(t)
	alice, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	body := jsonBody(t, map[string]string{"role": "family_admin"})
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+alice+"/role", body)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.handleAdminUserRole(rec, req, alice)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	profile, _ := srv.app.Storage.ProfileStore().Get(context.Background(), alice)
	if profile.Role != models.RoleFamilyAdmin {
		t.Errorf("expected family_admin role, got %q", profile.Role)
	}
}

func TestHandleAdminUserRole_SelfDemotionRefused(t *testing.T) {
	srv := newTestServerWithStorage(t)
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	body := jsonBody(t, map[string]string{"role": "user"})
	req := httptest.NewRequest(http.MethodPut, "/api/admin/users/"+admin+"/role", body)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.handleAdminUserRole(rec, req, admin)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	profile, _ := srv.app.Storage.ProfileStore().Get(context.Background(), admin)
	if profile.Role != models.RoleAdmin {
		t.Errorf("expected role to remain admin, got %q", profile.Role)
	}
}

func TestHandleAdminTicketDelete(t *testing.T) {
	srv := newTestServerWithStorage(t)
	alice, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	ticketID := createTestTicket(t, srv, &common.UserContext{UserID: alice}, "suggestion", "dark mode")

	req := httptest.NewRequest(http.MethodDelete, "/api/admin/tickets/"+ticketID, nil)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.routeAdminTickets(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := srv.app.Storage.TicketStore().Get(context.Background(), ticketID); err == nil {
		t.Error("expected deleted ticket to be gone")
	}
}

func TestHandleAdminListTickets_AllUsers(t *testing.T) {
	srv := newTestServerWithStorage(t)
	alice, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	bob, _ := registerTestUser(t, srv, "bob@example.com", "secretpass", "Bob")
	admin, _ := registerTestUser(t, srv, "admin@example.com", "secretpass", "Admin")
	promoteToAdmin(t, srv, admin)

	createTestTicket(t, srv, &common.UserContext{UserID: alice}, "error", "a")
	createTestTicket(t, srv, &common.UserContext{UserID: bob}, "question", "b")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/tickets", nil)
	req = withUser(req, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	rec := httptest.NewRecorder()
	srv.handleAdminListTickets(rec, req)

	var resp struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Data.Total != 2 {
		t.Errorf("expected 2 tickets across all users, got %d", resp.Data.Total)
	}

	// Filtered by user_id.
	filtered := httptest.NewRequest(http.MethodGet, "/api/admin/tickets?user_id="+alice, nil)
	filtered = withUser(filtered, &common.UserContext{UserID: admin, Role: models.RoleAdmin})
	filteredRec := httptest.NewRecorder()
	srv.handleAdminListTickets(filteredRec, filtered)

	var filteredResp struct {
		Data struct {
			Total int `json:"total"`
		} `json:"data"`
	}
	json.NewDecoder(filteredRec.Body).Decode(&filteredResp)
	if filteredResp.Data.Total != 1 {
		t.Errorf("expected 1 ticket for alice, got %d", filteredResp.Data.Total)
	}
}
