package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/models"
)

func addTestSubscription(t *testing.T, srv *Server, uc *common.UserContext, name string, amount float64) []models.TrackedSubscription {
	t.Helper()
	body := jsonBody(t, map[string]interface{}{
		"name":           name,
		"monthly_amount": amount,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions", body)
	req = withUser(req, uc)
	rec := httptest.NewRecorder()
	srv.handleSubscriptionsRoot(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("addTestSubscription: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Subscriptions []models.TrackedSubscription `json:"subscriptions"`
		} `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	return resp.Data.Subscriptions
}

func TestHandleSubscriptionList_EmptyProfile(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	req := httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil)
	req = withUser(req, &common.UserContext{UserID: id})
	rec := httptest.NewRecorder()
	srv.handleSubscriptionsRoot(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data struct {
			Subscriptions []models.TrackedSubscription `json:"subscriptions"`
			Count         int                          `json:"count"`
		} `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Data.Subscriptions == nil {
		t.Error("expected empty list, not null")
	}
	if resp.Data.Count != 0 {
		t.Errorf("expected count 0, got %d", resp.Data.Count)
	}
}

func TestHandleSubscriptionCreate_Manual(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	uc := &common.UserContext{UserID: id}

	subs := addTestSubscription(t, srv, uc, "Netflix", 22.99)
	if len(subs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(subs))
	}
	if subs[0].Source != models.SubscriptionSourceManual {
		t.Errorf("expected manual source, got %q", subs[0].Source)
	}
	if subs[0].MonthlyAmount != 22.99 {
		t.Errorf("expected amount 22.99, got %.2f", subs[0].MonthlyAmount)
	}
}

func TestHandleSubscriptionCreate_DuplicateName(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	uc := &common.UserContext{UserID: id}

	addTestSubscription(t, srv, uc, "Spotify", 11.99)

	// Name matching is case-insensitive.
	body := jsonBody(t, map[string]interface{}{"name": "SPOTIFY", "monthly_amount": 12.99})
	req := httptest.NewRequest(http.MethodPost, "/api/subscriptions", body)
	req = withUser(req, uc)
	rec := httptest.NewRecorder()
	srv.handleSubscriptionsRoot(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandleSubscriptionCreate_Invalid(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	uc := &common.UserContext{UserID: id}

	tests := []map[string]interface{}{
		{"name": "", "monthly_amount": 9.99},
		{"name": "Hulu", "monthly_amount": 0.0},
		{"name": "Hulu", "monthly_amount": -5.0},
	}
	for _, payload := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/subscriptions", jsonBody(t, payload))
		req = withUser(req, uc)
		rec := httptest.NewRecorder()
		srv.handleSubscriptionsRoot(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %v: expected 400, got %d", payload, rec.Code)
		}
	}
}

func TestHandleSubscriptionDelete(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	uc := &common.UserContext{UserID: id}

	subs := addTestSubscription(t, srv, uc, "Netflix", 22.99)
	subID := subs[0].ID

	req := httptest.NewRequest(http.MethodDelete, "/api/subscriptions/"+subID, nil)
	req = withUser(req, uc)
	rec := httptest.NewRecorder()
	srv.handleSubscriptionByID(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/subscriptions", nil)
	listReq = withUser(listReq, uc)
	listRec := httptest.NewRecorder()
	srv.handleSubscriptionsRoot(listRec, listReq)

	var resp struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	json.NewDecoder(listRec.Body).Decode(&resp)
	if resp.Data.Count != 0 {
		t.Errorf("expected empty list after delete, got %d", resp.Data.Count)
	}
}

func TestHandleSubscriptionDelete_Unknown(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	req := httptest.NewRequest(http.MethodDelete, "/api/subscriptions/sub_missing", nil)
	req = withUser(req, &common.UserContext{UserID: id})
	rec := httptest.NewRecorder()
	srv.handleSubscriptionByID(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
