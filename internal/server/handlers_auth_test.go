package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/akumol/guardian/internal/app"
	"github.com/akumol/guardian/internal/common"
	"github.com/akumol/guardian/internal/services/access"
	"github.com/akumol/guardian/internal/services/counselor"
	"github.com/akumol/guardian/internal/services/session"
	"github.com/akumol/guardian/internal/services/statement"
	"github.com/akumol/guardian/internal/storage/memory"
	"github.com/akumol/guardian/internal/storage/notify"
)

// newTestServerWithStorage creates a test server backed by the in-memory
// engine.
func newTestServerWithStorage(t *testing.T) *Server {
	t.Helper()
	logger := common.NewLoggerFromConfig(common.LoggingConfig{Level: "disabled"})
	cfg := common.NewDefaultConfig()
	cfg.Storage.Engine = "memory"

	notifier := notify.NewProfileNotifier(logger)
	mgr := memory.NewManager(logger, notifier)
	t.Cleanup(func() { mgr.Close() })

	a := &app.App{
		Config:            cfg,
		Logger:            logger,
		Storage:           mgr,
		Notifier:          notifier,
		AccountService:    session.NewService(mgr, logger, cfg.Auth),
		AccessResolver:    access.NewResolver(),
		CounselorService:  counselor.NewService(mgr, nil, logger),
		StatementImporter: statement.NewImporter(mgr, logger),
	}
	srv := &Server{app: a, logger: logger, hub: newSessionHub(a, logger)}
	t.Cleanup(srv.hub.Stop)
	return srv
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return bytes.NewBuffer(data)
}

// registerTestUser registers a user via the handler and returns the new
// user's ID and token.
func registerTestUser(t *testing.T, srv *Server, email, password, name string) (string, string) {
	t.Helper()
	body := jsonBody(t, map[string]string{
		"email":        email,
		"password":     password,
		"display_name": name,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	srv.handleAuthRegister(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("registerTestUser: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)
	return resp.Data.User.ID, resp.Data.Token
}

// withUser attaches an authenticated user context, as the bearer
// middleware would after validating a token.
func withUser(req *http.Request, uc *common.UserContext) *http.Request {
	return req.WithContext(common.WithUserContext(req.Context(), uc))
}

// markVerified flips the identity's verification flag, standing in for
// the verify-email round trip.
func markVerified(t *testing.T, srv *Server, id string) {
	t.Helper()
	ident, err := srv.app.Storage.IdentityStore().Get(context.Background(), id)
	if err != nil {
		t.Fatalf("identity lookup failed: %v", err)
	}
	ident.EmailVerified = true
	if err := srv.app.Storage.IdentityStore().Save(context.Background(), ident); err != nil {
		t.Fatalf("failed to mark identity verified: %v", err)
	}
}

func TestHandleAuthRegister_Success(t *testing.T) {
	srv := newTestServerWithStorage(t)

	id, token := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")
	if id == "" {
		t.Fatal("expected a user id")
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	// Profile document exists from registration.
	profile, err := srv.app.Storage.ProfileStore().Get(httptest.NewRequest("GET", "/", nil).Context(), id)
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Errorf("expected profile email to match, got %q", profile.Email)
	}
	if profile.Plan != "basic" {
		t.Errorf("expected new users on basic plan, got %q", profile.Plan)
	}
}

func TestHandleAuthRegister_DuplicateEmail(t *testing.T) {
	srv := newTestServerWithStorage(t)
	registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	body := jsonBody(t, map[string]string{
		"email":    "Alice@Example.com",
		"password": "otherpass123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	srv.handleAuthRegister(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleAuthRegister_WeakPassword(t *testing.T) {
	srv := newTestServerWithStorage(t)

	body := jsonBody(t, map[string]string{
		"email":    "bob@example.com",
		"password": "short",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	srv.handleAuthRegister(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleAuthLogin_Success(t *testing.T) {
	srv := newTestServerWithStorage(t)
	registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	body := jsonBody(t, map[string]string{
		"email":    "alice@example.com",
		"password": "secretpass",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	srv.handleAuthLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				EmailVerified bool `json:"email_verified"`
			} `json:"user"`
		} `json:"data"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)

	if resp.Data.Token == "" {
		t.Error("expected a token even for an unverified account")
	}
	if resp.Data.User.EmailVerified {
		t.Error("expected email_verified=false before verification")
	}

	// The token must carry the validated claims.
	_, claims, err := validateJWT(resp.Data.Token, []byte(srv.app.Config.Auth.JWTSecret))
	if err != nil {
		t.Fatalf("token did not validate: %v", err)
	}
	if claims["iss"] != "guardian-server" {
		t.Errorf("unexpected issuer %v", claims["iss"])
	}
}

func TestHandleAuthLogin_WrongPassword(t *testing.T) {
	srv := newTestServerWithStorage(t)
	registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	body := jsonBody(t, map[string]string{
		"email":    "alice@example.com",
		"password": "wrongpass",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	srv.handleAuthLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleAuthLogin_UnknownEmail(t *testing.T) {
	srv := newTestServerWithStorage(t)

	body := jsonBody(t, map[string]string{
		"email":    "ghost@example.com",
		"password": "whatever1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	srv.handleAuthLogin(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandlePasswordResetRequest_AlwaysAccepted(t *testing.T) {
	srv := newTestServerWithStorage(t)
	registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	for _, email := range []string{"alice@example.com", "nobody@example.com"} {
		body := jsonBody(t, map[string]string{"email": email})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/password-reset", body)
		rec := httptest.NewRecorder()
		srv.handlePasswordResetRequest(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Errorf("email %s: expected 202, got %d", email, rec.Code)
		}
	}
}

func TestHandlePasswordResetConfirm_BadToken(t *testing.T) {
	srv := newTestServerWithStorage(t)

	body := jsonBody(t, map[string]string{
		"token":    "not-a-token",
		"password": "newpassword1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/password-reset/confirm", body)
	rec := httptest.NewRecorder()
	srv.handlePasswordResetConfirm(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleVerifyEmail_RoundTrip(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	svc := srv.app.AccountService.(*session.Service)
	token := svc.IssueVerificationToken(id)

	body := jsonBody(t, map[string]string{"token": token})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/verify-email", body)
	rec := httptest.NewRecorder()
	srv.handleVerifyEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	ident, err := srv.app.Storage.IdentityStore().Get(req.Context(), id)
	if err != nil {
		t.Fatalf("identity lookup failed: %v", err)
	}
	if !ident.EmailVerified {
		t.Error("expected identity to be verified")
	}
}

func TestHandleAuthPassword_RequiresRecentLogin(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	body := jsonBody(t, map[string]string{
		"current_password": "secretpass",
		"new_password":     "freshpassword",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/auth/password", body)
	// Stale token: IssuedAt long before the recent-login window.
	req = withUser(req, &common.UserContext{UserID: id, IssuedAt: timeAgo(t, "2h")})
	rec := httptest.NewRecorder()
	srv.handleAuthPassword(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Code != "recent_login_required" {
		t.Errorf("expected recent_login_required code, got %q", resp.Code)
	}
}

func TestHandleAuthEmail_Success(t *testing.T) {
	srv := newTestServerWithStorage(t)
	id, _ := registerTestUser(t, srv, "alice@example.com", "secretpass", "Alice")

	body := jsonBody(t, map[string]string{
		"email":    "alice2@example.com",
		"password": "secretpass",
	})
	req := httptest.NewRequest(http.MethodPut, "/api/auth/email", body)
	req = withUser(req, &common.UserContext{UserID: id, IssuedAt: timeAgo(t, "1m")})
	rec := httptest.NewRecorder()
	srv.handleAuthEmail(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	ident, _ := srv.app.Storage.IdentityStore().Get(req.Context(), id)
	if ident.Email != "alice2@example.com" {
		t.Errorf("expected updated email, got %q", ident.Email)
	}
	if ident.EmailVerified {
		t.Error("changed email must start unverified")
	}
}

func TestHandleAuthEmail_Anonymous(t *testing.T) {
	srv := newTestServerWithStorage(t)

	body := jsonBody(t, map[string]string{"email": "x@example.com", "password": "p"})
	req := httptest.NewRequest(http.MethodPut, "/api/auth/email", body)
	rec := httptest.NewRecorder()
	srv.handleAuthEmail(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
