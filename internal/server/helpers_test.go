package server

import (
	"net/http/httptest"
	"testing"
	"time"
)

// timeAgo returns the time d (a duration string) before now.
func timeAgo(t *testing.T, d string) time.Time {
	t.Helper()
	dur, err := time.ParseDuration(d)
	if err != nil {
		t.Fatalf("bad duration %q: %v", d, err)
	}
	return time.Now().Add(-dur)
}

func TestPathParam(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		suffix string
		want   string
	}{
		{"/api/tickets/tk_123", "/api/tickets/", "", "tk_123"},
		{"/api/tickets/tk_123/resolve", "/api/tickets/", "/resolve", "tk_123"},
		{"/api/admin/users/usr_9/plan", "/api/admin/users/", "/plan", "usr_9"},
		{"/api/subscriptions/sub_a1", "/api/subscriptions/", "", "sub_a1"},
		{"/other/path", "/api/tickets/", "", ""},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.path, nil)
		got := PathParam(r, tt.prefix, tt.suffix)
		if got != tt.want {
			t.Errorf("PathParam(%q, %q, %q) = %q, want %q", tt.path, tt.prefix, tt.suffix, got, tt.want)
		}
	}
}

func TestRequireMethod(t *testing.T) {
	r := httptest.NewRequest("POST", "/api/test", nil)
	rec := httptest.NewRecorder()
	if RequireMethod(rec, r, "GET") {
		t.Error("expected POST to fail a GET-only check")
	}
	if rec.Code != 405 {
		t.Errorf("expected 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "GET" {
		t.Errorf("expected Allow header GET, got %q", allow)
	}

	r = httptest.NewRequest("GET", "/api/test", nil)
	rec = httptest.NewRecorder()
	if !RequireMethod(rec, r, "GET", "HEAD") {
		t.Error("expected GET to pass")
	}
}
