package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimitExhaustsBurst(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := RateLimit(1, 2)

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/encounters", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		last = httptest.NewRecorder()
		mw(handler).ServeHTTP(last, req)
		if i < 2 && last.Code != http.StatusOK {
			t.Fatalf("request %d within burst should pass, got %d", i+1, last.Code)
		}
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d after burst, got %d", http.StatusTooManyRequests, last.Code)
	}
	var body struct {
		Success   bool   `json:"success"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.NewDecoder(last.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Fatalf("expected success=false")
	}
	if body.ErrorCode != "RATE_LIMITED" {
		t.Fatalf("expected RATE_LIMITED error code, got %q", body.ErrorCode)
	}
}

func TestRateLimitIsPerClient(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	if !rl.Allow("10.0.0.1") {
		t.Fatalf("first request from first client should pass")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatalf("second request from first client should be limited")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatalf("first request from second client should pass")
	}
}
