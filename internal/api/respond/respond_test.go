package respond

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, "created", map[string]string{"id": "abc"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}

	var env Envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.Success {
		t.Error("expected success=true")
	}
	if env.Message != "created" {
		t.Errorf("expected message %q, got %q", "created", env.Message)
	}
	if env.Timestamp.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorWithFields(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", map[string][]string{
		"patient_id": {"patient_id is required"},
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}

	var env ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if env.ErrorCode != "VALIDATION_ERROR" {
		t.Errorf("unexpected error code %q", env.ErrorCode)
	}
	if msgs := env.Errors["patient_id"]; len(msgs) != 1 {
		t.Errorf("expected one patient_id message, got %v", msgs)
	}
}
