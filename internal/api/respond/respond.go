// Package respond writes the JSON envelopes shared by every API endpoint.
package respond

import (
	"encoding/json"
	"net/http"
	"time"
)

// Envelope is the success payload wrapper.
type Envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEnvelope is the failure payload wrapper. Errors carries field-keyed
// validation messages when present.
type ErrorEnvelope struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	ErrorCode string              `json:"error_code"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// JSON writes a success envelope with the given status code.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

// Error writes a failure envelope with the given status and error code.
func Error(w http.ResponseWriter, status int, code, message string) {
	ErrorWithFields(w, status, code, message, nil)
}

// ErrorWithFields writes a failure envelope carrying field-keyed messages.
func ErrorWithFields(w http.ResponseWriter, status int, code, message string, fields map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Errors:    fields,
		Timestamp: time.Now().UTC(),
	})
}
