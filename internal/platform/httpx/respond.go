// Package httpx provides the JSON envelope used by every endpoint.
package httpx

import (
	"encoding/json"
	"net/http"
)

// DataEnvelope wraps successful payloads.
type DataEnvelope struct {
	Data any `json:"data"`
}

// ErrorEnvelope wraps failures.
type ErrorEnvelope struct {
	Error string `json:"error"`
}

// SuccessEnvelope acknowledges operations without a payload.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Data sends {"data": v}.
func Data(w http.ResponseWriter, status int, v any) {
	JSON(w, status, DataEnvelope{Data: v})
}

// Success sends {"success": true}.
func Success(w http.ResponseWriter) {
	JSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

// Error sends {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorEnvelope{Error: message})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(target)
}
