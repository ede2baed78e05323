package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the standard API response wrapper shared by the dev stub and
// the client decoder.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody carries the human-readable failure message the UI displays.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// JSON writes a success response wrapping data.
func JSON(w http.ResponseWriter, status int, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("respond.encode_failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	write(w, status, Envelope{Success: true, Data: raw})
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	write(w, status, Envelope{Error: &ErrorBody{Message: message, Code: http.StatusText(status)}})
}

func write(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond.write_failed", "error", err)
	}
}
