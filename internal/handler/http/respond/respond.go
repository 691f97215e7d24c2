// Package respond provides helpers for sending JSON HTTP responses.
// Error responses are sanitized so internal details never reach clients.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// JSON writes a JSON response with the given status code and body.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are already written; all we can do is log.
			slog.Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes a JSON error response with the given status code.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// safeSubstrings mark error messages that are produced by validation and are
// safe to show to clients verbatim.
var safeSubstrings = []string{
	"required",
	"invalid",
	"not found",
	"must be",
	"cannot be",
	"too long",
	"empty",
	"unknown role",
}

// SafeError returns validation errors to the client as-is and masks
// everything else as a generic internal error, logging the original.
// Status codes of 500 and above are always masked.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	safe := false
	if code < http.StatusInternalServerError {
		lower := strings.ToLower(msg)
		for _, s := range safeSubstrings {
			if strings.Contains(lower, s) {
				safe = true
				break
			}
		}
	}

	if safe {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Error("internal server error",
		slog.Int("code", code),
		slog.Any("error", err))
	JSON(w, code, map[string]string{"error": "internal server error"})
}
