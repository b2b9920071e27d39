package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/traveltrackie/superteam-ireland/internal/engine"
	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps engine and domain errors onto player responses.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusUnauthorized, "invalid session token")
	case errors.Is(err, engine.ErrExpired):
		writeError(w, http.StatusGone, "session expired, start a new hunt")
	case errors.Is(err, hunt.ErrUnexpectedEvent):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, engine.ErrEmptyAnswer):
		writeError(w, http.StatusBadRequest, "answer is required")
	case errors.Is(err, engine.ErrInvalidWallet):
		writeError(w, http.StatusBadRequest, "invalid wallet address")
	case errors.Is(err, store.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, "selfie must be a JPEG, PNG, GIF or WebP image up to 10MB")
	default:
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
