package server

import (
	"errors"
	"io"
	"net/http"
)

type StartSessionRequest struct {
	// Wallet is an optional reward destination. The configured receiver
	// wallet is used when empty.
	Wallet string `json:"wallet,omitempty"`
}

type StartSessionResponse struct {
	Token   string        `json:"token"`
	Message string        `json:"message"`
	State   StateResponse `json:"state"`
}

func handleStartSession(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if err := readJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, out, err := d.engine.Start(r.Context(), req.Wallet)
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}

		writeJSON(w, http.StatusCreated, StartSessionResponse{
			Token:   sess.ID,
			Message: out.Message,
			State:   d.state(sess),
		})
	}
}
