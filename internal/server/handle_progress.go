package server

import (
	"net/http"
)

type HelpResponse struct {
	Message string `json:"message"`
}

func handleArrive(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.engine.Arrive(r.Context(), sessionID(r))
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		d.respond(w, out)
	}
}

func handleHint(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := d.engine.Hint(r.Context(), sessionID(r))
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		d.respond(w, out)
	}
}

func handleHelp(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := d.engine.Help(r.Context(), sessionID(r))
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, HelpResponse{Message: msg})
	}
}
