package server

import (
	"net/http"
	"strings"

	"github.com/traveltrackie/superteam-ireland/internal/engine"
)

type AnswerRequest struct {
	Answer string `json:"answer"`
}

// EventResponse is returned by every player action.
type EventResponse struct {
	Message        string        `json:"message"`
	Warning        string        `json:"warning,omitempty"`
	Hint           string        `json:"hint,omitempty"`
	HintsLeft      int           `json:"hintsLeft"`
	Correct        bool          `json:"correct"`
	RevealedAnswer string        `json:"revealedAnswer,omitempty"`
	State          StateResponse `json:"state"`
}

// respond publishes the new state to live subscribers and writes it back.
func (d *deps) respond(w http.ResponseWriter, out engine.Outcome) {
	state := d.state(out.Session)
	d.broker.Publish(out.Session.ID, state)

	writeJSON(w, http.StatusOK, EventResponse{
		Message:        out.Message,
		Warning:        out.Warning,
		Hint:           out.Hint,
		HintsLeft:      out.HintsLeft,
		Correct:        out.Correct,
		RevealedAnswer: out.Revealed,
		State:          state,
	})
}

func handleAnswer(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnswerRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Answer = strings.TrimSpace(req.Answer)
		if req.Answer == "" {
			writeError(w, http.StatusBadRequest, "answer is required")
			return
		}

		out, err := d.engine.Answer(r.Context(), sessionID(r), req.Answer)
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		d.respond(w, out)
	}
}
