package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/store"
)

// AdminSessionSummary is returned in the list endpoint.
type AdminSessionSummary struct {
	ID                 string     `json:"id"`
	Stage              hunt.Stage `json:"stage"`
	LocationIndex      int        `json:"locationIndex"`
	CompletedLocations int        `json:"completedLocations"`
	TokensEarned       int        `json:"tokensEarned"`
	UnsettledRewards   int        `json:"unsettledRewards"`
	Wallet             string     `json:"wallet"`
	StartedAt          time.Time  `json:"startedAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// AdminSessionDetail is the full session with its ledger.
type AdminSessionDetail struct {
	Session  hunt.Session `json:"session"`
	Progress string       `json:"progress"`
	Elapsed  string       `json:"elapsed"`
}

func newAdminSessionSummary(s hunt.Session) AdminSessionSummary {
	return AdminSessionSummary{
		ID:                 s.ID,
		Stage:              s.Stage,
		LocationIndex:      s.LocationIndex,
		CompletedLocations: len(s.CompletedLocations),
		TokensEarned:       s.TokensEarned,
		UnsettledRewards:   len(s.Unsettled()),
		Wallet:             s.Wallet,
		StartedAt:          s.StartedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func (d *deps) adminDetail(s hunt.Session) AdminSessionDetail {
	return AdminSessionDetail{
		Session:  s,
		Progress: s.Progress(d.engine.Catalog()),
		Elapsed:  hunt.FormatDuration(s.Elapsed(d.now())),
	}
}

func handleAdminListSessions(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := d.engine.Sessions(r.Context())
		if err != nil {
			d.logger.Error("listing sessions", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		stage := hunt.Stage(r.URL.Query().Get("stage"))
		out := make([]AdminSessionSummary, 0, len(sessions))
		for _, s := range sessions {
			if stage != "" && s.Stage != stage {
				continue
			}
			out = append(out, newAdminSessionSummary(s))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleAdminGetSession(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := d.engine.Session(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			d.logger.Error("loading session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, d.adminDetail(sess))
	}
}

func handleAdminRetryRewards(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sess, err := d.engine.RetryRewards(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			d.logger.Error("retrying rewards", "session", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		d.logger.Info("rewards retried", "session", id, "admin", adminFrom(r), "unsettled", len(sess.Unsettled()))
		d.broker.Publish(sess.ID, d.state(sess))
		writeJSON(w, http.StatusOK, d.adminDetail(sess))
	}
}
