package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

type LocationInfo struct {
	Number   int     `json:"number"`
	Name     string  `json:"name"`
	MapsLink string  `json:"mapsLink"`
	AudioURL string  `json:"audioUrl,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

type PuzzleInfo struct {
	Question  string `json:"question"`
	HintsLeft int    `json:"hintsLeft"`
	// AttemptsLeft is -1 when attempts are unlimited.
	AttemptsLeft int `json:"attemptsLeft"`
}

type CertificateInfo struct {
	ID         string `json:"id"`
	FinishTime string `json:"finishTime"`
	Token      string `json:"token"`
}

type StateResponse struct {
	SessionID          string             `json:"sessionId"`
	Stage              hunt.Stage         `json:"stage"`
	LocationIndex      int                `json:"locationIndex"`
	TotalLocations     int                `json:"totalLocations"`
	Location           *LocationInfo      `json:"location"`
	Puzzle             *PuzzleInfo        `json:"puzzle"`
	TokensEarned       int                `json:"tokensEarned"`
	CompletedLocations []int              `json:"completedLocations"`
	Progress           string             `json:"progress"`
	Elapsed            string             `json:"elapsed"`
	Wallet             string             `json:"wallet"`
	Transactions       []hunt.Transaction `json:"transactions"`
	Certificate        *CertificateInfo   `json:"certificate"`
	StartedAt          time.Time          `json:"startedAt"`
	FinishedAt         *time.Time         `json:"finishedAt,omitempty"`
}

func audioURL(name string) string {
	if name == "" {
		return ""
	}
	return "/audio/" + url.PathEscape(name)
}

func newLocationInfo(i int, loc hunt.Location) *LocationInfo {
	return &LocationInfo{
		Number:   i + 1,
		Name:     loc.Name,
		MapsLink: loc.MapsLink,
		AudioURL: audioURL(loc.Audio),
		Lat:      loc.Lat,
		Lon:      loc.Lon,
	}
}

func newStateResponse(sess hunt.Session, catalog *hunt.Catalog, rules hunt.Rules, now time.Time) StateResponse {
	resp := StateResponse{
		SessionID:          sess.ID,
		Stage:              sess.Stage,
		LocationIndex:      sess.LocationIndex,
		TotalLocations:     catalog.Len(),
		TokensEarned:       sess.TokensEarned,
		CompletedLocations: sess.CompletedLocations,
		Progress:           sess.Progress(catalog),
		Elapsed:            hunt.FormatDuration(sess.Elapsed(now)),
		Wallet:             sess.Wallet,
		Transactions:       sess.Transactions,
		StartedAt:          sess.StartedAt,
		FinishedAt:         sess.FinishedAt,
	}
	if resp.CompletedLocations == nil {
		resp.CompletedLocations = []int{}
	}
	if resp.Transactions == nil {
		resp.Transactions = []hunt.Transaction{}
	}

	if loc, ok := catalog.At(sess.LocationIndex); ok {
		resp.Location = newLocationInfo(sess.LocationIndex, loc)
		if sess.Stage == hunt.StageAwaitingPuzzle {
			attempts := -1
			if rules.MaxAttempts > 0 {
				attempts = rules.MaxAttempts - sess.Attempts
			}
			resp.Puzzle = &PuzzleInfo{
				Question:     loc.Puzzle.Question,
				HintsLeft:    max(len(loc.Puzzle.Hints)-sess.HintsUsed, 0),
				AttemptsLeft: attempts,
			}
		}
	}

	if c := sess.Certificate; c != nil {
		resp.Certificate = &CertificateInfo{ID: c.ID, FinishTime: c.FinishTime, Token: c.Token}
	}
	return resp
}

func handleGameState(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := d.engine.State(r.Context(), sessionID(r))
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, d.state(sess))
	}
}
