package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

type CatalogResponse struct {
	Title         string         `json:"title"`
	Locations     []LocationInfo `json:"locations"`
	ArrivalReward int            `json:"arrivalReward"`
	AnswerReward  int            `json:"answerReward"`
	HintPenalty   int            `json:"hintPenalty"`
	MaxAttempts   int            `json:"maxAttempts"`
}

// handleCatalog lists the hunt route without puzzles or answers.
func handleCatalog(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, rules := d.engine.Catalog(), d.engine.Rules()
		resp := CatalogResponse{
			Title:         c.Title,
			Locations:     make([]LocationInfo, 0, c.Len()),
			ArrivalReward: rules.ArrivalReward,
			AnswerReward:  rules.AnswerReward,
			HintPenalty:   rules.HintPenalty,
			MaxAttempts:   rules.MaxAttempts,
		}
		for i, loc := range c.Locations {
			resp.Locations = append(resp.Locations, *newLocationInfo(i, loc))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
}

// handleAudio serves the audio clue files.
func handleAudio(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			writeError(w, http.StatusNotFound, "audio not found")
			return
		}
		ctype, ok := audioTypes[strings.ToLower(filepath.Ext(name))]
		if !ok {
			writeError(w, http.StatusNotFound, "audio not found")
			return
		}

		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			writeError(w, http.StatusNotFound, "audio not found")
			return
		}

		w.Header().Set("Content-Type", ctype)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeFile(w, r, path)
	}
}
