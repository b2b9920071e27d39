// Package health serves /healthz for the hunt's infrastructure: the session
// store, the optional Redis lock and the Solana RPC node.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Checker verifies that an infrastructure dependency is reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Check(ctx context.Context) error { return f(ctx) }

type Handler struct {
	checks   map[string]Checker
	optional map[string]Checker
	logger   *slog.Logger
}

// NewHandler reports 503 when any of checks fails.
func NewHandler(logger *slog.Logger, checks map[string]Checker) *Handler {
	return &Handler{checks: checks, optional: map[string]Checker{}, logger: logger}
}

// Optional adds a check whose failure marks the service degraded but keeps
// it serving. Rewards are best effort, so the RPC node is one of these.
func (h *Handler) Optional(name string, c Checker) *Handler {
	h.optional[name] = c
	return h
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.check)
	return r
}

type result struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Optional   bool   `json:"optional,omitempty"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]result, len(h.checks)+len(h.optional))
		status  = http.StatusOK
	)

	// A failed check is reported, never returned, so one failure does not
	// hide the others.
	run := func(name string, c Checker, optional bool) func() error {
		return func() error {
			start := time.Now()
			err := c.Check(ctx)
			res := result{Status: "ok", DurationMS: time.Since(start).Milliseconds(), Optional: optional}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				h.logger.Error("health check failed", "name", name, "optional", optional, "error", err)
				res.Status = "error"
				if !optional {
					status = http.StatusServiceUnavailable
				}
			}
			results[name] = res
			return nil
		}
	}

	for name, c := range h.checks {
		g.Go(run(name, c, false))
	}
	for name, c := range h.optional {
		g.Go(run(name, c, true))
	}
	g.Wait()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(results)
}
