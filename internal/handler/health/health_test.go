package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/traveltrackie/superteam-ireland/internal/handler/health"
)

type mockChecker struct{ err error }

func (m mockChecker) Check(_ context.Context) error { return m.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]health.Checker
		optional   map[string]health.Checker
		wantStatus int
		wantBody   map[string]string
	}{
		{
			name: "all healthy",
			checks: map[string]health.Checker{
				"store": mockChecker{},
				"redis": mockChecker{},
			},
			optional:   map[string]health.Checker{"solana": mockChecker{}},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"store": "ok", "redis": "ok", "solana": "ok"},
		},
		{
			name: "store down",
			checks: map[string]health.Checker{
				"store": mockChecker{err: errors.New("locked")},
				"redis": mockChecker{},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"store": "error", "redis": "ok"},
		},
		{
			name: "redis down",
			checks: map[string]health.Checker{
				"store": mockChecker{},
				"redis": mockChecker{err: errors.New("refused")},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"store": "ok", "redis": "error"},
		},
		{
			name:       "rpc down is degraded",
			checks:     map[string]health.Checker{"store": mockChecker{}},
			optional:   map[string]health.Checker{"solana": mockChecker{err: errors.New("timeout")}},
			wantStatus: http.StatusOK,
			wantBody:   map[string]string{"store": "ok", "solana": "error"},
		},
		{
			name: "func checker",
			checks: map[string]health.Checker{
				"store": health.CheckerFunc(func(context.Context) error { return errors.New("gone") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   map[string]string{"store": "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.NewHandler(slog.Default(), tt.checks)
			for name, c := range tt.optional {
				h.Optional(name, c)
			}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body map[string]struct {
				Status   string
				Optional bool
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decoding response: %v", err)
			}

			if len(body) != len(tt.wantBody) {
				t.Errorf("got %d checks, want %d", len(body), len(tt.wantBody))
			}
			for name, want := range tt.wantBody {
				if got := body[name].Status; got != want {
					t.Errorf("%s status = %q, want %q", name, got, want)
				}
			}
			if _, ok := tt.optional["solana"]; ok && !body["solana"].Optional {
				t.Error("solana should be reported as optional")
			}
		})
	}
}

// barrierChecker returns only once every check in the group has started.
type barrierChecker struct {
	arrived chan struct{}
	all     int
	err     error
}

func (b barrierChecker) Check(ctx context.Context) error {
	b.arrived <- struct{}{}
	for len(b.arrived) < b.all {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
	return b.err
}

func TestHandlerRunsChecksConcurrently(t *testing.T) {
	arrived := make(chan struct{}, 3)
	h := health.NewHandler(slog.Default(), map[string]health.Checker{
		"store": barrierChecker{arrived: arrived, all: 3, err: errors.New("locked")},
		"redis": barrierChecker{arrived: arrived, all: 3},
	})
	h.Optional("solana", barrierChecker{arrived: arrived, all: 3})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var body map[string]struct{ Status string }
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	want := map[string]string{"store": "error", "redis": "ok", "solana": "ok"}
	for name, status := range want {
		if got := body[name].Status; got != status {
			t.Errorf("%s status = %q, want %q", name, got, status)
		}
	}
}
