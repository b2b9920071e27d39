package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/traveltrackie/superteam-ireland/internal/certificate"
	"github.com/traveltrackie/superteam-ireland/internal/engine"
	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/store"
)

// Config holds what the HTTP layer needs besides the listen address.
type Config struct {
	Engine *engine.Engine
	Certs  *certificate.Issuer
	Admin  AdminCredentials
	// Revocations holds logged out admin sessions. Defaults to in-memory.
	Revocations store.Revocations
	AudioDir    string
	SPADir      string
}

type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// New builds the router. mount registers extra routes such as health checks.
func New(addr string, logger *slog.Logger, cfg Config, mount func(chi.Router)) *Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(newStructuredLogger(logger))
	r.Use(middleware.Recoverer)

	if mount != nil {
		mount(r)
	}
	addRoutes(r, logger, newDeps(cfg, logger), cfg.AudioDir, cfg.SPADir)

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Run(_ context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}

	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// deps is shared by the handlers.
type deps struct {
	engine  *engine.Engine
	certs   *certificate.Issuer
	admin   AdminCredentials
	revoked store.Revocations
	broker  *Broker
	logger  *slog.Logger
	now     func() time.Time
}

func newDeps(cfg Config, logger *slog.Logger) *deps {
	revoked := cfg.Revocations
	if revoked == nil {
		revoked = store.NewMemoryRevocations()
	}
	return &deps{
		engine:  cfg.Engine,
		certs:   cfg.Certs,
		admin:   cfg.Admin,
		revoked: revoked,
		broker:  NewBroker(),
		logger:  logger,
		now:     time.Now,
	}
}

func (d *deps) state(sess hunt.Session) StateResponse {
	return newStateResponse(sess, d.engine.Catalog(), d.engine.Rules(), d.now())
}

func newStructuredLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
