package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, d *deps, audioDir, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Superteam Ireland Hunt API", "/openapi.json", "/docs"))

	// Public routes.
	r.Post("/api/sessions", handleStartSession(d))
	r.Get("/api/catalog", handleCatalog(d))
	r.Get("/api/certificates/verify", handleVerifyCertificate(d))
	r.Get("/audio/{name}", handleAudio(audioDir))

	// Player routes, authenticated by session token.
	r.Route("/api/game", func(r chi.Router) {
		r.Use(playerMiddleware(d))
		r.Get("/state", handleGameState(d))
		r.Post("/arrive", handleArrive(d))
		r.Post("/answer", handleAnswer(d))
		r.Post("/hint", handleHint(d))
		r.Post("/selfie", handleSelfie(d))
		r.Get("/help", handleHelp(d))
		r.Get("/certificate", handleCertificatePDF(d))
		r.Get("/events", handleEvents(d))
		r.Get("/ws", handleGameWS(d))
	})

	if d.admin.Enabled() {
		r.Post("/api/admin/login", handleAdminLogin(d))
		r.Post("/api/admin/logout", handleAdminLogout(d))
		r.Get("/api/admin/me", handleAdminMe(d))

		r.Route("/api/admin/sessions", func(r chi.Router) {
			r.Use(adminAuthMiddleware(d))
			r.Get("/", handleAdminListSessions(d))
			r.Get("/{id}", handleAdminGetSession(d))
			r.Post("/{id}/rewards/retry", handleAdminRetryRewards(d))
		})
	} else {
		logger.Info("admin routes disabled, no credentials configured")
	}

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
