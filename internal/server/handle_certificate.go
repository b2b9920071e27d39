package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/traveltrackie/superteam-ireland/internal/certificate"
)

// VerifyCertificateResponse describes a valid certificate.
type VerifyCertificateResponse struct {
	Valid      bool      `json:"valid"`
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Hunt       string    `json:"hunt"`
	Tokens     int       `json:"tokens"`
	Locations  int       `json:"locations"`
	HintsUsed  int       `json:"hintsUsed"`
	FinishTime string    `json:"finishTime"`
	IssuedAt   time.Time `json:"issuedAt"`
}

func handleCertificatePDF(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := d.engine.State(r.Context(), sessionID(r))
		if err != nil {
			writeEngineError(w, d.logger, err)
			return
		}
		if sess.Certificate == nil {
			writeError(w, http.StatusConflict, "upload a selfie to finish the hunt first")
			return
		}

		claims, err := d.certs.Verify(sess.Certificate.Token)
		if err != nil {
			d.logger.Error("stored certificate does not verify", "session", sess.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var buf bytes.Buffer
		if err := certificate.Render(&buf, claims); err != nil {
			d.logger.Error("rendering certificate", "session", sess.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="certificate-%s.pdf"`, claims.ID))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

func handleVerifyCertificate(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusBadRequest, "token query parameter required")
			return
		}

		claims, err := d.certs.Verify(token)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid certificate")
			return
		}

		resp := VerifyCertificateResponse{
			Valid:      true,
			ID:         claims.ID,
			SessionID:  claims.Subject,
			Hunt:       claims.Hunt,
			Tokens:     claims.Tokens,
			Locations:  claims.Locations,
			HintsUsed:  claims.HintsUsed,
			FinishTime: claims.FinishTime,
		}
		if claims.IssuedAt != nil {
			resp.IssuedAt = claims.IssuedAt.Time
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
