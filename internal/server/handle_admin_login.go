package server

import (
	"net/http"
	"strings"
	"time"
)

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminMeResponse is the response for GET /api/admin/me.
type AdminMeResponse struct {
	Email string `json:"email"`
}

func handleAdminLogin(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		if !d.admin.Verify(req.Email, req.Password) {
			d.logger.Warn("admin login failed", "email", req.Email)
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		token, err := d.certs.SignAdmin(req.Email, time.Now(), adminSessionTTL)
		if err != nil {
			d.logger.Error("signing admin session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		setAdminCookie(w, token, int(adminSessionTTL/time.Second))
		writeJSON(w, http.StatusOK, AdminMeResponse{Email: req.Email})
	}
}

func handleAdminMe(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		admin, err := d.adminFromRequest(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, AdminMeResponse{Email: admin.Email})
	}
}
