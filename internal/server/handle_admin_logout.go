package server

import (
	"net/http"
)

// handleAdminLogout revokes the session token and clears the cookie.
func handleAdminLogout(d *deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if admin, err := d.adminFromRequest(r); err == nil {
			if err := d.revoked.Revoke(r.Context(), admin.ID, admin.ExpiresAt); err != nil {
				d.logger.Error("revoking admin session", "admin", admin.Email, "error", err)
				writeError(w, http.StatusInternalServerError, "could not end session")
				return
			}
			d.logger.Info("admin logged out", "admin", admin.Email)
		}
		setAdminCookie(w, "", -1)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
