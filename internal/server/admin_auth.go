package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/traveltrackie/superteam-ireland/internal/certificate"
)

var errNoAdminSession = errors.New("no valid admin session")

const (
	adminCookieName = "admin_session"
	adminSessionTTL = 12 * time.Hour
)

// AdminCredentials is the single operator account. PasswordHash is a bcrypt
// hash.
type AdminCredentials struct {
	Email        string
	PasswordHash string
}

func (c AdminCredentials) Enabled() bool {
	return c.Email != "" && c.PasswordHash != ""
}

// Verify checks an email and password against the account.
func (c AdminCredentials) Verify(email, password string) bool {
	if !c.Enabled() || !strings.EqualFold(strings.TrimSpace(email), c.Email) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

// adminFromRequest reads the admin_session cookie and rejects tokens that
// were logged out.
func (d *deps) adminFromRequest(r *http.Request) (certificate.AdminSession, error) {
	cookie, err := r.Cookie(adminCookieName)
	if err != nil || cookie.Value == "" {
		return certificate.AdminSession{}, errNoAdminSession
	}
	admin, err := d.certs.VerifyAdmin(cookie.Value)
	if err != nil {
		return certificate.AdminSession{}, errNoAdminSession
	}
	revoked, err := d.revoked.Revoked(r.Context(), admin.ID)
	if err != nil {
		d.logger.Error("checking admin session", "error", err)
		return certificate.AdminSession{}, errNoAdminSession
	}
	if revoked {
		return certificate.AdminSession{}, errNoAdminSession
	}
	return admin, nil
}

func setAdminCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
