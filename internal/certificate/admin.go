package certificate

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const adminAudience = "admin"

// AdminSession is a verified operator session token. ID identifies the
// token so a logout can revoke it before it expires.
type AdminSession struct {
	Email     string
	ID        string
	ExpiresAt time.Time
}

// SignAdmin returns a session token for the operator console.
func (i *Issuer) SignAdmin(email string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    issuer,
		Subject:   email,
		Audience:  jwt.ClaimStrings{adminAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// VerifyAdmin checks an operator session token.
func (i *Issuer) VerifyAdmin(token string) (AdminSession, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(adminAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return AdminSession{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.ID == "" {
		return AdminSession{}, fmt.Errorf("%w: admin token has no id", ErrInvalid)
	}
	return AdminSession{
		Email:     claims.Subject,
		ID:        claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
