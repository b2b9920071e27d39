// Package certificate issues the signed completion certificate handed out
// when a hunt is finished, and renders it as a PDF.
package certificate

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

const issuer = "superteam-ireland-hunt"

// ErrInvalid is returned for tokens that fail verification.
var ErrInvalid = errors.New("invalid certificate")

// Claims is the payload of a certificate token.
type Claims struct {
	jwt.RegisteredClaims
	Hunt       string `json:"hunt"`
	Tokens     int    `json:"tokens"`
	Locations  int    `json:"locations"`
	HintsUsed  int    `json:"hints"`
	FinishTime string `json:"finish"`
}

// Issuer signs and verifies certificates with an HMAC secret.
type Issuer struct {
	secret []byte
	title  string
}

func NewIssuer(secret, huntTitle string) *Issuer {
	return &Issuer{secret: []byte(secret), title: huntTitle}
}

// Issue creates the certificate for a session finishing at now.
func (i *Issuer) Issue(sess hunt.Session, now time.Time) (hunt.Certificate, error) {
	finish := hunt.FormatDuration(now.Sub(sess.StartedAt))
	id := uuid.NewString()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id,
			Issuer:   issuer,
			Subject:  sess.ID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Hunt:       i.title,
		Tokens:     sess.TokensEarned,
		Locations:  len(sess.CompletedLocations),
		HintsUsed:  sess.TotalHintsUsed,
		FinishTime: finish,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return hunt.Certificate{}, fmt.Errorf("signing certificate: %w", err)
	}

	return hunt.Certificate{
		ID:         id,
		Token:      token,
		FinishTime: finish,
		IssuedAt:   now,
	}, nil
}

// Verify checks a certificate token and returns its claims.
func (i *Issuer) Verify(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	// Operator tokens share the key but always carry an audience.
	if len(claims.Audience) > 0 || claims.Subject == "" {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}
