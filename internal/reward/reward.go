// Package reward sends hunt rewards as token transfers.
package reward

import (
	"context"
	"errors"
)

var (
	// ErrDisabled is returned by issuers that only keep the ledger.
	ErrDisabled = errors.New("reward issuance disabled")
	// ErrInvalidDestination marks destinations that can never receive a
	// transfer. It is never retried.
	ErrInvalidDestination = errors.New("invalid reward destination")
)

// Issuer transfers amount whole tokens to destination and returns the
// transaction id.
type Issuer interface {
	IssueReward(ctx context.Context, amount int, destination string) (string, error)
}

// DestinationValidator is implemented by issuers that can check a
// destination up front.
type DestinationValidator interface {
	ValidateDestination(destination string) error
}

// Disabled is the Issuer used when rewards are ledger-only.
type Disabled struct{}

func (Disabled) IssueReward(context.Context, int, string) (string, error) {
	return "", ErrDisabled
}

// IssuerFunc adapts a function to Issuer.
type IssuerFunc func(ctx context.Context, amount int, destination string) (string, error)

func (f IssuerFunc) IssueReward(ctx context.Context, amount int, destination string) (string, error) {
	return f(ctx, amount, destination)
}
