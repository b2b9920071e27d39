package reward

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrSubmitted wraps failures that happen after a transfer was handed to the
// network. The transfer may still land, so it must be looked up by signature
// before anything is sent again.
var ErrSubmitted = errors.New("transfer submitted, outcome unknown")

// Transfer is a signed reward transfer. Its signature is known before it is
// submitted so the ledger can record it first.
type Transfer struct {
	Signature   string
	Blockhash   string
	Amount      int
	Destination string

	signed *solana.Transaction
}

// TransferState is what the network knows about a submitted signature.
type TransferState int

const (
	// TransferInFlight transfers may still land.
	TransferInFlight TransferState = iota
	// TransferLanded transfers reached confirmed commitment.
	TransferLanded
	// TransferDropped transfers failed or expired and can never land.
	TransferDropped
)

func (s TransferState) String() string {
	switch s {
	case TransferLanded:
		return "landed"
	case TransferDropped:
		return "dropped"
	default:
		return "in_flight"
	}
}

// Submitter is an Issuer that splits a transfer into signing and sending so
// a caller can persist the signature in between and look it up after an
// ambiguous send.
type Submitter interface {
	Issuer
	// Prepare builds and signs a transfer. Nothing reaches the network, so
	// failures are safe to retry.
	Prepare(ctx context.Context, amount int, destination string) (*Transfer, error)
	// Submit sends a prepared transfer. Every error wraps ErrSubmitted.
	Submit(ctx context.Context, t *Transfer) error
	// Lookup reports the state of a submitted signature. blockhash is the
	// one the transfer was signed with and decides when it has expired.
	Lookup(ctx context.Context, signature, blockhash string) (TransferState, error)
}
