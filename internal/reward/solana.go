package reward

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaConfig configures SPL token rewards.
type SolanaConfig struct {
	RPCURL    string
	SenderKey string
	Mint      string
	Decimals  uint8
}

// SolanaIssuer pays rewards as SPL transfer_checked instructions from the
// sender's associated token account, creating the recipient's account when
// it does not exist yet.
type SolanaIssuer struct {
	client   *rpc.Client
	sender   solana.PrivateKey
	mint     solana.PublicKey
	decimals uint8
	logger   *slog.Logger
}

func NewSolanaIssuer(cfg SolanaConfig, logger *slog.Logger) (*SolanaIssuer, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("solana rpc url is required")
	}
	sender, err := ParsePrivateKey(cfg.SenderKey)
	if err != nil {
		return nil, fmt.Errorf("parsing sender key: %w", err)
	}
	mint, err := solana.PublicKeyFromBase58(cfg.Mint)
	if err != nil {
		return nil, fmt.Errorf("parsing mint address: %w", err)
	}
	return &SolanaIssuer{
		client:   rpc.New(cfg.RPCURL),
		sender:   sender,
		mint:     mint,
		decimals: cfg.Decimals,
		logger:   logger,
	}, nil
}

// ParsePrivateKey accepts a 64-byte keypair as a JSON array, the format
// written by solana-keygen, or as a base58 string.
func ParsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty private key")
	}
	if strings.HasPrefix(s, "[") {
		var raw []int
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, fmt.Errorf("decoding key bytes: %w", err)
		}
		if len(raw) != 64 {
			return nil, fmt.Errorf("key has %d bytes, want 64", len(raw))
		}
		key := make(solana.PrivateKey, len(raw))
		for i, b := range raw {
			if b < 0 || b > 255 {
				return nil, fmt.Errorf("key byte %d out of range: %d", i, b)
			}
			key[i] = byte(b)
		}
		return key, nil
	}
	return solana.PrivateKeyFromBase58(s)
}

func (s *SolanaIssuer) ValidateDestination(destination string) error {
	if _, err := solana.PublicKeyFromBase58(destination); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	return nil
}

// Sender is the public key paying for rewards.
func (s *SolanaIssuer) Sender() solana.PublicKey {
	return s.sender.PublicKey()
}

// IssueReward prepares and submits a transfer in one call.
func (s *SolanaIssuer) IssueReward(ctx context.Context, amount int, destination string) (string, error) {
	t, err := s.Prepare(ctx, amount, destination)
	if err != nil {
		return "", err
	}
	if err := s.Submit(ctx, t); err != nil {
		return "", err
	}
	return t.Signature, nil
}

// Prepare builds and signs a transfer_checked of amount whole tokens to the
// destination wallet's associated token account.
func (s *SolanaIssuer) Prepare(ctx context.Context, amount int, destination string) (*Transfer, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}
	owner, err := solana.PublicKeyFromBase58(destination)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}

	payer := s.sender.PublicKey()
	source, _, err := solana.FindAssociatedTokenAddress(payer, s.mint)
	if err != nil {
		return nil, fmt.Errorf("deriving source account: %w", err)
	}
	dest, _, err := solana.FindAssociatedTokenAddress(owner, s.mint)
	if err != nil {
		return nil, fmt.Errorf("deriving destination account: %w", err)
	}

	var instructions []solana.Instruction
	_, err = s.client.GetAccountInfo(ctx, dest)
	switch {
	case errors.Is(err, rpc.ErrNotFound):
		s.logger.Info("creating recipient token account", "owner", owner.String(), "account", dest.String())
		instructions = append(instructions,
			associatedtokenaccount.NewCreateInstruction(payer, owner, s.mint).Build(),
		)
	case err != nil:
		return nil, fmt.Errorf("looking up destination account: %w", err)
	}

	instructions = append(instructions, token.NewTransferCheckedInstruction(
		toBaseUnits(amount, s.decimals),
		s.decimals,
		source,
		s.mint,
		dest,
		payer,
		[]solana.PublicKey{},
	).Build())

	recent, err := s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("fetching blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, recent.Value.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("building transaction: %w", err)
	}
	sigs, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &s.sender
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	if len(sigs) == 0 {
		return nil, errors.New("signing transaction: no signature produced")
	}

	return &Transfer{
		Signature:   sigs[0].String(),
		Blockhash:   recent.Value.Blockhash.String(),
		Amount:      amount,
		Destination: destination,
		signed:      tx,
	}, nil
}

// Submit sends a prepared transfer. A failed send may still have reached a
// leader, so every error wraps ErrSubmitted.
func (s *SolanaIssuer) Submit(ctx context.Context, t *Transfer) error {
	if t == nil || t.signed == nil {
		return errors.New("transfer was not prepared by this issuer")
	}
	sig, err := s.client.SendTransaction(ctx, t.signed)
	if err != nil {
		return fmt.Errorf("sending transaction: %w: %w", ErrSubmitted, err)
	}
	if got := sig.String(); got != t.Signature {
		s.logger.Warn("rpc returned a different signature", "want", t.Signature, "got", got)
	}
	s.logger.Info("reward sent", "amount", t.Amount, "destination", t.Destination, "tx", t.Signature)
	return nil
}

// Lookup checks a submitted signature. A signature the cluster has not seen
// is only reported dropped once its blockhash has expired, and the status
// is read again after the expiry check so a late landing is not missed.
func (s *SolanaIssuer) Lookup(ctx context.Context, signature, blockhash string) (TransferState, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return TransferInFlight, fmt.Errorf("parsing signature: %w", err)
	}

	state, seen, err := s.signatureState(ctx, sig)
	if err != nil || seen {
		return state, err
	}

	hash, err := solana.HashFromBase58(blockhash)
	if err != nil {
		return TransferInFlight, fmt.Errorf("parsing blockhash: %w", err)
	}
	valid, err := s.client.IsBlockhashValid(ctx, hash, rpc.CommitmentProcessed)
	if err != nil {
		return TransferInFlight, fmt.Errorf("checking blockhash: %w", err)
	}
	if valid.Value {
		return TransferInFlight, nil
	}

	state, seen, err = s.signatureState(ctx, sig)
	if err != nil || seen {
		return state, err
	}
	return TransferDropped, nil
}

// signatureState reports the status of sig and whether the cluster knows it.
func (s *SolanaIssuer) signatureState(ctx context.Context, sig solana.Signature) (TransferState, bool, error) {
	out, err := s.client.GetSignatureStatuses(ctx, true, sig)
	switch {
	case errors.Is(err, rpc.ErrNotFound):
		return TransferInFlight, false, nil
	case err != nil:
		return TransferInFlight, false, fmt.Errorf("fetching signature status: %w", err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return TransferInFlight, false, nil
	}

	st := out.Value[0]
	if st.Err != nil {
		return TransferDropped, true, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return TransferLanded, true, nil
	}
	return TransferInFlight, true, nil
}

// Check reports whether the RPC node is reachable, for the health endpoint.
func (s *SolanaIssuer) Check(ctx context.Context) error {
	_, err := s.client.GetHealth(ctx)
	return err
}

func toBaseUnits(amount int, decimals uint8) uint64 {
	units := uint64(amount)
	for i := uint8(0); i < decimals; i++ {
		units *= 10
	}
	return units
}
