package hunt

import (
	"time"

	"github.com/google/uuid"
)

// credit adds amount to the balance and appends a reward entry. Positive
// amounts start pending and their id is returned for issuance.
func (s *Session) credit(amount int, reason string, now time.Time) string {
	if amount <= 0 {
		s.record(TxReward, 0, reason, now)
		return ""
	}
	s.TokensEarned += amount
	tx := Transaction{
		ID:          uuid.NewString(),
		Kind:        TxReward,
		Amount:      amount,
		Reason:      reason,
		Destination: s.Wallet,
		Status:      TxPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.Transactions = append(s.Transactions, tx)
	return tx.ID
}

// record appends an entry that never leaves the ledger.
func (s *Session) record(kind TxKind, amount int, reason string, now time.Time) {
	s.Transactions = append(s.Transactions, Transaction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Amount:    amount,
		Reason:    reason,
		Status:    TxRecorded,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Claim hands an unsent reward entry to one transfer attempt. signature and
// blockhash identify the signed transfer when the issuer knows them before
// sending. It reports false when the entry is settled or owned by another
// attempt.
func (s *Session) Claim(id, signature, blockhash string, now time.Time) bool {
	tx := s.Transaction(id)
	if tx == nil || tx.Kind != TxReward || tx.TxID != "" {
		return false
	}
	if tx.Status != TxPending && tx.Status != TxFailed {
		return false
	}
	tx.Status = TxSending
	tx.TxID = signature
	tx.Blockhash = blockhash
	tx.UpdatedAt = now
	return true
}

// Settle stores the outcome of a transfer attempt. Confirmed and recorded
// entries are final and left untouched.
func (s *Session) Settle(id, txID string, err error, now time.Time) {
	tx := s.Transaction(id)
	if tx == nil || tx.Status == TxConfirmed || tx.Status == TxRecorded {
		return
	}
	tx.Attempts++
	tx.UpdatedAt = now
	if err != nil {
		tx.Status = TxFailed
		tx.Error = err.Error()
		return
	}
	tx.Status = TxConfirmed
	tx.TxID = txID
	tx.Error = ""
}

// Unconfirmed records a send whose outcome is unknown. The entry stays
// sending and keeps its signature for a later lookup.
func (s *Session) Unconfirmed(id string, err error, now time.Time) {
	tx := s.Transaction(id)
	if tx == nil || tx.Status != TxSending {
		return
	}
	tx.Attempts++
	tx.Error = err.Error()
	tx.UpdatedAt = now
}

// Dropped releases a signature that can no longer land so the entry can be
// sent again.
func (s *Session) Dropped(id string, now time.Time) {
	tx := s.Transaction(id)
	if tx == nil || tx.Status == TxConfirmed || tx.Status == TxRecorded {
		return
	}
	tx.Status = TxFailed
	tx.TxID = ""
	tx.Blockhash = ""
	tx.UpdatedAt = now
}

// MarkRecorded settles a reward entry without a transfer, used while
// issuance is disabled.
func (s *Session) MarkRecorded(id string, now time.Time) {
	if tx := s.Transaction(id); tx != nil && tx.Status != TxConfirmed {
		tx.Status = TxRecorded
		tx.UpdatedAt = now
	}
}
