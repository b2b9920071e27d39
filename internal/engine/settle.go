package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/reward"
)

// settle sends one reward without holding the session lock. Each ledger
// change is saved under its own short lock, so a slow transfer never
// outlives a lock lease and never overwrites progress made meanwhile.
// It returns the session as last saved and a player facing warning.
func (e *Engine) settle(ctx context.Context, id, txID string) (hunt.Session, string, error) {
	// The transfer and its bookkeeping outlive a disconnected client.
	ctx = context.WithoutCancel(ctx)
	ctx, span := e.tracer.Start(ctx, "reward.issue", trace.WithAttributes(
		attribute.String("session", id),
		attribute.String("entry", txID),
	))
	defer span.End()

	if sub, ok := e.issuer.(reward.Submitter); ok {
		return e.settleSigned(ctx, span, sub, id, txID)
	}
	return e.settleOnce(ctx, span, id, txID)
}

// settleOnce claims the entry before sending so concurrent retries cannot
// send it twice.
func (e *Engine) settleOnce(ctx context.Context, span trace.Span, id, txID string) (hunt.Session, string, error) {
	var claimed hunt.Transaction
	sess, err := e.update(ctx, id, func(s *hunt.Session) bool {
		if !s.Claim(txID, "", "", e.now().UTC()) {
			return false
		}
		claimed = *s.Transaction(txID)
		return true
	})
	if err != nil || claimed.ID == "" {
		return sess, "", err
	}

	sig, err := e.issuer.IssueReward(ctx, claimed.Amount, claimed.Destination)
	return e.record(ctx, span, id, claimed, sig, err)
}

// settleSigned stores the signature of a transfer before submitting it. An
// entry that already carries a signature is looked up first and only sent
// again once that transfer can no longer land.
func (e *Engine) settleSigned(ctx context.Context, span trace.Span, sub reward.Submitter, id, txID string) (hunt.Session, string, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return hunt.Session{}, "", err
	}
	tx := sess.Transaction(txID)
	if tx == nil {
		return sess, "", nil
	}

	if tx.TxID != "" {
		state, err := sub.Lookup(ctx, tx.TxID, tx.Blockhash)
		if err != nil {
			e.logger.Warn("reward lookup failed", "session", id, "tx", tx.TxID, "error", err)
			return sess, "", nil
		}
		span.SetAttributes(attribute.String("lookup", state.String()))
		switch state {
		case reward.TransferLanded:
			return e.record(ctx, span, id, *tx, tx.TxID, nil)
		case reward.TransferInFlight:
			return sess, "", nil
		}

		e.logger.Warn("reward transfer dropped, sending again", "session", id, "tx", tx.TxID)
		dropped := tx.TxID
		sess, err = e.update(ctx, id, func(s *hunt.Session) bool {
			cur := s.Transaction(txID)
			if cur == nil || cur.TxID != dropped {
				return false
			}
			s.Dropped(txID, e.now().UTC())
			return true
		})
		if err != nil {
			return sess, "", err
		}
		if tx = sess.Transaction(txID); tx == nil || tx.TxID != "" {
			return sess, "", nil
		}
	}
	if tx.Status != hunt.TxPending && tx.Status != hunt.TxFailed {
		return sess, "", nil
	}

	transfer, err := sub.Prepare(ctx, tx.Amount, tx.Destination)
	if err != nil {
		return e.record(ctx, span, id, *tx, "", err)
	}

	var claimed hunt.Transaction
	sess, err = e.update(ctx, id, func(s *hunt.Session) bool {
		if !s.Claim(txID, transfer.Signature, transfer.Blockhash, e.now().UTC()) {
			return false
		}
		claimed = *s.Transaction(txID)
		return true
	})
	if err != nil || claimed.ID == "" {
		return sess, "", err
	}

	err = sub.Submit(ctx, transfer)
	return e.record(ctx, span, id, claimed, transfer.Signature, err)
}

// record saves the outcome of an attempt on tx. It is skipped when another
// attempt has claimed or settled the entry since tx was read.
func (e *Engine) record(ctx context.Context, span trace.Span, id string, tx hunt.Transaction, sig string, err error) (hunt.Session, string, error) {
	var warning string
	switch {
	case errors.Is(err, reward.ErrDisabled):
	case errors.Is(err, reward.ErrSubmitted):
		span.RecordError(err)
		e.logger.Warn("reward outcome unknown",
			"session", id,
			"amount", tx.Amount,
			"tx", sig,
			"error", err,
		)
		warning = fmt.Sprintf("Your reward of %d tokens was sent but is not confirmed yet. It will be checked again.", tx.Amount)
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Error("reward transfer failed",
			"session", id,
			"amount", tx.Amount,
			"destination", tx.Destination,
			"error", err,
		)
		warning = retryWarning(tx.Amount)
	default:
		e.logger.Info("reward confirmed", "session", id, "amount", tx.Amount, "tx", sig)
	}

	sess, uerr := e.update(ctx, id, func(s *hunt.Session) bool {
		cur := s.Transaction(tx.ID)
		if cur == nil || cur.TxID != tx.TxID || cur.Status != tx.Status {
			return false
		}
		now := e.now().UTC()
		switch {
		case errors.Is(err, reward.ErrDisabled):
			s.MarkRecorded(tx.ID, now)
		case errors.Is(err, reward.ErrSubmitted):
			s.Unconfirmed(tx.ID, err, now)
		case err != nil:
			s.Settle(tx.ID, "", err, now)
		default:
			s.Settle(tx.ID, sig, nil, now)
		}
		return true
	})
	if uerr != nil {
		e.logger.Error("saving reward status", "session", id, "entry", tx.ID, "error", uerr)
	}
	return sess, warning, uerr
}

func retryWarning(amount int) string {
	return fmt.Sprintf("Your reward of %d tokens could not be sent right now. It is saved and will be retried.", amount)
}
