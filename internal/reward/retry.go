package reward

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds how hard a reward transfer is tried.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	// Timeout applies to each attempt.
	Timeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		Timeout:         20 * time.Second,
	}
}

// RetryIssuer retries transient failures of the wrapped Issuer with
// exponential backoff. Failures that wrap ErrSubmitted are returned at once
// since the transfer may have landed.
type RetryIssuer struct {
	next   Issuer
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetryIssuer(next Issuer, policy RetryPolicy, logger *slog.Logger) *RetryIssuer {
	return &RetryIssuer{next: next, policy: policy.normalize(), logger: logger}
}

func (r *RetryIssuer) IssueReward(ctx context.Context, amount int, destination string) (string, error) {
	return retry(ctx, r.policy, r.logger.With("amount", amount), "reward transfer",
		func(ctx context.Context) (string, error) {
			return r.next.IssueReward(ctx, amount, destination)
		})
}

// ValidateDestination forwards to the wrapped issuer when it can validate.
func (r *RetryIssuer) ValidateDestination(destination string) error {
	return validate(r.next, destination)
}

// RetrySubmitter retries the signing and lookup steps of a Submitter.
// Submit is attempted once: a second send is only safe after a lookup shows
// the first one dropped.
type RetrySubmitter struct {
	next   Submitter
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetrySubmitter(next Submitter, policy RetryPolicy, logger *slog.Logger) *RetrySubmitter {
	return &RetrySubmitter{next: next, policy: policy.normalize(), logger: logger}
}

func (r *RetrySubmitter) IssueReward(ctx context.Context, amount int, destination string) (string, error) {
	t, err := r.Prepare(ctx, amount, destination)
	if err != nil {
		return "", err
	}
	if err := r.Submit(ctx, t); err != nil {
		return "", err
	}
	return t.Signature, nil
}

func (r *RetrySubmitter) Prepare(ctx context.Context, amount int, destination string) (*Transfer, error) {
	return retry(ctx, r.policy, r.logger.With("amount", amount), "reward signing",
		func(ctx context.Context) (*Transfer, error) {
			return r.next.Prepare(ctx, amount, destination)
		})
}

func (r *RetrySubmitter) Submit(ctx context.Context, t *Transfer) error {
	ctx, cancel := r.policy.attempt(ctx)
	defer cancel()
	return r.next.Submit(ctx, t)
}

func (r *RetrySubmitter) Lookup(ctx context.Context, signature, blockhash string) (TransferState, error) {
	return retry(ctx, r.policy, r.logger.With("signature", signature), "reward lookup",
		func(ctx context.Context) (TransferState, error) {
			return r.next.Lookup(ctx, signature, blockhash)
		})
}

func (r *RetrySubmitter) ValidateDestination(destination string) error {
	return validate(r.next, destination)
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 1
	}
	return p
}

func (p RetryPolicy) attempt(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.Timeout > 0 {
		return context.WithTimeout(ctx, p.Timeout)
	}
	return context.WithCancel(ctx)
}

// retry runs fn under policy. Errors that retrying cannot fix, or that could
// repeat a payment, stop it immediately.
func retry[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, what string, fn func(context.Context) (T, error)) (T, error) {
	attempt := 0
	op := func() (T, error) {
		attempt++
		actx, cancel := policy.attempt(ctx)
		defer cancel()

		out, err := fn(actx)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrInvalidDestination) || errors.Is(err, ErrDisabled) || errors.Is(err, ErrSubmitted) {
			return out, backoff.Permanent(err)
		}
		logger.Warn(what+" attempt failed", "attempt", attempt, "error", err)
		return out, err
	}

	b := backoff.NewExponentialBackOff()
	if policy.InitialInterval > 0 {
		b.InitialInterval = policy.InitialInterval
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxAttempts),
	)
}

func validate(next any, destination string) error {
	if v, ok := next.(DestinationValidator); ok {
		return v.ValidateDestination(destination)
	}
	return nil
}
