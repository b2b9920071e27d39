package engine_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traveltrackie/superteam-ireland/internal/engine"
	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/reward"
	"github.com/traveltrackie/superteam-ireland/internal/store"
)

// leaseLocker hands out locks that lapse after lease, like a Redis lock
// whose TTL ran out. An unlock after the lease only releases its own lock.
type leaseLocker struct {
	mu    sync.Mutex
	lease time.Duration
	held  map[string]leaseHold
	next  int
}

type leaseHold struct {
	token   int
	expires time.Time
}

func newLeaseLocker(lease time.Duration) *leaseLocker {
	return &leaseLocker{lease: lease, held: map[string]leaseHold{}}
}

func (l *leaseLocker) Lock(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		h, ok := l.held[key]
		if !ok || time.Now().After(h.expires) {
			l.next++
			token := l.next
			l.held[key] = leaseHold{token: token, expires: time.Now().Add(l.lease)}
			l.mu.Unlock()
			return func() {
				l.mu.Lock()
				defer l.mu.Unlock()
				if l.held[key].token == token {
					delete(l.held, key)
				}
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

// blockingIssuer holds every transfer until release is closed.
type blockingIssuer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingIssuer) IssueReward(context.Context, int, string) (string, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return "sig-slow", nil
}

func TestSlowRewardDoesNotRewindProgress(t *testing.T) {
	ctx := context.Background()
	lease := 20 * time.Millisecond
	slow := &blockingIssuer{started: make(chan struct{}), release: make(chan struct{})}
	f := newFixtureWith(t, answerOnly(), func(_ *fixture, cfg *engine.Config) {
		cfg.Issuer = slow
		cfg.Locker = newLeaseLocker(lease)
	})
	sess := f.start(t)
	_, err := f.engine.Arrive(ctx, sess.ID)
	require.NoError(t, err)

	type result struct {
		out engine.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := f.engine.Answer(ctx, sess.ID, "ANSWER")
		done <- result{out, err}
	}()

	<-slow.started
	time.Sleep(2 * lease)

	out, err := f.engine.Arrive(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, hunt.StageAwaitingPuzzle, out.Session.Stage)
	assert.Equal(t, 1, out.Session.LocationIndex)

	close(slow.release)
	res := <-done
	require.NoError(t, res.err)
	assert.True(t, res.out.Correct)

	stored, err := f.store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, hunt.StageAwaitingPuzzle, stored.Stage, "settling must not overwrite later progress")
	assert.Equal(t, 1, stored.LocationIndex)
	assert.Equal(t, 10, stored.TokensEarned)
	assert.Empty(t, stored.Unsettled())

	var rewards int
	for _, tx := range stored.Transactions {
		if tx.Kind == hunt.TxReward && tx.Amount > 0 {
			rewards++
			assert.Equal(t, hunt.TxConfirmed, tx.Status)
			assert.Equal(t, "sig-slow", tx.TxID)
		}
	}
	assert.Equal(t, 1, rewards)
}

func TestConcurrentRetriesSendOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, answerOnly(), true)
	f.issuer.setErr(errors.New("rpc unavailable"))
	sess := f.start(t)
	_, err := f.engine.Arrive(ctx, sess.ID)
	require.NoError(t, err)
	_, err = f.engine.Answer(ctx, sess.ID, "ANSWER")
	require.NoError(t, err)
	f.issuer.setErr(nil)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.RetryRewards(ctx, sess.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// One failed attempt plus exactly one successful retry.
	assert.Len(t, f.issuer.Calls(), 2)
	stored, err := f.store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Unsettled())
}

// fakeSubmitter records each step of a signed transfer.
type fakeSubmitter struct {
	mu        sync.Mutex
	prepares  int
	submits   int
	lookups   int
	submitErr error
	state     reward.TransferState
}

func (f *fakeSubmitter) IssueReward(context.Context, int, string) (string, error) {
	return "", errors.New("transfers go through Prepare and Submit")
}

func (f *fakeSubmitter) Prepare(_ context.Context, amount int, dest string) (*reward.Transfer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepares++
	return &reward.Transfer{
		Signature:   fmt.Sprintf("sig-%d", f.prepares),
		Blockhash:   fmt.Sprintf("hash-%d", f.prepares),
		Amount:      amount,
		Destination: dest,
	}, nil
}

func (f *fakeSubmitter) Submit(context.Context, *reward.Transfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	return f.submitErr
}

func (f *fakeSubmitter) Lookup(context.Context, string, string) (reward.TransferState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	return f.state, nil
}

func (f *fakeSubmitter) set(state reward.TransferState, submitErr error) {
	f.mu.Lock()
	f.state = state
	f.submitErr = submitErr
	f.mu.Unlock()
}

func (f *fakeSubmitter) counts() (prepares, submits, lookups int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prepares, f.submits, f.lookups
}

func TestUnknownSendIsLookedUpBeforeResending(t *testing.T) {
	timeout := fmt.Errorf("sending transaction: %w: %w", reward.ErrSubmitted, context.DeadlineExceeded)

	tests := []struct {
		name        string
		state       reward.TransferState
		wantStatus  hunt.TxStatus
		wantTxID    string
		wantSubmits int
	}{
		{"landed", reward.TransferLanded, hunt.TxConfirmed, "sig-1", 1},
		{"still in flight", reward.TransferInFlight, hunt.TxSending, "sig-1", 1},
		{"dropped", reward.TransferDropped, hunt.TxConfirmed, "sig-2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			sub := &fakeSubmitter{submitErr: timeout}
			f := newFixtureWith(t, answerOnly(), func(_ *fixture, cfg *engine.Config) {
				cfg.Issuer = sub
			})
			sess := f.start(t)
			_, err := f.engine.Arrive(ctx, sess.ID)
			require.NoError(t, err)

			out, err := f.engine.Answer(ctx, sess.ID, "ANSWER")
			require.NoError(t, err)
			assert.Contains(t, out.Warning, "not confirmed")

			ids := out.Session.Unsettled()
			require.Len(t, ids, 1)
			pending := out.Session.Transaction(ids[0])
			assert.Equal(t, hunt.TxSending, pending.Status)
			assert.Equal(t, "sig-1", pending.TxID, "signature is stored before sending")
			assert.Equal(t, "hash-1", pending.Blockhash)
			assert.Equal(t, 1, pending.Attempts)

			sub.set(tt.state, nil)
			retried, err := f.engine.RetryRewards(ctx, sess.ID)
			require.NoError(t, err)

			_, submits, lookups := sub.counts()
			assert.Equal(t, 1, lookups)
			assert.Equal(t, tt.wantSubmits, submits)
			tx := retried.Transaction(pending.ID)
			require.NotNil(t, tx)
			assert.Equal(t, tt.wantStatus, tx.Status)
			assert.Equal(t, tt.wantTxID, tx.TxID)
		})
	}
}

type failingCerts struct{}

func (failingCerts) Issue(hunt.Session, time.Time) (hunt.Certificate, error) {
	return hunt.Certificate{}, errors.New("signing key unavailable")
}

// failFinished refuses to save finished sessions.
type failFinished struct {
	*store.MemoryStore
}

func (s failFinished) Put(ctx context.Context, sess hunt.Session) error {
	if sess.Stage == hunt.StageFinished {
		return errors.New("disk full")
	}
	return s.MemoryStore.Put(ctx, sess)
}

func TestFailedSelfieUploadLeavesNoFile(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*fixture, *engine.Config)
	}{
		{"certificate fails", func(_ *fixture, cfg *engine.Config) { cfg.Certs = failingCerts{} }},
		{"save fails", func(f *fixture, cfg *engine.Config) { cfg.Store = failFinished{f.store} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			f := newFixtureWith(t, answerOnly(), func(f *fixture, cfg *engine.Config) {
				cfg.Issuer = f.issuer
				cfg.Selfies = store.NewSelfieStore(dir)
				tt.configure(f, cfg)
			})
			sess := f.start(t)
			for _, answer := range []string{"ANSWER", "Liffey"} {
				_, err := f.engine.Arrive(ctx, sess.ID)
				require.NoError(t, err)
				_, err = f.engine.Answer(ctx, sess.ID, answer)
				require.NoError(t, err)
			}

			_, err := f.engine.UploadSelfie(ctx, sess.ID, pngBytes(t))
			require.Error(t, err)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)

			state, err := f.engine.State(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, hunt.StageCompleted, state.Stage)
		})
	}
}
