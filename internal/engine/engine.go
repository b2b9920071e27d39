// Package engine drives hunt sessions: it serializes events per session,
// applies the hunt rules, persists the result and settles token rewards.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
	"github.com/traveltrackie/superteam-ireland/internal/matcher"
	"github.com/traveltrackie/superteam-ireland/internal/reward"
	"github.com/traveltrackie/superteam-ireland/internal/store"
)

var (
	ErrExpired       = errors.New("session expired")
	ErrEmptyAnswer   = errors.New("answer is required")
	ErrInvalidWallet = errors.New("invalid wallet address")
)

// SelfieSaver stores the closing selfie and returns where it went.
type SelfieSaver interface {
	Save(ctx context.Context, sessionID string, image []byte) (string, error)
	// Remove deletes a selfie that was saved for an upload that failed.
	Remove(path string) error
}

// CertificateIssuer creates the completion certificate.
type CertificateIssuer interface {
	Issue(sess hunt.Session, now time.Time) (hunt.Certificate, error)
}

type Config struct {
	Catalog *hunt.Catalog
	Rules   hunt.Rules
	Store   store.Store
	Locker  store.Locker
	Issuer  reward.Issuer
	Matcher matcher.Matcher
	Certs   CertificateIssuer
	Selfies SelfieSaver
	// Wallet is the reward destination for sessions started without one.
	Wallet string
	// TTL is how long a session may sit idle. Zero disables expiry.
	TTL    time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

type Engine struct {
	catalog *hunt.Catalog
	rules   hunt.Rules
	store   store.Store
	locker  store.Locker
	issuer  reward.Issuer
	matcher matcher.Matcher
	certs   CertificateIssuer
	selfies SelfieSaver
	wallet  string
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
	tracer  trace.Tracer
}

func New(cfg Config) *Engine {
	e := &Engine{
		catalog: cfg.Catalog,
		rules:   cfg.Rules,
		store:   cfg.Store,
		locker:  cfg.Locker,
		issuer:  cfg.Issuer,
		matcher: cfg.Matcher,
		certs:   cfg.Certs,
		selfies: cfg.Selfies,
		wallet:  cfg.Wallet,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		now:     cfg.Now,
		tracer:  otel.Tracer("github.com/traveltrackie/superteam-ireland/internal/engine"),
	}
	if e.locker == nil {
		e.locker = store.NewKeyedMutex()
	}
	if e.issuer == nil {
		e.issuer = reward.Disabled{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Outcome is what a player sees after an event.
type Outcome struct {
	Session   hunt.Session
	Message   string
	Warning   string
	Hint      string
	HintsLeft int
	Correct   bool
	Revealed  string
}

func (e *Engine) Catalog() *hunt.Catalog { return e.catalog }
func (e *Engine) Rules() hunt.Rules      { return e.rules }

// Start creates a session. An empty wallet uses the configured default.
func (e *Engine) Start(ctx context.Context, wallet string) (hunt.Session, Outcome, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		wallet = e.wallet
	} else if v, ok := e.issuer.(reward.DestinationValidator); ok {
		if err := v.ValidateDestination(wallet); err != nil {
			return hunt.Session{}, Outcome{}, fmt.Errorf("%w: %v", ErrInvalidWallet, err)
		}
	}

	sess := hunt.NewSession(hunt.NewSessionID(), wallet, e.now().UTC())
	if err := e.store.Put(ctx, sess); err != nil {
		return hunt.Session{}, Outcome{}, fmt.Errorf("saving session: %w", err)
	}
	e.logger.Info("session started", "session", sess.ID)

	return sess, Outcome{Session: sess, Message: hunt.WelcomeMessage(e.catalog, e.rules)}, nil
}

// State returns the current session.
func (e *Engine) State(ctx context.Context, id string) (hunt.Session, error) {
	return e.load(ctx, id)
}

// Arrive confirms arrival at the current location.
func (e *Engine) Arrive(ctx context.Context, id string) (Outcome, error) {
	return e.apply(ctx, id, "arrive", func(s *hunt.Session, now time.Time) (hunt.Step, error) {
		return s.Arrive(e.catalog, e.rules, now)
	})
}

// Answer judges an answer to the open puzzle.
func (e *Engine) Answer(ctx context.Context, id, answer string) (Outcome, error) {
	if strings.TrimSpace(answer) == "" {
		return Outcome{}, ErrEmptyAnswer
	}
	return e.apply(ctx, id, "answer", func(s *hunt.Session, now time.Time) (hunt.Step, error) {
		if s.Stage != hunt.StageAwaitingPuzzle {
			return hunt.Step{}, hunt.ErrUnexpectedEvent
		}
		loc, _ := e.catalog.At(s.LocationIndex)
		correct := e.matcher.Match(ctx, answer, loc.Puzzle)
		return s.Answer(e.catalog, e.rules, correct, now)
	})
}

// Hint reveals the next hint for the open puzzle.
func (e *Engine) Hint(ctx context.Context, id string) (Outcome, error) {
	return e.apply(ctx, id, "hint", func(s *hunt.Session, now time.Time) (hunt.Step, error) {
		return s.Hint(e.catalog, e.rules, now)
	})
}

// UploadSelfie stores the closing selfie and issues the certificate. The
// file is removed again when the session could not be finished.
func (e *Engine) UploadSelfie(ctx context.Context, id string, image []byte) (Outcome, error) {
	var saved string
	out, err := e.apply(ctx, id, "selfie", func(s *hunt.Session, now time.Time) (hunt.Step, error) {
		if err := s.CanFinish(); err != nil {
			return hunt.Step{}, err
		}
		path, err := e.selfies.Save(ctx, s.ID, image)
		if err != nil {
			return hunt.Step{}, fmt.Errorf("saving selfie: %w", err)
		}
		saved = path
		cert, err := e.certs.Issue(*s, now)
		if err != nil {
			return hunt.Step{}, fmt.Errorf("issuing certificate: %w", err)
		}
		return s.Finish(path, cert, now)
	})
	if err != nil && saved != "" {
		if rerr := e.selfies.Remove(saved); rerr != nil {
			e.logger.Error("removing selfie", "session", id, "path", saved, "error", rerr)
		}
	}
	return out, err
}

// Help returns guidance for the session's current stage.
func (e *Engine) Help(ctx context.Context, id string) (string, error) {
	sess, err := e.load(ctx, id)
	if err != nil {
		return "", err
	}
	return sess.Help(e.catalog, e.rules), nil
}

// RetryRewards re-issues every unsettled reward of a session. Rewards that
// were already submitted are looked up before anything is sent again.
func (e *Engine) RetryRewards(ctx context.Context, id string) (hunt.Session, error) {
	ctx, span := e.tracer.Start(ctx, "hunt.retry_rewards", trace.WithAttributes(attribute.String("session", id)))
	defer span.End()

	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return hunt.Session{}, err
	}
	for _, txID := range sess.Unsettled() {
		if _, _, err := e.settle(ctx, id, txID); err != nil {
			return hunt.Session{}, fmt.Errorf("settling reward: %w", err)
		}
	}
	return e.store.Get(ctx, id)
}

// Session returns a stored session whether or not it has expired.
func (e *Engine) Session(ctx context.Context, id string) (hunt.Session, error) {
	return e.store.Get(ctx, id)
}

// Sessions lists every stored session, most recent first.
func (e *Engine) Sessions(ctx context.Context) ([]hunt.Session, error) {
	return e.store.List(ctx)
}

func (e *Engine) load(ctx context.Context, id string) (hunt.Session, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return hunt.Session{}, err
	}
	if sess.Expired(e.now(), e.ttl) {
		return hunt.Session{}, ErrExpired
	}
	return sess, nil
}

// apply runs one event under the session lock and saves the result. A
// reward earned by the event is sent after the lock is released.
func (e *Engine) apply(ctx context.Context, id, event string, fn func(*hunt.Session, time.Time) (hunt.Step, error)) (Outcome, error) {
	ctx, span := e.tracer.Start(ctx, "hunt."+event, trace.WithAttributes(attribute.String("session", id)))
	defer span.End()

	sess, step, err := e.transition(ctx, id, event, fn)
	if err != nil {
		if !errors.Is(err, hunt.ErrUnexpectedEvent) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return Outcome{Session: sess}, err
	}
	span.SetAttributes(
		attribute.String("stage", string(sess.Stage)),
		attribute.Int("location", sess.LocationIndex),
	)

	out := Outcome{
		Message:   step.Message,
		Hint:      step.Hint,
		HintsLeft: step.HintsLeft,
		Correct:   step.Correct,
		Revealed:  step.Revealed,
	}
	if step.Reward != "" {
		settled, warning, err := e.settle(ctx, id, step.Reward)
		switch {
		case err != nil:
			e.logger.Error("settling reward", "session", id, "entry", step.Reward, "error", err)
			if tx := sess.Transaction(step.Reward); tx != nil {
				warning = retryWarning(tx.Amount)
			}
		case settled.ID != "":
			sess = settled
		}
		out.Warning = warning
	}
	out.Session = sess
	return out, nil
}

// transition applies fn to the session and saves it while holding the lock.
func (e *Engine) transition(ctx context.Context, id, event string, fn func(*hunt.Session, time.Time) (hunt.Step, error)) (hunt.Session, hunt.Step, error) {
	unlock, err := e.locker.Lock(ctx, id)
	if err != nil {
		return hunt.Session{}, hunt.Step{}, fmt.Errorf("locking session: %w", err)
	}
	defer unlock()

	sess, err := e.load(ctx, id)
	if err != nil {
		return hunt.Session{}, hunt.Step{}, err
	}

	from := sess.Stage
	step, err := fn(&sess, e.now().UTC())
	if err != nil {
		return sess, hunt.Step{}, err
	}
	if err := e.store.Put(ctx, sess); err != nil {
		return hunt.Session{}, hunt.Step{}, fmt.Errorf("saving session: %w", err)
	}

	e.logger.Info("hunt event",
		"session", sess.ID,
		"event", event,
		"from", from,
		"to", sess.Stage,
		"location", sess.LocationIndex,
		"tokens", sess.TokensEarned,
	)
	return sess, step, nil
}

// update applies fn to the stored session under a short lock and saves it
// when fn reports a change. Expiry is not checked so rewards of idle
// sessions can still be settled.
func (e *Engine) update(ctx context.Context, id string, fn func(*hunt.Session) bool) (hunt.Session, error) {
	unlock, err := e.locker.Lock(ctx, id)
	if err != nil {
		return hunt.Session{}, fmt.Errorf("locking session: %w", err)
	}
	defer unlock()

	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return hunt.Session{}, err
	}
	if !fn(&sess) {
		return sess, nil
	}
	if err := e.store.Put(ctx, sess); err != nil {
		return hunt.Session{}, fmt.Errorf("saving session: %w", err)
	}
	return sess, nil
}
