package hunt

import (
	"fmt"
	"time"
)

// Step is the result of applying one event to a session. The caller persists
// the session, issues the reward named by Reward if any, and relays Message.
type Step struct {
	Message   string
	Hint      string
	HintsLeft int
	Correct   bool
	Revealed  string
	// Reward is the id of a pending reward entry awaiting a transfer.
	Reward string
}

// Arrive confirms arrival at the current location and opens its puzzle.
func (s *Session) Arrive(c *Catalog, r Rules, now time.Time) (Step, error) {
	if s.Stage != StageAwaitingArrival {
		return Step{}, ErrUnexpectedEvent
	}
	loc, err := s.current(c)
	if err != nil {
		return Step{}, err
	}

	s.Stage = StageAwaitingPuzzle
	s.Attempts = 0
	s.HintsUsed = 0

	amount := r.arrivalReward(loc)
	id := s.credit(amount, "Arrived at "+loc.Name, now)
	s.UpdatedAt = now

	return Step{
		Message:   arrivedMessage(loc, amount, s.TokensEarned),
		HintsLeft: len(loc.Puzzle.Hints),
		Reward:    id,
	}, nil
}

// Answer applies a judged answer to the open puzzle. correct is the verdict
// of the answer matcher.
func (s *Session) Answer(c *Catalog, r Rules, correct bool, now time.Time) (Step, error) {
	if s.Stage != StageAwaitingPuzzle {
		return Step{}, ErrUnexpectedEvent
	}
	loc, err := s.current(c)
	if err != nil {
		return Step{}, err
	}
	defer func() { s.UpdatedAt = now }()

	if correct {
		amount := r.answerReward(loc)
		id := s.credit(amount, "Solved puzzle at "+loc.Name, now)
		next := s.advance(c, loc)
		return Step{
			Correct: true,
			Message: solvedMessage(next, amount, s.TokensEarned),
			Reward:  id,
		}, nil
	}

	s.Attempts++
	if r.MaxAttempts > 0 && s.Attempts >= r.MaxAttempts {
		s.record(TxNoReward, 0, "Failed to solve puzzle at "+loc.Name, now)
		answer := loc.Puzzle.Answer()
		next := s.advance(c, loc)
		return Step{
			Revealed: answer,
			Message:  revealedMessage(answer, next),
		}, nil
	}

	remaining := -1
	if r.MaxAttempts > 0 {
		remaining = r.MaxAttempts - s.Attempts
	}
	return Step{
		Message:   retryMessage(remaining),
		HintsLeft: len(loc.Puzzle.Hints) - s.HintsUsed,
	}, nil
}

// Hint reveals the next hint for the open puzzle and deducts the penalty,
// never taking the balance below zero. Once every hint is revealed the last
// one is repeated free of charge.
func (s *Session) Hint(c *Catalog, r Rules, now time.Time) (Step, error) {
	if s.Stage != StageAwaitingPuzzle {
		return Step{}, ErrUnexpectedEvent
	}
	loc, err := s.current(c)
	if err != nil {
		return Step{}, err
	}

	hints := loc.Puzzle.Hints
	switch {
	case len(hints) == 0:
		return Step{Message: "No hints available for this puzzle. Try your best guess!"}, nil
	case s.HintsUsed >= len(hints):
		last := hints[len(hints)-1]
		return Step{
			Hint:    last,
			Message: "You've used all available hints. Last hint was: " + last,
		}, nil
	}

	hint := hints[s.HintsUsed]
	s.HintsUsed++
	s.TotalHintsUsed++

	deducted := min(r.hintPenalty(loc), s.TokensEarned)
	s.TokensEarned -= deducted
	s.record(TxPenalty, -deducted, "Used hint for "+loc.Name, now)
	s.UpdatedAt = now

	left := len(hints) - s.HintsUsed
	return Step{
		Hint:      hint,
		HintsLeft: left,
		Message:   hintMessage(hint, left, deducted, s.TokensEarned),
	}, nil
}

// CanFinish reports whether the session accepts the closing selfie.
func (s *Session) CanFinish() error {
	if s.Stage != StageCompleted {
		return ErrUnexpectedEvent
	}
	return nil
}

// Finish records the selfie and certificate and closes the hunt.
func (s *Session) Finish(selfiePath string, cert Certificate, now time.Time) (Step, error) {
	if err := s.CanFinish(); err != nil {
		return Step{}, err
	}
	s.SelfieUploaded = true
	s.SelfiePath = selfiePath
	s.Certificate = &cert
	s.Stage = StageFinished
	s.FinishedAt = &now
	s.UpdatedAt = now

	return Step{Message: finishedMessage(cert.FinishTime, s.TokensEarned)}, nil
}

// Elapsed is the time from the start of the hunt until now, or until the
// hunt was finished.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.FinishedAt != nil {
		now = *s.FinishedAt
	}
	return now.Sub(s.StartedAt)
}

func (s *Session) current(c *Catalog) (Location, error) {
	loc, ok := c.At(s.LocationIndex)
	if !ok {
		return Location{}, fmt.Errorf("location index %d out of range [0, %d)", s.LocationIndex, c.Len())
	}
	return loc, nil
}

// advance marks loc as done and moves to the next location. It returns nil
// once the last location is done.
func (s *Session) advance(c *Catalog, loc Location) *Location {
	s.CompletedLocations = append(s.CompletedLocations, loc.ID)
	s.Attempts = 0
	s.HintsUsed = 0
	s.LocationIndex++

	next, ok := c.At(s.LocationIndex)
	if !ok {
		s.LocationIndex = c.Len()
		s.Stage = StageCompleted
		return nil
	}
	s.Stage = StageAwaitingArrival
	return &next
}
