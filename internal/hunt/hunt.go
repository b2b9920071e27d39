// Package hunt holds the scavenger hunt domain: the location catalog, the
// per-player session record and the rules that move a session from one
// location to the next.
package hunt

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Stage is where a session sits in the hunt.
type Stage string

const (
	StageAwaitingArrival Stage = "awaiting_arrival"
	StageAwaitingPuzzle  Stage = "awaiting_puzzle"
	StageCompleted       Stage = "completed"
	StageFinished        Stage = "finished"
)

// ErrUnexpectedEvent is returned when an event is not accepted in the
// session's current stage.
var ErrUnexpectedEvent = errors.New("event not accepted in current stage")

// TxKind classifies a ledger entry.
type TxKind string

const (
	TxReward   TxKind = "reward"
	TxPenalty  TxKind = "penalty"
	TxNoReward TxKind = "no_reward"
)

// TxStatus tracks a ledger entry through issuance.
type TxStatus string

const (
	TxPending TxStatus = "pending"
	// TxSending entries are owned by an in-flight transfer. When TxID is set
	// the transfer may already have landed and must be looked up before any
	// new send.
	TxSending   TxStatus = "sending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
	// TxRecorded marks entries that are never sent on chain: penalties,
	// zero rewards and rewards while issuance is disabled.
	TxRecorded TxStatus = "recorded"
)

// Transaction is one entry of a session's reward ledger.
type Transaction struct {
	ID          string    `json:"id"`
	Kind        TxKind    `json:"kind"`
	Amount      int       `json:"amount"`
	Reason      string    `json:"reason"`
	Destination string    `json:"destination,omitempty"`
	Status      TxStatus  `json:"status"`
	TxID        string    `json:"txId,omitempty"`
	Blockhash   string    `json:"blockhash,omitempty"`
	Error       string    `json:"error,omitempty"`
	Attempts    int       `json:"attempts"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Certificate is issued once the selfie closes the hunt.
type Certificate struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	FinishTime string    `json:"finishTime"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// Session is one player's progression through the hunt. It is also the
// document persisted by the session stores.
type Session struct {
	ID                 string        `json:"id"`
	Stage              Stage         `json:"stage"`
	LocationIndex      int           `json:"locationIndex"`
	TokensEarned       int           `json:"tokensEarned"`
	HintsUsed          int           `json:"hintsUsed"`
	TotalHintsUsed     int           `json:"totalHintsUsed"`
	Attempts           int           `json:"attempts"`
	CompletedLocations []int         `json:"completedLocations"`
	SelfieUploaded     bool          `json:"selfieUploaded"`
	SelfiePath         string        `json:"selfiePath,omitempty"`
	Wallet             string        `json:"wallet"`
	Transactions       []Transaction `json:"transactions"`
	Certificate        *Certificate  `json:"certificate,omitempty"`
	StartedAt          time.Time     `json:"startedAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
	FinishedAt         *time.Time    `json:"finishedAt,omitempty"`
}

// NewSessionID returns a fresh session identifier. The identifier doubles as
// the player's bearer token.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}

// NewSession returns a session waiting for arrival at the first location.
func NewSession(id, wallet string, now time.Time) Session {
	return Session{
		ID:                 id,
		Stage:              StageAwaitingArrival,
		Wallet:             wallet,
		CompletedLocations: []int{},
		Transactions:       []Transaction{},
		StartedAt:          now,
		UpdatedAt:          now,
	}
}

// Done reports whether the session has solved or given up every location.
func (s *Session) Done() bool {
	return s.Stage == StageCompleted || s.Stage == StageFinished
}

// Expired reports whether the session has been idle longer than ttl.
// Finished sessions never expire, so their certificate stays reachable.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || s.Stage == StageFinished {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}

// Transaction returns a pointer to the ledger entry with the given id.
func (s *Session) Transaction(id string) *Transaction {
	for i := range s.Transactions {
		if s.Transactions[i].ID == id {
			return &s.Transactions[i]
		}
	}
	return nil
}

// Unsettled returns the ids of reward entries still waiting on a transfer.
// Sending entries without a signature are left out: their outcome cannot be
// checked, so sending them again could pay twice.
func (s *Session) Unsettled() []string {
	var ids []string
	for _, tx := range s.Transactions {
		if tx.Kind != TxReward {
			continue
		}
		switch tx.Status {
		case TxPending, TxFailed:
			ids = append(ids, tx.ID)
		case TxSending:
			if tx.TxID != "" {
				ids = append(ids, tx.ID)
			}
		}
	}
	return ids
}

// Rules are the configurable scoring defaults. Location level reward fields
// override them when non-zero.
type Rules struct {
	ArrivalReward int
	AnswerReward  int
	HintPenalty   int
	// MaxAttempts is the number of wrong answers after which the answer is
	// revealed. Zero means unlimited.
	MaxAttempts int
}

func DefaultRules() Rules {
	return Rules{
		ArrivalReward: 10,
		AnswerReward:  20,
		HintPenalty:   5,
		MaxAttempts:   3,
	}
}

func (r Rules) arrivalReward(loc Location) int {
	if loc.ArrivalReward > 0 {
		return loc.ArrivalReward
	}
	return r.ArrivalReward
}

func (r Rules) answerReward(loc Location) int {
	if loc.AnswerReward > 0 {
		return loc.AnswerReward
	}
	return r.AnswerReward
}

func (r Rules) hintPenalty(loc Location) int {
	if loc.HintPenalty > 0 {
		return loc.HintPenalty
	}
	return r.HintPenalty
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	c := s
	c.CompletedLocations = append([]int{}, s.CompletedLocations...)
	c.Transactions = append([]Transaction{}, s.Transactions...)
	if s.Certificate != nil {
		cert := *s.Certificate
		c.Certificate = &cert
	}
	if s.FinishedAt != nil {
		t := *s.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
