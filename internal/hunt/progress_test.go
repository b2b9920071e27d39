package hunt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 5, 17, 10, 0, 0, 0, time.UTC)

func testCatalog() *Catalog {
	return &Catalog{
		Title: "Test Hunt",
		Locations: []Location{
			{
				ID:   1,
				Name: "First Stop",
				Puzzle: Puzzle{
					Question: "What is the answer?",
					Answers:  []string{"ANSWER"},
					Hints:    []string{"It is a word.", "It starts with A.", "It is ANSWER."},
				},
				AnswerReward: 10,
			},
			{
				ID:   2,
				Name: "Second Stop",
				Puzzle: Puzzle{
					Question: "Two plus two?",
					Answers:  []string{"4"},
				},
			},
		},
	}
}

// testRules disables the arrival reward so answer rewards can be observed
// on their own.
func testRules() Rules {
	return Rules{AnswerReward: 20, HintPenalty: 5, MaxAttempts: 3}
}

func TestArriveWrongThenCorrect(t *testing.T) {
	c, r := testCatalog(), testRules()
	s := NewSession("s1", "wallet", t0)

	step, err := s.Arrive(c, r, t0)
	if err != nil {
		t.Fatalf("arrive: %v", err)
	}
	if s.Stage != StageAwaitingPuzzle {
		t.Fatalf("stage = %q, want %q", s.Stage, StageAwaitingPuzzle)
	}
	if step.Reward != "" {
		t.Errorf("arrive: unexpected pending reward %q", step.Reward)
	}

	step, err = s.Answer(c, r, false, t0)
	if err != nil {
		t.Fatalf("wrong answer: %v", err)
	}
	if step.Correct || s.LocationIndex != 0 || s.Stage != StageAwaitingPuzzle {
		t.Fatalf("wrong answer moved the session: index=%d stage=%q", s.LocationIndex, s.Stage)
	}
	if s.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", s.Attempts)
	}

	before := s.TokensEarned
	step, err = s.Answer(c, r, true, t0)
	if err != nil {
		t.Fatalf("correct answer: %v", err)
	}
	if !step.Correct {
		t.Error("expected Correct")
	}
	if s.LocationIndex != 1 || s.Stage != StageAwaitingArrival {
		t.Errorf("index=%d stage=%q, want 1 %q", s.LocationIndex, s.Stage, StageAwaitingArrival)
	}
	if got := s.TokensEarned - before; got != 10 {
		t.Errorf("balance grew by %d, want 10", got)
	}
	tx := s.Transaction(step.Reward)
	if tx == nil || tx.Status != TxPending || tx.Amount != 10 || tx.Destination != "wallet" {
		t.Errorf("pending reward = %+v", tx)
	}
	if s.Attempts != 0 || s.HintsUsed != 0 {
		t.Errorf("per-puzzle counters not reset: attempts=%d hints=%d", s.Attempts, s.HintsUsed)
	}
}

func TestHintPenalties(t *testing.T) {
	c, r := testCatalog(), testRules()
	s := NewSession("s1", "wallet", t0)
	s.TokensEarned = 12
	if _, err := s.Arrive(c, r, t0); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		wantBalance int
		wantHint    string
		wantLeft    int
	}{
		{wantBalance: 7, wantHint: "It is a word.", wantLeft: 2},
		{wantBalance: 2, wantHint: "It starts with A.", wantLeft: 1},
		{wantBalance: 0, wantHint: "It is ANSWER.", wantLeft: 0},
		// Exhausted: the last hint repeats without a penalty.
		{wantBalance: 0, wantHint: "It is ANSWER.", wantLeft: 0},
	}
	for i, tt := range tests {
		step, err := s.Hint(c, r, t0)
		if err != nil {
			t.Fatalf("hint %d: %v", i, err)
		}
		if s.TokensEarned != tt.wantBalance {
			t.Errorf("hint %d: balance = %d, want %d", i, s.TokensEarned, tt.wantBalance)
		}
		if step.Hint != tt.wantHint {
			t.Errorf("hint %d: hint = %q, want %q", i, step.Hint, tt.wantHint)
		}
		if step.HintsLeft != tt.wantLeft {
			t.Errorf("hint %d: left = %d, want %d", i, step.HintsLeft, tt.wantLeft)
		}
	}

	var penalties int
	for _, tx := range s.Transactions {
		if tx.Kind == TxPenalty {
			penalties++
			if tx.Status != TxRecorded {
				t.Errorf("penalty status = %q, want %q", tx.Status, TxRecorded)
			}
		}
	}
	if penalties != 3 {
		t.Errorf("penalty entries = %d, want 3", penalties)
	}
	if s.TotalHintsUsed != 3 {
		t.Errorf("total hints = %d, want 3", s.TotalHintsUsed)
	}
}

func TestAttemptsExhaustedRevealsAnswer(t *testing.T) {
	c, r := testCatalog(), testRules()
	s := NewSession("s1", "wallet", t0)
	if _, err := s.Arrive(c, r, t0); err != nil {
		t.Fatal(err)
	}

	var step Step
	for i := 0; i < r.MaxAttempts; i++ {
		var err error
		step, err = s.Answer(c, r, false, t0)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	if step.Revealed != "ANSWER" {
		t.Errorf("revealed = %q, want ANSWER", step.Revealed)
	}
	if s.LocationIndex != 1 || s.Stage != StageAwaitingArrival {
		t.Errorf("index=%d stage=%q after giving up", s.LocationIndex, s.Stage)
	}
	if s.TokensEarned != 0 {
		t.Errorf("balance = %d, want 0", s.TokensEarned)
	}
	last := s.Transactions[len(s.Transactions)-1]
	if last.Kind != TxNoReward {
		t.Errorf("last entry kind = %q, want %q", last.Kind, TxNoReward)
	}
}

func TestUnlimitedAttempts(t *testing.T) {
	c, r := testCatalog(), testRules()
	r.MaxAttempts = 0
	s := NewSession("s1", "wallet", t0)
	if _, err := s.Arrive(c, r, t0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		step, err := s.Answer(c, r, false, t0)
		if err != nil {
			t.Fatal(err)
		}
		if step.Revealed != "" {
			t.Fatalf("answer revealed after %d attempts", i+1)
		}
	}
	if s.LocationIndex != 0 {
		t.Errorf("index = %d, want 0", s.LocationIndex)
	}
}

func TestCompletionAndFinish(t *testing.T) {
	c, r := testCatalog(), testRules()
	s := NewSession("s1", "wallet", t0)

	for i := 0; i < c.Len(); i++ {
		if _, err := s.Arrive(c, r, t0); err != nil {
			t.Fatalf("arrive %d: %v", i, err)
		}
		if _, err := s.Answer(c, r, true, t0); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	if s.Stage != StageCompleted || s.LocationIndex != c.Len() {
		t.Fatalf("stage=%q index=%d, want completed at %d", s.Stage, s.LocationIndex, c.Len())
	}

	if _, err := s.Answer(c, r, true, t0); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("answer after completion: err = %v, want ErrUnexpectedEvent", err)
	}
	if _, err := s.Hint(c, r, t0); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("hint after completion: err = %v, want ErrUnexpectedEvent", err)
	}
	if _, err := s.Arrive(c, r, t0); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("arrive after completion: err = %v, want ErrUnexpectedEvent", err)
	}

	end := t0.Add(1*time.Hour + 2*time.Minute + 3*time.Second)
	cert := Certificate{ID: "c1", FinishTime: FormatDuration(s.Elapsed(end))}
	step, err := s.Finish("selfies/s1.jpg", cert, end)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if s.Stage != StageFinished || !s.SelfieUploaded {
		t.Errorf("stage=%q selfie=%v", s.Stage, s.SelfieUploaded)
	}
	if !strings.Contains(step.Message, "1h 2m 3s") {
		t.Errorf("finish message %q missing finish time", step.Message)
	}
	if _, err := s.Finish("again.jpg", cert, end); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("second finish: err = %v, want ErrUnexpectedEvent", err)
	}
}

func TestSelfieBeforeCompletion(t *testing.T) {
	s := NewSession("s1", "wallet", t0)
	if err := s.CanFinish(); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("err = %v, want ErrUnexpectedEvent", err)
	}
}

func TestUnexpectedEventsBeforeArrival(t *testing.T) {
	c, r := testCatalog(), testRules()
	s := NewSession("s1", "wallet", t0)

	if _, err := s.Answer(c, r, true, t0); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("answer: err = %v", err)
	}
	if _, err := s.Hint(c, r, t0); !errors.Is(err, ErrUnexpectedEvent) {
		t.Errorf("hint: err = %v", err)
	}
}

// Replays a fixed pseudo-random event sequence and checks the session
// invariants after every step.
func TestInvariantsUnderEventSequences(t *testing.T) {
	c, r := testCatalog(), testRules()
	r.ArrivalReward = 3

	seed := uint32(7)
	next := func() uint32 {
		seed = seed*1664525 + 1013904223
		return seed >> 16
	}

	for run := 0; run < 50; run++ {
		s := NewSession("s", "wallet", t0)
		prev := 0
		for i := 0; i < 40; i++ {
			switch next() % 4 {
			case 0:
				s.Arrive(c, r, t0)
			case 1:
				s.Answer(c, r, next()%3 == 0, t0)
			case 2:
				s.Hint(c, r, t0)
			case 3:
				if s.CanFinish() == nil {
					s.Finish("x.jpg", Certificate{}, t0)
				}
			}
			if s.LocationIndex < prev {
				t.Fatalf("run %d: index went from %d to %d", run, prev, s.LocationIndex)
			}
			if s.LocationIndex > c.Len() {
				t.Fatalf("run %d: index %d beyond %d", run, s.LocationIndex, c.Len())
			}
			if s.LocationIndex == c.Len() && !s.Done() {
				t.Fatalf("run %d: index at N but stage %q", run, s.Stage)
			}
			if s.TokensEarned < 0 {
				t.Fatalf("run %d: negative balance %d", run, s.TokensEarned)
			}
			prev = s.LocationIndex
		}
	}
}

func TestSettle(t *testing.T) {
	c, r := testCatalog(), testRules()
	r.ArrivalReward = 10
	s := NewSession("s1", "wallet", t0)
	step, err := s.Arrive(c, r, t0)
	if err != nil {
		t.Fatal(err)
	}

	s.Settle(step.Reward, "", errors.New("rpc down"), t0)
	tx := s.Transaction(step.Reward)
	if tx.Status != TxFailed || tx.Error != "rpc down" || tx.Attempts != 1 {
		t.Fatalf("after failure: %+v", tx)
	}
	if got := s.Unsettled(); len(got) != 1 || got[0] != step.Reward {
		t.Errorf("unsettled = %v", got)
	}

	s.Settle(step.Reward, "sig123", nil, t0)
	if tx.Status != TxConfirmed || tx.TxID != "sig123" || tx.Error != "" || tx.Attempts != 2 {
		t.Fatalf("after retry: %+v", tx)
	}
	if got := s.Unsettled(); len(got) != 0 {
		t.Errorf("unsettled = %v, want none", got)
	}
}

func TestClaimOwnsEntry(t *testing.T) {
	c, r := testCatalog(), testRules()
	r.ArrivalReward = 10
	s := NewSession("s1", "wallet", t0)
	step, err := s.Arrive(c, r, t0)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Claim(step.Reward, "", "", t0) {
		t.Fatal("first claim should own the entry")
	}
	if s.Claim(step.Reward, "", "", t0) {
		t.Fatal("second claim must not own a sending entry")
	}
	if got := s.Unsettled(); len(got) != 0 {
		t.Errorf("unsettled = %v, sending entries without a signature cannot be retried", got)
	}

	s.Settle(step.Reward, "", errors.New("no blockhash"), t0)
	if !s.Claim(step.Reward, "", "", t0) {
		t.Fatal("failed entries can be claimed again")
	}
	s.Settle(step.Reward, "sig", nil, t0)
	if s.Claim(step.Reward, "", "", t0) {
		t.Fatal("confirmed entries cannot be claimed")
	}
}

func TestUnconfirmedKeepsSignature(t *testing.T) {
	c, r := testCatalog(), testRules()
	r.ArrivalReward = 10
	s := NewSession("s1", "wallet", t0)
	step, err := s.Arrive(c, r, t0)
	if err != nil {
		t.Fatal(err)
	}

	if !s.Claim(step.Reward, "sig1", "hash1", t0) {
		t.Fatal("claim failed")
	}
	s.Unconfirmed(step.Reward, errors.New("deadline exceeded"), t0)
	tx := s.Transaction(step.Reward)
	if tx.Status != TxSending || tx.TxID != "sig1" || tx.Blockhash != "hash1" || tx.Attempts != 1 {
		t.Fatalf("after unknown send: %+v", tx)
	}
	if got := s.Unsettled(); len(got) != 1 {
		t.Errorf("unsettled = %v, a signed send must be looked up", got)
	}
	if s.Claim(step.Reward, "sig2", "hash2", t0) {
		t.Fatal("a signed entry must not be claimed by a new transfer")
	}

	s.Dropped(step.Reward, t0)
	if tx.Status != TxFailed || tx.TxID != "" || tx.Blockhash != "" {
		t.Fatalf("after drop: %+v", tx)
	}
	if !s.Claim(step.Reward, "sig2", "hash2", t0) {
		t.Fatal("dropped entries can be sent again")
	}

	s.Settle(step.Reward, "sig2", nil, t0)
	s.Settle(step.Reward, "", errors.New("late failure"), t0)
	s.Dropped(step.Reward, t0)
	if tx.Status != TxConfirmed || tx.TxID != "sig2" {
		t.Fatalf("confirmed entry was downgraded: %+v", tx)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0m 0s"},
		{59 * time.Second, "0m 59s"},
		{61 * time.Second, "1m 1s"},
		{2*time.Hour + 5*time.Second, "2h 0m 5s"},
		{-time.Second, "0m 0s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExpired(t *testing.T) {
	s := NewSession("s1", "", t0)
	if s.Expired(t0.Add(23*time.Hour), 24*time.Hour) {
		t.Error("expired too early")
	}
	if !s.Expired(t0.Add(25*time.Hour), 24*time.Hour) {
		t.Error("expected expiry after ttl")
	}
	if s.Expired(t0.Add(100*time.Hour), 0) {
		t.Error("zero ttl must disable expiry")
	}
	s.Stage = StageFinished
	if s.Expired(t0.Add(100*time.Hour), 24*time.Hour) {
		t.Error("finished sessions never expire")
	}
}
