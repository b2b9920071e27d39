package hunt

import (
	"fmt"
	"strings"
	"time"
)

// WelcomeMessage greets a new session and explains the scoring.
func WelcomeMessage(c *Catalog, r Rules) string {
	first := c.Locations[0]
	return fmt.Sprintf("Welcome! First stop: %s. Tap 'ARRIVED' when you get there.\n\n"+
		"Token rewards:\n"+
		"- Arriving at a location: +%d tokens\n"+
		"- Correct puzzle answers: +%d tokens\n"+
		"- Using a hint: -%d tokens",
		first.Name, r.arrivalReward(first), r.answerReward(first), r.hintPenalty(first))
}

func arrivedMessage(loc Location, amount, balance int) string {
	msg := fmt.Sprintf("Now, solve the puzzle at %s. Tap 'HINT' if you need assistance or listen to the audio for clues.", loc.Name)
	if amount > 0 {
		msg += fmt.Sprintf("\n\nYou earned %d tokens for arriving! Current balance: %d tokens.", amount, balance)
	}
	return msg
}

func solvedMessage(next *Location, amount, balance int) string {
	var msg string
	if next == nil {
		msg = "Correct! You've completed all locations! Please upload a selfie to finish the hunt."
	} else {
		msg = fmt.Sprintf("Correct! Next, head to %s. When you arrive, tap 'ARRIVED'.", next.Name)
	}
	if amount > 0 {
		msg += fmt.Sprintf("\n\nYou earned %d tokens for your correct answer! Current balance: %d tokens.", amount, balance)
	}
	return msg
}

func revealedMessage(answer string, next *Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The answer was %s. ", answer)
	if next == nil {
		b.WriteString("You've completed the hunt! To finish up, please upload a selfie at this final location.")
	} else {
		fmt.Fprintf(&b, "Next, head to %s. When you arrive, tap 'ARRIVED'.", next.Name)
	}
	b.WriteString("\n\nNo tokens were awarded for this puzzle as you ran out of attempts.")
	return b.String()
}

// retryMessage is shown after a wrong answer. remaining is negative when
// attempts are unlimited.
func retryMessage(remaining int) string {
	switch {
	case remaining < 0:
		return "That's not correct. Try again!"
	case remaining == 1:
		return "Almost there, but not quite. This is your last chance. If you need a hint, tap 'HINT'."
	case remaining == 2:
		return fmt.Sprintf("Hmm, that's not it. Think it through, and try again. You have %d attempts left.", remaining)
	default:
		return fmt.Sprintf("That's not correct. Try again! You have %d attempts left.", remaining)
	}
}

func hintMessage(hint string, left, spent, balance int) string {
	plural := "s"
	if left == 1 {
		plural = ""
	}
	return fmt.Sprintf("Hint: %s (%d hint%s remaining)\n\nYou spent %d tokens for this hint. Current balance: %d tokens.",
		hint, left, plural, spent, balance)
}

func finishedMessage(finishTime string, balance int) string {
	return fmt.Sprintf("Congratulations! Finish time: %s!\n\n"+
		"You've successfully completed all the puzzles in the hunt!\n\n"+
		"Your final token balance: %d tokens.\n\n"+
		"Your completion certificate is ready to download. Thank you for playing!",
		finishTime, balance)
}

// Help returns guidance for the session's current stage.
func (s *Session) Help(c *Catalog, r Rules) string {
	switch s.Stage {
	case StageAwaitingArrival:
		loc, _ := c.At(s.LocationIndex)
		return fmt.Sprintf("You're currently heading to %s. When you arrive, tap 'ARRIVED' to confirm.\n\nCurrent token balance: %d tokens.",
			loc.Name, s.TokensEarned)
	case StageAwaitingPuzzle:
		loc, _ := c.At(s.LocationIndex)
		attempts := "unlimited"
		if r.MaxAttempts > 0 {
			attempts = fmt.Sprint(r.MaxAttempts - s.Attempts)
		}
		return fmt.Sprintf("You're at %s solving a puzzle. Tap 'HINT' for a hint (costs %d tokens). You have %s attempts left.\n\nCurrent token balance: %d tokens.",
			loc.Name, r.hintPenalty(loc), attempts, s.TokensEarned)
	case StageCompleted:
		return fmt.Sprintf("You've completed all locations! Please upload a selfie at the final location to receive your certificate.\n\nCurrent token balance: %d tokens.",
			s.TokensEarned)
	case StageFinished:
		finish := FormatDuration(s.Elapsed(s.UpdatedAt))
		if s.Certificate != nil {
			finish = s.Certificate.FinishTime
		}
		return fmt.Sprintf("You've finished the hunt in %s with %d tokens. Start a new hunt to play again.",
			finish, s.TokensEarned)
	}
	return "Something went wrong. Start a new hunt to begin again."
}

// Progress summarises how far the session has come.
func (s *Session) Progress(c *Catalog) string {
	current := "-"
	if loc, ok := c.At(s.LocationIndex); ok {
		current = loc.Name
	}
	return fmt.Sprintf("Progress summary:\n- Locations completed: %d/%d\n- Current location: %s\n- Token balance: %d tokens",
		len(s.CompletedLocations), c.Len(), current, s.TokensEarned)
}

// FormatDuration renders a finish time as "1h 2m 3s", dropping the hours
// when there are none.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	h, rem := total/3600, total%3600
	m, sec := rem/60, rem%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, sec)
	}
	return fmt.Sprintf("%dm %ds", m, sec)
}
