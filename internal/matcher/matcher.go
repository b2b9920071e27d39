// Package matcher decides whether a player's answer solves a puzzle.
package matcher

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/traveltrackie/superteam-ireland/internal/hunt"
)

// DefaultThreshold is the similarity ratio above which a typo still counts.
const DefaultThreshold = 0.85

// Matcher judges an answer against a puzzle.
type Matcher interface {
	Match(ctx context.Context, answer string, p hunt.Puzzle) bool
}

// Judge is a last-resort semantic check, typically backed by a language
// model.
type Judge interface {
	Judge(ctx context.Context, question, answer string, accepted []string) (bool, error)
}

// Tiered tries progressively looser checks: exact match after
// normalization, whole-word containment, edit-distance similarity and
// finally the optional Judge. Judge failures count as a mismatch.
type Tiered struct {
	threshold float64
	judge     Judge
	logger    *slog.Logger
}

// New returns a Tiered matcher. judge may be nil.
func New(threshold float64, judge Judge, logger *slog.Logger) *Tiered {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Tiered{threshold: threshold, judge: judge, logger: logger}
}

func (m *Tiered) Match(ctx context.Context, answer string, p hunt.Puzzle) bool {
	input := Normalize(answer)
	if input == "" {
		return false
	}

	accepted := make([]string, 0, len(p.Answers))
	for _, a := range p.Answers {
		if n := Normalize(a); n != "" {
			accepted = append(accepted, n)
		}
	}

	for _, a := range accepted {
		if input == a {
			return true
		}
	}
	for _, a := range accepted {
		if containsWords(input, a) || (utf8.RuneCountInString(input) > 3 && containsWords(a, input)) {
			return true
		}
	}
	for _, a := range accepted {
		if Similarity(input, a) > m.threshold {
			return true
		}
	}

	if m.judge == nil {
		return false
	}
	ok, err := m.judge.Judge(ctx, p.Question, answer, p.Answers)
	if err != nil {
		m.logger.Warn("answer judge failed", "error", err)
		return false
	}
	m.logger.Debug("answer judged", "answer", answer, "correct", ok)
	return ok
}

// Normalize folds an answer for comparison: accents stripped, lower case,
// punctuation dropped and whitespace collapsed.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	fields := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	return strings.Join(fields, " ")
}

// Similarity is 1 minus the edit distance over the longer length.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// containsWords reports whether needle appears in haystack on word
// boundaries. Both are already normalized.
func containsWords(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
