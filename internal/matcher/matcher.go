// Package matcher finds a previously logged session whose profile is close
// to a new one.
package matcher

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kalambet/finplan/internal/profile"
)

// DefaultTolerance is the fraction of the stored income within which two
// incomes are considered equal.
var DefaultTolerance = decimal.RequireFromString("0.20")

// Candidate is a prior session offered by a Source.
type Candidate struct {
	// LogFile is the path of the candidate's conversation log.
	LogFile string
	// SessionID is set when the candidate came from the session index.
	SessionID string
	Gender    profile.Gender
	Income    decimal.Decimal
	City      string
}

// Source enumerates candidates. Implementations call yield for each
// candidate in their own order and stop as soon as yield returns false.
type Source interface {
	Candidates(ctx context.Context, gender profile.Gender, city string, yield func(Candidate) bool) error
}

// Matcher applies the tolerance rule to the candidates of a Source.
type Matcher struct {
	src       Source
	tolerance decimal.Decimal
}

// New creates a Matcher. A zero or negative tolerance selects
// DefaultTolerance.
func New(src Source, tolerance decimal.Decimal) *Matcher {
	if !tolerance.IsPositive() {
		tolerance = DefaultTolerance
	}
	return &Matcher{src: src, tolerance: tolerance}
}

// FindMatch returns the first candidate, in source order, that matches
// gender and city ignoring case and whose stored income lies within
// tolerance of income. ok is false when nothing matches.
func (m *Matcher) FindMatch(ctx context.Context, income decimal.Decimal, gender profile.Gender, city string) (Candidate, bool, error) {
	var found Candidate
	var ok bool
	err := m.src.Candidates(ctx, gender, city, func(c Candidate) bool {
		if Matches(income, gender, city, c, m.tolerance) {
			found, ok = c, true
			return false
		}
		return true
	})
	if err != nil {
		return Candidate{}, false, err
	}
	return found, ok, nil
}

// Matches reports whether c satisfies the match criteria. The tolerance
// window is relative to the candidate's stored income, so a stored income
// of zero only matches an income of exactly zero.
func Matches(income decimal.Decimal, gender profile.Gender, city string, c Candidate, tolerance decimal.Decimal) bool {
	if !strings.EqualFold(string(gender), string(c.Gender)) {
		return false
	}
	if !strings.EqualFold(city, c.City) {
		return false
	}
	diff := income.Sub(c.Income).Abs()
	return diff.LessThanOrEqual(tolerance.Mul(c.Income))
}
