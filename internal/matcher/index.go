package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/storage"
)

// SessionLister is the part of the session index used for matching.
type SessionLister interface {
	SessionsByGenderCity(gender, city string) ([]storage.Session, error)
}

// IndexSource yields indexed sessions with the requested gender and city,
// oldest first. Rows whose stored fields fail to parse are skipped, as are
// rows whose log file was never written (a session that aborted before its
// first turn) or has since been removed.
type IndexSource struct {
	Store SessionLister
}

func (s IndexSource) Candidates(ctx context.Context, gender profile.Gender, city string, yield func(Candidate) bool) error {
	sessions, err := s.Store.SessionsByGenderCity(string(gender), city)
	if err != nil {
		return fmt.Errorf("querying session index: %w", err)
	}

	for _, sess := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		income, err := decimal.NewFromString(sess.Income)
		if err != nil {
			slog.Debug("skipping indexed session", "id", sess.ID, "error", err)
			continue
		}
		g, err := profile.ParseGender(sess.Gender)
		if err != nil {
			slog.Debug("skipping indexed session", "id", sess.ID, "error", err)
			continue
		}
		if _, err := os.Stat(sess.LogFile); err != nil {
			slog.Debug("skipping indexed session without log", "id", sess.ID, "error", err)
			continue
		}
		c := Candidate{
			LogFile:   sess.LogFile,
			SessionID: sess.ID,
			Gender:    g,
			Income:    income,
			City:      sess.City,
		}
		if !yield(c) {
			return nil
		}
	}
	return nil
}
