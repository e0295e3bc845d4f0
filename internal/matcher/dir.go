package matcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kalambet/finplan/internal/profile"
)

// DirSource yields the conversation logs found in a single directory. Entries
// are visited in the order the filesystem returns them, which is not sorted
// and may differ between platforms. Filenames that do not decode as a
// profile key are skipped.
type DirSource struct {
	Dir string
}

func (d DirSource) Candidates(ctx context.Context, _ profile.Gender, _ string, yield func(Candidate) bool) error {
	f, err := os.Open(d.Dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("opening log directory: %w", err)
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return fmt.Errorf("reading log directory: %w", err)
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.IsDir() {
			continue
		}
		key, ok := profile.ParseFilename(e.Name())
		if !ok {
			continue
		}
		c := Candidate{
			LogFile: filepath.Join(d.Dir, e.Name()),
			Gender:  key.Gender,
			Income:  key.Income,
			City:    key.City,
		}
		if !yield(c) {
			return nil
		}
	}
	return nil
}
