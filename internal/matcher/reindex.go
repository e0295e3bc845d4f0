package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/storage"
)

// Indexer is the part of the session index written by Reindex.
type Indexer interface {
	HasLogFile(logFile string) (bool, error)
	SaveSession(sess storage.Session) error
}

// Reindex adds a session row for every log file in dir that decodes as a
// profile key and is not indexed yet. Imported rows take the file's
// modification time as their creation time. It returns the number of rows
// added.
func Reindex(ctx context.Context, dir string, idx Indexer) (int, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading log directory: %w", err)
	}

	added := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		if e.IsDir() {
			continue
		}
		key, ok := profile.ParseFilename(e.Name())
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		exists, err := idx.HasLogFile(path)
		if err != nil {
			return added, fmt.Errorf("checking index for %s: %w", path, err)
		}
		if exists {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return added, fmt.Errorf("stat %s: %w", path, err)
		}

		sess := storage.Session{
			ID:        uuid.New().String(),
			Name:      key.Name,
			Gender:    string(key.Gender),
			Income:    key.Income.String(),
			City:      key.City,
			LogFile:   path,
			Status:    storage.StatusImported,
			CreatedAt: info.ModTime(),
			UpdatedAt: info.ModTime(),
		}
		if err := idx.SaveSession(sess); err != nil {
			return added, err
		}
		slog.Debug("indexed log file", "path", path, "id", sess.ID)
		added++
	}
	return added, nil
}
