// Package convlog persists query/response pairs as one JSON array per
// profile key.
package convlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/kalambet/finplan/internal/profile"
)

var (
	// ErrLogMissing is returned by Load when no log exists for the key.
	ErrLogMissing = errors.New("conversation log not found")
	// ErrLogCorrupt is returned by Load when the log is not a JSON array.
	ErrLogCorrupt = errors.New("conversation log is corrupt")
)

// Record is one turn of a conversation.
type Record struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// Store reads and appends conversation logs under a single directory.
// Every Append rewrites the whole file; a per-file mutex keeps concurrent
// callers in this process from interleaving their read-modify-write.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*pathLock
}

// pathLock is held in Store.locks only while some caller uses the path.
type pathLock struct {
	mu   sync.Mutex
	refs int
}

// NewStore creates a Store rooted at dir. The directory is created on the
// first Append if it does not exist.
func NewStore(dir string) *Store {
	return &Store{dir: dir, locks: make(map[string]*pathLock)}
}

// Dir returns the directory holding the log files.
func (s *Store) Dir() string { return s.dir }

// Path returns the log file path for key.
func (s *Store) Path(key profile.Key) string {
	return filepath.Join(s.dir, key.Filename())
}

// Append adds a record to the log for key. An existing log that fails to
// parse is replaced rather than treated as an error.
func (s *Store) Append(key profile.Key, query, response string) error {
	return s.AppendFile(key.Filename(), query, response)
}

// AppendFile is Append addressed by log filename.
func (s *Store) AppendFile(name, query, response string) error {
	path := s.resolve(name)
	unlock := s.lock(path)
	defer unlock()

	records, err := readRecords(path)
	switch {
	case errors.Is(err, ErrLogMissing):
		records = nil
	case errors.Is(err, ErrLogCorrupt):
		slog.Warn("discarding corrupt conversation log", "path", path, "error", err)
		records = nil
	case err != nil:
		return err
	}

	records = append(records, Record{Query: query, Response: response})

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	data, err := encodeRecords(records)
	if err != nil {
		return fmt.Errorf("encoding conversation log: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing conversation log: %w", err)
	}

	slog.Debug("conversation logged", "path", path, "records", len(records))
	return nil
}

// Load returns every record in the log for key, in append order.
func (s *Store) Load(key profile.Key) ([]Record, error) {
	return s.LoadFile(key.Filename())
}

// LoadFile is Load addressed by log filename. name may be a bare filename
// (resolved against the store directory) or a path.
func (s *Store) LoadFile(name string) ([]Record, error) {
	path := s.resolve(name)
	unlock := s.lock(path)
	defer unlock()

	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

func (s *Store) resolve(name string) string {
	if filepath.IsAbs(name) || filepath.Dir(name) != "." {
		return name
	}
	return filepath.Join(s.dir, name)
}

func (s *Store) lock(path string) func() {
	s.mu.Lock()
	l, ok := s.locks[path]
	if !ok {
		l = &pathLock{}
		s.locks[path] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, path)
		}
		s.mu.Unlock()
	}
}

// readRecords returns ErrLogMissing for an absent file, an empty slice for
// an empty file and a wrapped ErrLogCorrupt for anything unparseable.
func readRecords(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrLogMissing
	}
	if err != nil {
		return nil, fmt.Errorf("reading conversation log: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLogCorrupt, path, err)
	}
	return records, nil
}

func encodeRecords(records []Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
