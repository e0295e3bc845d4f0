package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// SessionStatus is the lifecycle state of an indexed session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusFinalized SessionStatus = "finalized"
	StatusQuit      SessionStatus = "quit"
	StatusAborted   SessionStatus = "aborted"
	// StatusImported marks rows created by reindexing existing log files.
	StatusImported SessionStatus = "imported"
)

// Session is one row of the session index. Income is stored as decimal
// text so it round-trips without float rounding.
type Session struct {
	ID         string
	Name       string
	Age        int
	Gender     string
	Income     string
	City       string
	LogFile    string
	ReportFile string
	Backend    string
	Status     SessionStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
