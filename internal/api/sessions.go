package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kalambet/finplan/internal/convlog"
	"github.com/kalambet/finplan/internal/matcher"
	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/storage"
)

// AppDeps holds what the read-only session API needs.
type AppDeps struct {
	Store   *storage.Store
	Logs    *convlog.Store
	Matcher *matcher.Matcher
	Token   string
}

// NewAppHandler returns the HTTP API over the session index and the
// conversation logs. Everything except /health requires the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/sessions", handleListSessions(deps))
		r.Get("/sessions/{id}", handleGetSession(deps))
		r.Get("/sessions/{id}/log", handleGetSessionLog(deps))
		r.Get("/match", handleMatch(deps))
	})

	return r
}

// SessionView is the JSON shape of a session index row.
type SessionView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Income     string `json:"income"`
	City       string `json:"city"`
	LogFile    string `json:"log_file"`
	ReportFile string `json:"report_file,omitempty"`
	Backend    string `json:"backend,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toSessionView(s storage.Session) SessionView {
	return SessionView{
		ID:         s.ID,
		Name:       s.Name,
		Age:        s.Age,
		Gender:     s.Gender,
		Income:     s.Income,
		City:       s.City,
		LogFile:    s.LogFile,
		ReportFile: s.ReportFile,
		Backend:    s.Backend,
		Status:     string(s.Status),
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// MatchView is the result of a similar-profile lookup.
type MatchView struct {
	Found     bool   `json:"found"`
	LogFile   string `json:"log_file,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Income    string `json:"income,omitempty"`
	Gender    string `json:"gender,omitempty"`
	City      string `json:"city,omitempty"`
}

func toMatchView(c matcher.Candidate, ok bool) MatchView {
	if !ok {
		return MatchView{}
	}
	return MatchView{
		Found:     true,
		LogFile:   filepath.Base(c.LogFile),
		SessionID: c.SessionID,
		Income:    profile.FormatIncome(c.Income),
		Gender:    string(c.Gender),
		City:      c.City,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListSessions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		sessions, err := deps.Store.ListSessions(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sessions: %v", err)
			return
		}

		views := make([]SessionView, 0, len(sessions))
		for _, s := range sessions {
			views = append(views, toSessionView(s))
		}
		writeJSON(w, views)
	}
}

func handleGetSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, deps, chi.URLParam(r, "id"))
		if !ok {
			return
		}
		writeJSON(w, toSessionView(sess))
	}
}

func handleGetSessionLog(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, deps, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		records, err := deps.Logs.LoadFile(sess.LogFile)
		switch {
		case errors.Is(err, convlog.ErrLogMissing):
			httpError(w, http.StatusNotFound, "not_found", "conversation log not found")
			return
		case errors.Is(err, convlog.ErrLogCorrupt):
			httpError(w, http.StatusUnprocessableEntity, "corrupt_log", "%v", err)
			return
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read conversation log: %v", err)
			return
		}
		writeJSON(w, records)
	}
}

func handleMatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		income, err := decimal.NewFromString(q.Get("income"))
		if err != nil || !income.IsPositive() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "income must be a positive number")
			return
		}
		gender, err := profile.ParseGender(q.Get("gender"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "gender must be M or F")
			return
		}
		city := q.Get("city")
		if city == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "city is required")
			return
		}

		c, ok, err := deps.Matcher.FindMatch(r.Context(), income, gender, city)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to search sessions: %v", err)
			return
		}
		writeJSON(w, toMatchView(c, ok))
	}
}

func lookupSession(w http.ResponseWriter, deps AppDeps, id string) (storage.Session, bool) {
	sess, err := deps.Store.GetSession(id)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "session not found")
		return storage.Session{}, false
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to get session: %v", err)
		return storage.Session{}, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
