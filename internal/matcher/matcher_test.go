package matcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kalambet/finplan/internal/profile"
	"github.com/kalambet/finplan/internal/storage"
)

// sliceSource yields a fixed list of candidates in order.
type sliceSource struct {
	cands  []Candidate
	err    error
	visits int
}

func (s *sliceSource) Candidates(_ context.Context, _ profile.Gender, _ string, yield func(Candidate) bool) error {
	if s.err != nil {
		return s.err
	}
	for _, c := range s.cands {
		s.visits++
		if !yield(c) {
			return nil
		}
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func cand(file, gender, income, city string) Candidate {
	return Candidate{LogFile: file, Gender: profile.Gender(gender), Income: dec(income), City: city}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name   string
		income string
		gender profile.Gender
		city   string
		c      Candidate
		want   bool
	}{
		{"within 20 percent of stored", "100", profile.Male, "Pune", cand("a", "M", "85", "Pune"), true},
		{"outside 20 percent of stored", "100", profile.Male, "Pune", cand("a", "M", "79", "Pune"), false},
		{"exact boundary", "120", profile.Male, "Pune", cand("a", "M", "100", "Pune"), true},
		{"just past boundary", "120.01", profile.Male, "Pune", cand("a", "M", "100", "Pune"), false},
		{"below stored", "80", profile.Male, "Pune", cand("a", "M", "100", "Pune"), true},
		{"city case-insensitive", "10", profile.Female, "pune", cand("a", "F", "10", "PUNE"), true},
		{"gender case-insensitive", "10", profile.Gender("f"), "Pune", cand("a", "F", "10", "Pune"), true},
		{"different gender", "10", profile.Male, "Pune", cand("a", "F", "10", "Pune"), false},
		{"different city", "10", profile.Female, "Mumbai", cand("a", "F", "10", "Pune"), false},
		{"zero stored, zero income", "0", profile.Male, "Pune", cand("a", "M", "0", "Pune"), true},
		{"zero stored, nonzero income", "0.01", profile.Male, "Pune", cand("a", "M", "0", "Pune"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(dec(tt.income), tt.gender, tt.city, tt.c, DefaultTolerance)
			if got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindMatch_FirstMatchWins(t *testing.T) {
	src := &sliceSource{cands: []Candidate{
		cand("mumbai.json", "M", "100", "Mumbai"),
		cand("first.json", "M", "95", "Pune"),
		cand("second.json", "M", "100", "Pune"),
	}}
	m := New(src, decimal.Zero)

	got, ok, err := m.FindMatch(context.Background(), dec("100"), profile.Male, "pune")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if !ok {
		t.Fatal("expected a match")
	}
	if got.LogFile != "first.json" {
		t.Errorf("LogFile = %q, want first.json", got.LogFile)
	}
	if src.visits != 2 {
		t.Errorf("visited %d candidates, want iteration to stop at 2", src.visits)
	}
}

func TestFindMatch_NoMatch(t *testing.T) {
	src := &sliceSource{cands: []Candidate{cand("a.json", "M", "79", "Pune")}}
	_, ok, err := New(src, decimal.Zero).FindMatch(context.Background(), dec("100"), profile.Male, "Pune")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if ok {
		t.Error("expected no match")
	}
}

func TestFindMatch_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, _, err := New(&sliceSource{err: boom}, decimal.Zero).FindMatch(context.Background(), dec("1"), profile.Male, "x")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestFindMatch_CustomTolerance(t *testing.T) {
	src := &sliceSource{cands: []Candidate{cand("a.json", "M", "100", "Pune")}}
	m := New(src, dec("0.05"))

	if _, ok, _ := m.FindMatch(context.Background(), dec("106"), profile.Male, "Pune"); ok {
		t.Error("106 vs 100 should not match at 5%")
	}
	if _, ok, _ := m.FindMatch(context.Background(), dec("105"), profile.Male, "Pune"); !ok {
		t.Error("105 vs 100 should match at 5%")
	}
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ravi_m_85.0_pune.json")
	touch(t, dir, "ravi_m_abc_pune.json")
	touch(t, dir, "notes.txt")
	touch(t, dir, "config.json")
	if err := os.Mkdir(filepath.Join(dir, "meera_f_10.0_pune.json"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := New(DirSource{Dir: dir}, decimal.Zero)

	got, ok, err := m.FindMatch(context.Background(), dec("100"), profile.Male, "PUNE")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if !ok {
		t.Fatal("expected match against ravi_m_85.0_pune.json")
	}
	if got.LogFile != filepath.Join(dir, "ravi_m_85.0_pune.json") {
		t.Errorf("LogFile = %q", got.LogFile)
	}

	if _, ok, _ := m.FindMatch(context.Background(), dec("10"), profile.Female, "Pune"); ok {
		t.Error("directories must not be matched")
	}
}

func TestDirSource_MissingDirectory(t *testing.T) {
	m := New(DirSource{Dir: filepath.Join(t.TempDir(), "absent")}, decimal.Zero)
	_, ok, err := m.FindMatch(context.Background(), dec("10"), profile.Male, "Pune")
	if err != nil || ok {
		t.Errorf("FindMatch on missing dir = %v, %v; want no match and no error", ok, err)
	}
}

func openIndex(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIndexSource(t *testing.T) {
	dir := t.TempDir()
	s := openIndex(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []storage.Session{
		{ID: "newer", Name: "a", Gender: "M", Income: "90", City: "Pune", LogFile: "newer.json", CreatedAt: base.Add(time.Hour)},
		{ID: "older", Name: "b", Gender: "M", Income: "110", City: "pune", LogFile: "older.json", CreatedAt: base},
		{ID: "bad", Name: "c", Gender: "M", Income: "n/a", City: "Pune", LogFile: "bad.json", CreatedAt: base.Add(-time.Hour)},
	}
	for _, r := range rows {
		touch(t, dir, r.LogFile)
		r.LogFile = filepath.Join(dir, r.LogFile)
		if err := s.SaveSession(r); err != nil {
			t.Fatal(err)
		}
	}

	got, ok, err := New(IndexSource{Store: s}, decimal.Zero).FindMatch(context.Background(), dec("100"), profile.Male, "PUNE")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if !ok {
		t.Fatal("expected match")
	}
	if got.SessionID != "older" || got.LogFile != filepath.Join(dir, "older.json") {
		t.Errorf("got %+v, want the older session", got)
	}
}

func TestIndexSource_NameWithUnderscore(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ravi_kumar_m_20.0_new_delhi.json")
	s := openIndex(t)
	if err := s.SaveSession(storage.Session{
		ID: "u", Name: "ravi_kumar", Gender: "M", Income: "20", City: "New_Delhi", LogFile: filepath.Join(dir, "ravi_kumar_m_20.0_new_delhi.json"),
	}); err != nil {
		t.Fatal(err)
	}
	_, ok, err := New(IndexSource{Store: s}, decimal.Zero).FindMatch(context.Background(), dec("21"), profile.Male, "new_delhi")
	if err != nil || !ok {
		t.Errorf("FindMatch = %v, %v; want match through the index", ok, err)
	}
}

func TestIndexSource_SkipsSessionsWithoutLog(t *testing.T) {
	dir := t.TempDir()
	s := openIndex(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// The older session aborted before its first turn, so its log was
	// never written.
	if err := s.SaveSession(storage.Session{
		ID: "aborted", Name: "asha", Gender: "F", Income: "95", City: "Pune",
		LogFile: filepath.Join(dir, "asha_f_95.0_pune.json"), Status: storage.StatusAborted, CreatedAt: base,
	}); err != nil {
		t.Fatal(err)
	}
	touch(t, dir, "ravi_f_100.0_pune.json")
	if _, err := Reindex(context.Background(), dir, s); err != nil {
		t.Fatalf("Reindex: %v", err)
	}

	got, ok, err := New(IndexSource{Store: s}, decimal.Zero).FindMatch(context.Background(), dec("98"), profile.Female, "Pune")
	if err != nil {
		t.Fatalf("FindMatch: %v", err)
	}
	if !ok {
		t.Fatal("expected the session with a log to match")
	}
	if got.LogFile != filepath.Join(dir, "ravi_f_100.0_pune.json") {
		t.Errorf("LogFile = %q, want ravi's log", got.LogFile)
	}
}

func TestReindex(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "ravi_m_85.0_pune.json")
	touch(t, dir, "asha_f_12.5_mumbai.json")
	touch(t, dir, "garbage.json")

	s := openIndex(t)
	n, err := Reindex(context.Background(), dir, s)
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 2 {
		t.Errorf("added = %d, want 2", n)
	}

	n, err = Reindex(context.Background(), dir, s)
	if err != nil {
		t.Fatalf("second Reindex: %v", err)
	}
	if n != 0 {
		t.Errorf("second run added = %d, want 0", n)
	}

	got, ok, err := New(IndexSource{Store: s}, decimal.Zero).FindMatch(context.Background(), dec("100"), profile.Male, "Pune")
	if err != nil || !ok {
		t.Fatalf("FindMatch after reindex = %v, %v", ok, err)
	}
	if got.LogFile != filepath.Join(dir, "ravi_m_85.0_pune.json") {
		t.Errorf("LogFile = %q", got.LogFile)
	}
	sess, err := s.GetSession(got.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != storage.StatusImported {
		t.Errorf("Status = %q, want imported", sess.Status)
	}
}
