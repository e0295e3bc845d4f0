package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"asha_f_12.5_pune.json", "Asha"},
		{"/var/logs/RAVI_m_20.0_mumbai.json", "Ravi"},
		{"mcDonald_m_20.0_x.json", "Mcdonald"},
		{"_f_1.0_x.json", "User"},
		{"solo.json", "Solo"},
		{"élodie_f_9.0_paris.json", "Élodie"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.file); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.file, got, tt.want)
		}
	}
}

func TestRender_DisclaimerAtBothEnds(t *testing.T) {
	doc := Render("Asha", "Quarter 1: start a SIP.")

	lines := strings.Split(doc, "\n")
	if lines[0] != "Asha" {
		t.Errorf("first line = %q, want Asha", lines[0])
	}
	wantQuote := "> " + Disclaimer
	if lines[2] != wantQuote {
		t.Errorf("opening disclaimer = %q", lines[2])
	}
	if lines[len(lines)-1] != wantQuote {
		t.Errorf("closing disclaimer = %q", lines[len(lines)-1])
	}
	if strings.Count(doc, Disclaimer) != 2 {
		t.Errorf("disclaimer appears %d times, want 2", strings.Count(doc, Disclaimer))
	}

	want := "Asha\n\n" + wantQuote + "\n\nQuarter 1: start a SIP.\n\n" + wantQuote
	if doc != want {
		t.Errorf("Render =\n%q\nwant\n%q", doc, want)
	}
}

func TestDisclaimerVerbatim(t *testing.T) {
	const want = "I’m just an AI assistant providing educational guidance; this is a prediction for an ideal-case scenario, investments carry risks, and you should consult a licensed financial advisor before acting."
	if Disclaimer != want {
		t.Errorf("Disclaimer changed: %q", Disclaimer)
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "asha_f_12.5_pune.json")

	paths, err := Write(logFile, "Your final plan\n\n| Q | Amount |\n|---|---|\n| Q1 | 10k |", true)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if paths.Markdown != filepath.Join(dir, "asha_f_12.5_pune.md") {
		t.Errorf("Markdown path = %q", paths.Markdown)
	}
	if paths.HTML != filepath.Join(dir, "asha_f_12.5_pune.html") {
		t.Errorf("HTML path = %q", paths.HTML)
	}

	md, err := os.ReadFile(paths.Markdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(md), "Asha\n\n> "+Disclaimer) {
		t.Errorf("markdown starts with %q", string(md)[:40])
	}
	if !strings.HasSuffix(string(md), "> "+Disclaimer) {
		t.Error("markdown does not end with the disclaimer")
	}

	page, err := os.ReadFile(paths.HTML)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<blockquote>", "<table>", "<title>Asha - financial plan</title>"} {
		if !strings.Contains(string(page), want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestWrite_MarkdownOnly(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(filepath.Join(dir, "ravi_m_20.0_mumbai.json"), "plan", false)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if paths.HTML != "" {
		t.Errorf("HTML path = %q, want empty", paths.HTML)
	}
	if _, err := os.Stat(filepath.Join(dir, "ravi_m_20.0_mumbai.html")); !os.IsNotExist(err) {
		t.Error("HTML file written although not requested")
	}
}
