package completion

import "testing"

func TestKeyword(t *testing.T) {
	tests := []struct {
		response string
		want     bool
	}{
		{"Here is a draft", false},
		{"Here is your final plan", true},
		{"FINAL ROADMAP for Q1", true},
		{"This is the final answer", false},
		{"Let me plan the roadmap", false},
		{"", false},
		{"Your plan is finalised", true},
	}
	for _, tt := range tests {
		if got := (Keyword{}).IsFinal(tt.response); got != tt.want {
			t.Errorf("IsFinal(%q) = %v, want %v", tt.response, got, tt.want)
		}
	}
}

func TestMarker(t *testing.T) {
	d := MarkerDetector{}
	if d.IsFinal("Here is your final plan") {
		t.Error("keyword text must not trigger marker mode")
	}
	if !d.IsFinal("Plan body\n" + Marker) {
		t.Error("marker not detected")
	}
}

func TestStrip(t *testing.T) {
	if got := Strip("Body text\n\n" + Marker + "\n"); got != "Body text" {
		t.Errorf("Strip = %q", got)
	}
}

func TestNew(t *testing.T) {
	if d, err := New(""); err != nil || d != (Keyword{}) {
		t.Errorf("New(\"\") = %v, %v", d, err)
	}
	if d, err := New("MARKER"); err != nil || d != (MarkerDetector{}) {
		t.Errorf("New(MARKER) = %v, %v", d, err)
	}
	if _, err := New("vibes"); err == nil {
		t.Error("unknown mode accepted")
	}
}
