package profile

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseLine_Valid(t *testing.T) {
	p, err := ParseLine(" Asha , 31, 12.5, f , Pune ")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if p.Name != "Asha" {
		t.Errorf("Name = %q, want %q", p.Name, "Asha")
	}
	if p.Age != 31 {
		t.Errorf("Age = %d, want 31", p.Age)
	}
	if !p.Income.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Income = %s, want 12.5", p.Income)
	}
	if p.Gender != Female {
		t.Errorf("Gender = %q, want F", p.Gender)
	}
	if p.City != "Pune" {
		t.Errorf("City = %q, want %q", p.City, "Pune")
	}
}

func TestParseLine_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"too few fields", "Asha, 31, 12.5, F", ""},
		{"too many fields", "Asha, 31, 12.5, F, Pune, India", ""},
		{"empty line", "", ""},
		{"non-numeric age", "Asha, thirty, 12.5, F, Pune", "age"},
		{"negative age", "Asha, -1, 12.5, F, Pune", "age"},
		{"non-numeric income", "Asha, 31, lots, F, Pune", "income"},
		{"zero income", "Asha, 31, 0, F, Pune", "income"},
		{"negative income", "Asha, 31, -4, F, Pune", "income"},
		{"bad gender", "Asha, 31, 12.5, X, Pune", "gender"},
		{"empty name", " , 31, 12.5, F, Pune", "name"},
		{"empty city", "Asha, 31, 12.5, F, ", "city"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLine(tt.line)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var fe *InputFormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error type = %T, want *InputFormatError", err)
			}
			if fe.Field != tt.field {
				t.Errorf("Field = %q, want %q", fe.Field, tt.field)
			}
		})
	}
}

func TestFormatIncome(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12.5", "12.5"},
		{"10", "10.0"},
		{"12.50", "12.5"},
		{"0.75", "0.75"},
	}
	for _, tt := range tests {
		got := FormatIncome(decimal.RequireFromString(tt.in))
		if got != tt.want {
			t.Errorf("FormatIncome(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeyFilename(t *testing.T) {
	k := Key{Name: "Asha", Gender: Female, Income: decimal.RequireFromString("12.5"), City: "Pune"}
	if got, want := k.Filename(), "asha_f_12.5_pune.json"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
	if got, want := k.BaseName(), "asha_f_12.5_pune"; got != want {
		t.Errorf("BaseName() = %q, want %q", got, want)
	}
}

func TestFilenameRoundTrip(t *testing.T) {
	k := Key{Name: "Asha", Gender: Female, Income: decimal.RequireFromString("12.5"), City: "Pune"}

	got, ok := ParseFilename(k.Filename())
	if !ok {
		t.Fatalf("ParseFilename(%q) failed", k.Filename())
	}
	if got.Gender != Female {
		t.Errorf("Gender = %q, want F", got.Gender)
	}
	if !got.Income.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("Income = %s, want 12.5", got.Income)
	}
	if FormatIncome(got.Income) != "12.5" {
		t.Errorf("FormatIncome = %q, want 12.5", FormatIncome(got.Income))
	}
	if !strings.EqualFold(got.City, "Pune") {
		t.Errorf("City = %q, want Pune", got.City)
	}
	if got.Name != "asha" {
		t.Errorf("Name = %q, want asha", got.Name)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		ok     bool
		income string
		city   string
	}{
		{"plain", "ravi_m_20.0_mumbai.json", true, "20", "mumbai"},
		{"upper case", "RAVI_M_20_MUMBAI.JSON", true, "20", "mumbai"},
		{"with directory", "/tmp/logs/ravi_m_20.0_mumbai.json", true, "20", "mumbai"},
		{"trailing dot income", "ravi_m_20._mumbai.json", true, "20", "mumbai"},
		{"non-numeric income", "ravi_m_abc_mumbai.json", false, "", ""},
		{"unknown gender", "ravi_x_20.0_mumbai.json", false, "", ""},
		{"wrong extension", "ravi_m_20.0_mumbai.md", false, "", ""},
		{"underscore in city", "ravi_m_20.0_new_delhi.json", true, "20", "new_delhi"},
		{"dot in city", "ravi_m_20.0_st.louis.json", false, "", ""},
		{"underscore in name", "ravi_kumar_m_20.0_mumbai.json", false, "", ""},
		{"too few segments", "ravi_m_20.0.json", false, "", ""},
		{"unrelated", "config.json", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, ok := ParseFilename(tt.file)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v (key %+v)", ok, tt.ok, k)
			}
			if !ok {
				return
			}
			if !k.Income.Equal(decimal.RequireFromString(tt.income)) {
				t.Errorf("Income = %s, want %s", k.Income, tt.income)
			}
			if k.City != tt.city {
				t.Errorf("City = %q, want %q", k.City, tt.city)
			}
		})
	}
}

func TestParseGender(t *testing.T) {
	for _, in := range []string{"m", "M", " m "} {
		if g, err := ParseGender(in); err != nil || g != Male {
			t.Errorf("ParseGender(%q) = %q, %v", in, g, err)
		}
	}
	if _, err := ParseGender("other"); err == nil {
		t.Error("ParseGender(other) should fail")
	}
}
