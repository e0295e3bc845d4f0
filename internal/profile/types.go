package profile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Gender is the single-letter gender recorded in a profile.
type Gender string

const (
	Male   Gender = "M"
	Female Gender = "F"
)

// ParseGender accepts "m" or "f" in any case.
func ParseGender(s string) (Gender, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return Male, nil
	case "F":
		return Female, nil
	default:
		return "", fmt.Errorf("gender must be M or F, got %q", s)
	}
}

// Profile is the demographic and income data collected at the start of a
// session. Income is annual, in lakhs.
type Profile struct {
	Name   string
	Age    int
	Income decimal.Decimal
	Gender Gender
	City   string
}

// Key returns the four fields that identify the profile's conversation log.
func (p Profile) Key() Key {
	return Key{
		Name:   p.Name,
		Gender: p.Gender,
		Income: p.Income,
		City:   p.City,
	}
}

// Key identifies a conversation log. It is encoded into the log filename.
type Key struct {
	Name   string
	Gender Gender
	Income decimal.Decimal
	City   string
}

// FormatIncome renders income the way it appears in a filename: the shortest
// decimal form with at least one fractional digit ("12.5", "10.0").
func FormatIncome(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
