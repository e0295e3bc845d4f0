package profile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// fieldCount is the number of comma-separated fields in a profile line:
// name, age, income, gender, city.
const fieldCount = 5

// InputFormatError reports a malformed profile line.
type InputFormatError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InputFormatError) Error() string {
	if e.Field == "" {
		return "invalid profile input: " + e.Reason
	}
	return fmt.Sprintf("invalid profile input: %s %q: %s", e.Field, e.Value, e.Reason)
}

// ParseLine parses "Name, Age, Income, Gender, City". Fields are trimmed.
// Any deviation returns an *InputFormatError.
func ParseLine(line string) (Profile, error) {
	parts := strings.Split(line, ",")
	if len(parts) != fieldCount {
		return Profile{}, &InputFormatError{
			Reason: fmt.Sprintf("expected %d comma-separated fields, got %d", fieldCount, len(parts)),
		}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	name, ageStr, incomeStr, genderStr, city := parts[0], parts[1], parts[2], parts[3], parts[4]

	if name == "" {
		return Profile{}, &InputFormatError{Field: "name", Reason: "must not be empty"}
	}

	age, err := strconv.Atoi(ageStr)
	if err != nil || age < 0 {
		return Profile{}, &InputFormatError{Field: "age", Value: ageStr, Reason: "must be a non-negative whole number"}
	}

	income, err := decimal.NewFromString(incomeStr)
	if err != nil || !income.IsPositive() {
		return Profile{}, &InputFormatError{Field: "income", Value: incomeStr, Reason: "must be a positive number (lakhs)"}
	}

	gender, err := ParseGender(genderStr)
	if err != nil {
		return Profile{}, &InputFormatError{Field: "gender", Value: genderStr, Reason: "must be M or F"}
	}

	if city == "" {
		return Profile{}, &InputFormatError{Field: "city", Reason: "must not be empty"}
	}

	return Profile{
		Name:   name,
		Age:    age,
		Income: income,
		Gender: gender,
		City:   city,
	}, nil
}
