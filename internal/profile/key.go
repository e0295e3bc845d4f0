package profile

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// LogExt is the extension of conversation log files.
const LogExt = ".json"

// filenamePattern matches "{name}_{gender}_{income}_{city}.json" after
// lower-casing. Names containing '_' or cities containing '.' do not match
// and are skipped by callers.
var filenamePattern = regexp.MustCompile(`^[^_]+_([mf])_(\d+\.?\d*)_([^.]+)\.json$`)

// Filename encodes the key as a log filename. Name, gender and city are
// lower-cased; income keeps its decimal representation.
func (k Key) Filename() string {
	return strings.ToLower(k.Name) + "_" +
		strings.ToLower(string(k.Gender)) + "_" +
		FormatIncome(k.Income) + "_" +
		strings.ToLower(k.City) + LogExt
}

// BaseName is the filename without the log extension.
func (k Key) BaseName() string {
	return strings.TrimSuffix(k.Filename(), LogExt)
}

// ParseFilename decodes a log filename produced by Filename. Directory
// components are ignored and matching is case-insensitive; the returned
// name and city are lower-case. ok is false for anything that does not
// match the encoding.
func ParseFilename(name string) (Key, bool) {
	base := strings.ToLower(filepath.Base(name))
	m := filenamePattern.FindStringSubmatch(base)
	if m == nil {
		return Key{}, false
	}
	income, err := decimal.NewFromString(strings.TrimSuffix(m[2], "."))
	if err != nil {
		return Key{}, false
	}
	gender, err := ParseGender(m[1])
	if err != nil {
		return Key{}, false
	}
	return Key{
		Name:   base[:strings.IndexByte(base, '_')],
		Gender: gender,
		Income: income,
		City:   m[3],
	}, true
}
