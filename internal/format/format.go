// Package format implements the one-letter value transforms used by template
// rules.
package format

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ryabkov82/template-merger/internal/table"
)

// Lookup is the dictionary code. It is applied by the engine after the
// chain, never by Apply.
const Lookup byte = 'k'

// Code describes one format code for help output.
type Code struct {
	Code  string
	Label string
}

var catalogue = []Code{
	{"0", "BLANK/EMPTY"},
	{"a", "DATE_DD-MM-YYYY"},
	{"b", "TIME_HH:MM"},
	{"c", "TIME_HH:MM:SS"},
	{"d", "LAST_10_DIGITS"},
	{"e", "ADD_+91"},
	{"f", "UPPER"},
	{"g", "LOWER"},
	{"h", "TITLE"},
	{"i", "INTEGER"},
	{"j", "TRIM_DASH"},
	{"u", "TRIM_UNDERSCORE"},
	{"x", "TRIM_DOT"},
	{"k", "DICT_LOOKUP"},
}

// Codes returns the format code catalogue in display order.
func Codes() []Code {
	out := make([]Code, len(catalogue))
	copy(out, catalogue)
	return out
}

// IsFormat reports whether token is a format code (the blank marker "0" is
// not one).
func IsFormat(token string) bool {
	if len(token) != 1 {
		return false
	}
	switch token[0] {
	case 'a', 'b', 'c', 'd', 'e', 'f', 'g', 'h', 'i', 'j', 'u', 'x', 'k':
		return true
	}
	return false
}

// Alignment values carried on output columns.
const (
	AlignLeft   = "left"
	AlignRight  = "right"
	AlignCenter = "center"
)

// IsAlign reports whether token is an alignment code.
func IsAlign(token string) bool { return token == "l" || token == "r" }

// AlignName maps an alignment code to its presentation value.
func AlignName(token string) string {
	switch token {
	case "l":
		return AlignLeft
	case "r":
		return AlignRight
	}
	return AlignCenter
}

// Fault is returned when a code cannot produce a value for a cell.
type Fault struct {
	Code  byte
	Input string
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("format %q on %q: %v", f.Code, f.Input, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

var (
	upper = cases.Upper(language.Und)
	lower = cases.Lower(language.Und)
)

var errNotInteger = errors.New("not an integer")

// Apply runs a single code. now is shared by every cell of a run so that
// date and time codes are identical across rows. Unknown codes return v
// unchanged.
func Apply(code byte, v table.Value, now time.Time) (table.Value, error) {
	s := v.String()

	switch code {
	case 'a':
		return table.TextValue(now.Format("02-01-2006")), nil
	case 'b':
		return table.TextValue(now.Format("15:04")), nil
	case 'c':
		return table.TextValue(now.Format("15:04:05")), nil
	case 'd':
		digits := onlyDigits(s)
		if len(digits) < 10 {
			return table.TextValue(""), nil
		}
		return table.TextValue(digits[len(digits)-10:]), nil
	case 'e':
		return table.TextValue("+91" + s), nil
	case 'f':
		return table.TextValue(upper.String(s)), nil
	case 'g':
		return table.TextValue(lower.String(s)), nil
	case 'h':
		return table.TextValue(titleWords(s)), nil
	case 'i':
		return integer(s)
	case 'j':
		return table.TextValue(strings.ReplaceAll(s, "-", "")), nil
	case 'u':
		return table.TextValue(strings.ReplaceAll(s, "_", "")), nil
	case 'x':
		return table.TextValue(strings.ReplaceAll(s, ".", "")), nil
	}
	return v, nil
}

// integer keeps the digits of s as a number. Digit runs past the int64
// range stay exact as text without leading zeros.
func integer(s string) (table.Value, error) {
	digits := onlyDigits(s)
	if digits == "" {
		return table.TextValue(""), nil
	}
	if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
		return table.IntValue(n), nil
	}
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return table.Value{}, &Fault{Code: 'i', Input: s, Err: errNotInteger}
	}
	return table.TextValue(n.String()), nil
}

// titleWords upper-cases every cased letter that follows an uncased
// character and lower-cases the rest, so "o'neil abc1def" becomes
// "O'Neil Abc1Def".
func titleWords(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevCased := false
	for _, r := range s {
		cased := unicode.IsUpper(r) || unicode.IsLower(r) || unicode.IsTitle(r)
		switch {
		case cased && prevCased:
			b.WriteRune(unicode.ToLower(r))
		case cased:
			b.WriteRune(unicode.ToTitle(r))
		default:
			b.WriteRune(r)
		}
		prevCased = cased
	}
	return b.String()
}

func onlyDigits(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
