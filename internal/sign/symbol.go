// Package sign turns hand landmark frames into sign-alphabet letters and
// filters the raw per-frame letters into deliberate input.
package sign

import (
	"errors"
	"fmt"
	"strings"
)

// Symbol is one recognized letter, or None when a frame did not produce a
// confident classification.
type Symbol rune

// None is the absence of a symbol.
const None Symbol = 0

// ErrInvalidSymbol is returned when parsing text that is not a single letter.
var ErrInvalidSymbol = errors.New("invalid symbol")

// Alphabet lists the letters the geometric classifier can produce.
var Alphabet = []Symbol{'A', 'B', 'D', 'I', 'U', 'V', 'W'}

// Valid reports whether s is an upper-case letter. Manual input may use any
// letter, not only those in Alphabet.
func (s Symbol) Valid() bool {
	return s >= 'A' && s <= 'Z'
}

// String returns the letter, or an empty string for None.
func (s Symbol) String() string {
	if s == None {
		return ""
	}
	return string(rune(s))
}

// MarshalText encodes the symbol as its letter; None encodes as "".
func (s Symbol) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a letter or "" (None).
func (s *Symbol) UnmarshalText(text []byte) error {
	parsed, err := ParseSymbol(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSymbol parses a single letter, case-insensitively. Empty input parses
// to None.
func ParseSymbol(text string) (Symbol, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return None, nil
	}
	r := []rune(strings.ToUpper(text))
	if len(r) != 1 || !Symbol(r[0]).Valid() {
		return None, fmt.Errorf("%w: %q", ErrInvalidSymbol, text)
	}
	return Symbol(r[0]), nil
}
