// Package textspan converts between Go strings and the UTF-16 code unit offsets
// used by the language services for entity spans.
package textspan

import (
	"errors"
	"strings"
	"unicode/utf16"
)

var ErrOutOfRange = errors.New("span out of range")

// Len returns the length of text in UTF-16 code units.
func Len(text string) int {
	return len(utf16.Encode([]rune(text)))
}

// Slice returns the substring covering [offset, offset+length) UTF-16 code units.
func Slice(text string, offset, length int) (string, error) {
	units := utf16.Encode([]rune(text))
	if offset < 0 || length < 0 || offset > len(units) || length > len(units)-offset {
		return "", ErrOutOfRange
	}
	return string(utf16.Decode(units[offset : offset+length])), nil
}

// Find locates the first case-insensitive occurrence of sub in text and returns
// its offset and length in UTF-16 code units.
func Find(text, sub string) (offset, length int, ok bool) {
	if sub == "" {
		return 0, 0, false
	}

	textRunes := []rune(text)
	subRunes := []rune(sub)
	for i := 0; i+len(subRunes) <= len(textRunes); i++ {
		if strings.EqualFold(string(textRunes[i:i+len(subRunes)]), sub) {
			return Len(string(textRunes[:i])), Len(string(textRunes[i : i+len(subRunes)])), true
		}
	}

	return 0, 0, false
}

// Matches reports whether the span [offset, offset+length) of text equals want.
func Matches(text string, offset, length int, want string) bool {
	got, err := Slice(text, offset, length)
	if err != nil {
		return false
	}
	return got == want
}
