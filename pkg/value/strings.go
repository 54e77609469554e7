package value

import (
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// UTF16Length returns the number of UTF-16 code units this engine reports
// as a string's `.length`, implementing the WTF-16-at-the-API-boundary
// decision: storage stays UTF-8, but length and index access behave as if
// the string were UTF-16 encoded, matching what script code observes.
func UTF16Length(s string) int {
	n := 0
	for _, r := range s {
		if r > 0xFFFF {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// UTF16CharAt returns the single UTF-16 code unit at index, re-encoded as
// UTF-8, or false if index is out of range. A surrogate half (index lands
// inside an astral code point) is returned verbatim, matching
// String.prototype.charAt/[] rather than codePointAt's pairing behavior.
func UTF16CharAt(s string, index int) (string, bool) {
	units := utf16.Encode([]rune(s))
	if index < 0 || index >= len(units) {
		return "", false
	}
	return string(utf16.Decode(units[index : index+1])), true
}

// UTF16CodePointAt returns the full code point starting at index,
// combining a surrogate pair when index lands on its high half, matching
// String.prototype.codePointAt.
func UTF16CodePointAt(s string, index int) (rune, bool) {
	units := utf16.Encode([]rune(s))
	if index < 0 || index >= len(units) {
		return 0, false
	}
	runes := utf16.Decode(units[index:])
	if len(runes) == 0 {
		return 0, false
	}
	return runes[0], true
}

// Normalize implements String.prototype.normalize's four Unicode
// normalization forms; ok is false for an unrecognized form name, the
// same case the teacher's builtin rejects with a RangeError.
func Normalize(s, form string) (result string, ok bool) {
	var f norm.Form
	switch form {
	case "", "NFC":
		f = norm.NFC
	case "NFD":
		f = norm.NFD
	case "NFKC":
		f = norm.NFKC
	case "NFKD":
		f = norm.NFKD
	default:
		return "", false
	}
	return f.String(s), true
}
