package validation

import (
	"regexp"
	"unicode/utf8"
)

// local part, '@', domain, '.', suffix; no whitespace, exactly one '@'.
// The excluded set is isSpace's: RE2 \s lacks \v and the BOM.
const notSpaceOrAt = `[^\s\x{000B}\x{FEFF}\p{Z}@]`

var emailPattern = regexp.MustCompile(`^` + notSpaceOrAt + `+@` + notSpaceOrAt + `+\.` + notSpaceOrAt + `+$`)

const (
	nameMinLen = 2
	nameMaxLen = 50
)

func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidName accepts 2-50 characters made of ASCII letters and whitespace.
func ValidName(s string) bool {
	n := utf8.RuneCountInString(s)
	if n < nameMinLen || n > nameMaxLen {
		return false
	}

	for _, r := range s {
		if isASCIILetter(r) || isSpace(r) {
			continue
		}
		return false
	}
	return true
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
