package validation

import "unicode"

// isSpace reports whether r is whitespace under the ECMAScript definition:
// ASCII tab, LF, VT, FF, CR and space, the BOM, and every Unicode space
// separator (Zs, Zl, Zp). U+0085 is not included.
func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\uFEFF':
		return true
	}
	return unicode.In(r, unicode.Zs, unicode.Zl, unicode.Zp)
}
