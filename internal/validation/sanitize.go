// Package validation holds the field rules applied to registration and login
// input before anything touches the store.
package validation

import "strings"

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// Sanitize trims surrounding whitespace and strips every '<' and '>'.
func Sanitize(s string) string {
	return angleBrackets.Replace(strings.TrimFunc(s, isSpace))
}

// NormalizeEmail sanitizes and lower-cases an email so lookups match the
// stored form.
func NormalizeEmail(s string) string {
	return strings.ToLower(Sanitize(s))
}
