package validation

import (
	"strings"
	"unicode/utf16"
)

// Rule is one password-strength requirement.
type Rule string

const (
	RuleMinLength Rule = "min_length"
	RuleUpper     Rule = "uppercase"
	RuleLower     Rule = "lowercase"
	RuleDigit     Rule = "number"
	RuleSpecial   Rule = "special_character"
)

const (
	PasswordMinLength = 8
	specialChars      = `!@#$%^&*(),.?":{}|<>`
)

// ruleOrder is the order failures are reported and rendered in.
var ruleOrder = []Rule{RuleMinLength, RuleUpper, RuleLower, RuleDigit, RuleSpecial}

var ruleText = map[Rule]string{
	RuleMinLength: "at least 8 characters",
	RuleUpper:     "one uppercase letter",
	RuleLower:     "one lowercase letter",
	RuleDigit:     "one number",
	RuleSpecial:   "one special character",
}

type PasswordCheck struct {
	Valid  bool
	Failed []Rule
}

// Fails reports whether rule r was not satisfied.
func (c PasswordCheck) Fails(r Rule) bool {
	for _, f := range c.Failed {
		if f == r {
			return true
		}
	}
	return false
}

// Message lists every missing requirement, e.g.
// "Password must contain: one uppercase letter, one number".
func (c PasswordCheck) Message() string {
	if c.Valid {
		return ""
	}

	parts := make([]string, 0, len(c.Failed))
	for _, r := range c.Failed {
		parts = append(parts, ruleText[r])
	}
	return "Password must contain: " + strings.Join(parts, ", ")
}

// CheckPassword evaluates every rule independently; nothing short-circuits.
func CheckPassword(s string) PasswordCheck {
	var upper, lower, digit, special bool

	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	ok := map[Rule]bool{
		RuleMinLength: utf16Len(s) >= PasswordMinLength,
		RuleUpper:     upper,
		RuleLower:     lower,
		RuleDigit:     digit,
		RuleSpecial:   special,
	}

	check := PasswordCheck{Valid: true}
	for _, r := range ruleOrder {
		if !ok[r] {
			check.Valid = false
			check.Failed = append(check.Failed, r)
		}
	}
	return check
}

// utf16Len counts UTF-16 code units, so a character outside the BMP counts
// twice towards the minimum length.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
