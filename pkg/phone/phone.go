// Package phone normalizes and validates E.164 phone numbers.
//
// Both operations are total: malformed input yields best-effort output and a
// separate validity verdict, never a panic or an error.
package phone

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is prepended to national numbers.
const DefaultCountryCode = "+1"

var e164 = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// NormalizeE164 converts raw to E.164 using DefaultCountryCode.
func NormalizeE164(raw string) string {
	return NormalizeE164With(raw, DefaultCountryCode)
}

// NormalizeE164With converts raw to E.164.
//
// Non-digits are stripped, keeping track of a leading '+'. Eleven or more digits
// starting with 1 are taken as a NANP number with country code. Exactly ten
// digits get countryCode. Other '+' input is assumed international. Anything
// else gets countryCode anyway, which may be invalid; ValidateE164 flags it.
func NormalizeE164With(raw, countryCode string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	international := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}

	switch {
	case len(digits) >= 11 && digits[0] == '1':
		return "+" + digits
	case len(digits) == 10:
		return countryCode + digits
	case international:
		return "+" + digits
	default:
		return countryCode + digits
	}
}

// ValidateE164 reports whether phone is a plausible E.164 number, with a reason when it is not.
func ValidateE164(phone string) (bool, string) {
	if phone == "" {
		return false, "phone number is empty"
	}
	if !e164.MatchString(phone) {
		return false, "not in E.164 format (+<country code><number>, up to 15 digits)"
	}
	if strings.HasPrefix(phone, "+1") && len(phone) != 12 {
		return false, "US/Canada numbers need exactly 10 digits after +1"
	}
	return true, ""
}

// Result bundles a normalization with its verdict.
type Result struct {
	Original   string
	Normalized string
	Valid      bool
	Reason     string
}

// Check normalizes raw and validates the outcome.
func Check(raw string) Result {
	n := NormalizeE164(raw)
	ok, reason := ValidateE164(n)
	return Result{Original: raw, Normalized: n, Valid: ok, Reason: reason}
}

// Last10 returns the last ten digits of phone, or all of them when there are
// fewer. Leads are matched on it.
func Last10(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	d := b.String()
	if len(d) > 10 {
		return d[len(d)-10:]
	}
	return d
}
