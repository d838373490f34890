// Package sanitize cleans free text before it is folded into flow templates.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// greetings are stripped from the front of a company name, in this order.
// Operators often paste the name straight out of a phone greeting.
var greetings = []string{
	"thank you for calling",
	"thanks for calling",
	"welcome to",
	"you've reached",
	"this is",
	"hello,",
	"hi,",
}

const trailingPunct = ".,!?;:-"

// CompanyName strips leading greeting phrases and trailing punctuation from name,
// and title-cases it when it is entirely lower or upper case. Mixed case is kept.
func CompanyName(name string) string {
	s := strings.TrimSpace(name)
	for stripped := true; stripped; {
		stripped = false
		for _, g := range greetings {
			if hasGreeting(s, g) {
				s = strings.TrimSpace(s[len(g):])
				stripped = true
				break
			}
		}
	}
	s = strings.TrimRightFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(trailingPunct, r)
	})
	if s == "" {
		return s
	}
	if s == strings.ToLower(s) || s == strings.ToUpper(s) {
		return cases.Title(language.English).String(s)
	}
	return s
}

// hasGreeting matches g case-insensitively at the start of s, on a word boundary.
func hasGreeting(s, g string) bool {
	if len(s) < len(g) || !strings.EqualFold(s[:len(g)], g) {
		return false
	}
	if len(s) == len(g) || strings.HasSuffix(g, ",") {
		return true
	}
	next := s[len(g)]
	return next == ' ' || next == '\t' || strings.IndexByte(trailingPunct, next) >= 0
}
