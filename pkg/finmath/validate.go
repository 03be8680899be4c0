package finmath

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Indian mobile numbers: 10 digits, leading 6-9.
	rePhone = regexp.MustCompile(`^[6-9]\d{9}$`)
)

func ValidateEmail(s string) bool { return reEmail.MatchString(s) }

func ValidatePhone(s string) bool {
	return rePhone.MatchString(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}
