// Package phone canonicalizes Ukrainian mobile numbers to +380XXXXXXXXX.
package phone

import (
	"regexp"
	"strings"
)

var canonical = regexp.MustCompile(`^\+380\d{9}$`)

// Normalize strips formatting and restores the +380 country prefix from the
// common local spellings (380..., 80..., 0...). Input it cannot place is
// returned as "+" followed by its digits.
func Normalize(raw string) string {
	digits := digitsOnly(raw)
	switch {
	case digits == "":
		return ""
	case strings.HasPrefix(digits, "380"):
		return "+" + digits
	case strings.HasPrefix(digits, "80"):
		return "+3" + digits
	case strings.HasPrefix(digits, "0"):
		return "+380" + digits[1:]
	default:
		return "+" + digits
	}
}

// IsValid reports whether value is already canonical.
func IsValid(value string) bool {
	return canonical.MatchString(value)
}

// Format renders a canonical number as +380 (XX) XXX-XX-XX. Non-canonical
// input is returned unchanged.
func Format(value string) string {
	if !IsValid(value) {
		return value
	}
	d := value[4:]
	return "+380 (" + d[0:2] + ") " + d[2:5] + "-" + d[5:7] + "-" + d[7:9]
}

func digitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
