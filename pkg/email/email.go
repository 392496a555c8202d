// Package email derives display values from email addresses.
package email

import (
	"strings"
	"unicode"
)

// DisplayName guesses a salutation from the local part of addr, splitting on
// the usual separators: "jane.wanjiru@example.org" gives "Jane Wanjiru".
// Honorifics such as "dr" are kept. Returns "" when nothing usable remains.
func DisplayName(addr string) string {
	local := addr
	if at := strings.IndexByte(addr, '@'); at >= 0 {
		local = addr[:at]
	}
	// Sub-addressing ("jane+renewals") never carries a name.
	if plus := strings.IndexByte(local, '+'); plus >= 0 {
		local = local[:plus]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.IndexFunc(p, unicode.IsLetter) < 0 {
			continue
		}
		words = append(words, capitalize(p))
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	runes := []rune(strings.ToLower(s))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
