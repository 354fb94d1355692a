// Package phone normalizes Ethiopian phone numbers at the system
// boundary. Everything past the boundary works with the single Number
// value type in E.164 form.
package phone

import (
	"errors"
	"strings"
)

var ErrInvalidNumber = errors.New("invalid Ethiopian phone number")

// Number is an Ethiopian phone number in E.164 form (+2519xxxxxxxx or
// +2517xxxxxxxx). The zero value is not a valid number.
type Number string

func (n Number) String() string { return string(n) }

// IsMobile reports whether the number can receive mobile-money charges.
// Cellular allocations in Ethiopia use the 9 (Ethio Telecom) and
// 7 (Safaricom) prefixes.
func (n Number) IsMobile() bool {
	s := string(n)
	return strings.HasPrefix(s, "+2519") || strings.HasPrefix(s, "+2517")
}

// Local returns the domestic 0-prefixed form used on receipts.
func (n Number) Local() string {
	return "0" + strings.TrimPrefix(string(n), "+251")
}

// Normalize accepts the representations seen in the wild
// ("+251911223344", "251911223344", "0911223344", "911223344", with or
// without spaces and dashes) and returns the E.164 form. Anything that
// does not resolve to a nine-digit subscriber number starting with 9 or 7
// is rejected.
func Normalize(raw string) (Number, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	var subscriber string
	switch {
	case strings.HasPrefix(digits, "251") && len(digits) == 12:
		subscriber = digits[3:]
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		subscriber = digits[1:]
	case len(digits) == 9:
		subscriber = digits
	default:
		return "", ErrInvalidNumber
	}

	if subscriber[0] != '9' && subscriber[0] != '7' {
		return "", ErrInvalidNumber
	}
	return Number("+251" + subscriber), nil
}
