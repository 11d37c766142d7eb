// Package phone normalizes Tanzanian mobile numbers to the international
// digit form expected by the SMS and mobile-money gateways.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

const CountryCode = "255"

var (
	ErrInvalidPhoneNumber = errors.New("invalid phone number format: it should be 10 to 14 digits long")

	digitsOnly = regexp.MustCompile(`^\d{10,14}$`)
)

// Normalize strips whitespace, rewrites a local "0XXXXXXXXX" number to the
// country-code form, drops a leading "+" and requires 10 to 14 digits.
//
//	"0712345678"    -> "255712345678"
//	"+255712345678" -> "255712345678"
func Normalize(raw string) (string, error) {
	p := strings.Join(strings.Fields(raw), "")

	if strings.HasPrefix(p, "0") && len(p) == 10 {
		p = CountryCode + p[1:]
	}
	p = strings.TrimLeft(p, "+")

	if !digitsOnly.MatchString(p) {
		return "", ErrInvalidPhoneNumber
	}
	return p, nil
}
