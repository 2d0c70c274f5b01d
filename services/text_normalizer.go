package services

import (
	"regexp"
	"strings"

	"github.com/wantam-ink/pledge-backend/shared"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	nonDigitRegex   = regexp.MustCompile(`[^0-9]`)
	kenyanMSISDN    = regexp.MustCompile(`^254[17][0-9]{8}$`)
)

// NormalizeTextContent trims and collapses internal whitespace.
func NormalizeTextContent(text string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// NormalizeRegion cleans an account reference for use as a region key.
// Any non-blank reference is kept as entered; only whitespace is collapsed.
func NormalizeRegion(text string) string {
	return NormalizeTextContent(text)
}

// NormalizePhoneNumber converts 07XXXXXXXX, 7XXXXXXXX and +2547XXXXXXXX forms
// to the 2547XXXXXXXX form the gateway expects.
func NormalizePhoneNumber(phone string) (string, error) {
	digits := nonDigitRegex.ReplaceAllString(phone, "")
	switch {
	case strings.HasPrefix(digits, "0") && len(digits) == 10:
		digits = "254" + digits[1:]
	case len(digits) == 9:
		digits = "254" + digits
	}

	if !kenyanMSISDN.MatchString(digits) {
		return "", shared.NewValidationError(shared.CodeInvalidInput, "phone_number",
			"phone_number must be a Kenyan mobile number", "gateway-client", "NormalizePhoneNumber")
	}
	return digits, nil
}
