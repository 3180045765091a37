// Package validate provides stateless format checks for company attributes.
// Validators never return an error: malformed or empty input is a normal
// "invalid" result, not a failure condition.
package validate

import (
	"regexp"
	"strings"
)

// Result is the outcome of a format check. Reason is empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func invalid(reason string) Result { return Result{Reason: reason} }

var (
	emailRe  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	domainRe = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)
	regNumRe = regexp.MustCompile(`^[A-Z0-9\-/]+$`)
	phoneSep = regexp.MustCompile(`[\s\-()+]`)
	digitsRe = regexp.MustCompile(`^[0-9]+$`)
	urlRe    = regexp.MustCompile(`(?i)^https?://(([A-Z0-9]([A-Z0-9\-]{0,61}[A-Z0-9])?\.)+[A-Z]{2,6}\.?|localhost|\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})(:\d+)?(/?|[/?]\S+)$`)
)

// dangerousSchemes are rejected before any format matching to keep scheme
// smuggling out of stored URLs.
var dangerousSchemes = []string{"javascript:", "data:", "vbscript:", "file:", "about:"}

// Email checks basic email address format.
func Email(email string) Result {
	if email == "" {
		return invalid("email is required")
	}
	if !emailRe.MatchString(email) {
		return invalid("invalid email format")
	}
	return Result{Valid: true}
}

// Phone checks phone number format: common separators and an optional leading
// '+' are stripped, and the remainder must be 7-15 digits. countryCode is
// accepted for parity with carrier-aware validators but unused here.
func Phone(phone string, countryCode string) Result {
	_ = countryCode
	if phone == "" {
		return invalid("phone number is required")
	}
	cleaned := phoneSep.ReplaceAllString(phone, "")
	cleaned = strings.TrimPrefix(cleaned, "+")
	if !digitsRe.MatchString(cleaned) {
		return invalid("phone number must contain only digits")
	}
	if len(cleaned) < 7 || len(cleaned) > 15 {
		return invalid("phone number length invalid")
	}
	return Result{Valid: true}
}

// Domain checks domain name format (label-dot-label with a 2+ letter TLD).
func Domain(domain string) Result {
	if domain == "" {
		return invalid("domain is required")
	}
	if !domainRe.MatchString(domain) {
		return invalid("invalid domain format")
	}
	return Result{Valid: true}
}

// RegistrationNumber checks company registration number format. The input is
// uppercased first; jurisdiction-specific formats are not enforced yet, so
// the jurisdiction argument only reserves the call shape.
func RegistrationNumber(registrationNumber string, jurisdiction string) Result {
	_ = jurisdiction
	if registrationNumber == "" {
		return invalid("registration number is required")
	}
	if !regNumRe.MatchString(strings.ToUpper(registrationNumber)) {
		return invalid("invalid registration number format")
	}
	return Result{Valid: true}
}

// URL checks http(s) URL format and rejects dangerous pseudo-schemes before
// any pattern matching.
func URL(rawURL string) Result {
	if rawURL == "" {
		return invalid("url is required")
	}
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	for _, scheme := range dangerousSchemes {
		if strings.HasPrefix(lower, scheme) {
			return invalid("dangerous protocol detected: " + scheme)
		}
	}
	if !urlRe.MatchString(rawURL) {
		return invalid("invalid url format")
	}
	return Result{Valid: true}
}
