// Package contact verifies a company's email and phone reachability signals.
// Checks that require paid lookups (mailbox existence, carrier registration)
// are strategy interfaces and default to unknown.
package contact

import (
	"context"
	"net"
	"strings"

	"github.com/praxis-labs/veracity/internal/dnscheck"
	"github.com/praxis-labs/veracity/internal/validate"
)

// ExistenceChecker probes whether a mailbox actually exists.
type ExistenceChecker interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

// CarrierLookup checks whether a phone number is registered with a carrier.
type CarrierLookup interface {
	CarrierValid(ctx context.Context, phone string) (bool, error)
}

// EmailResult is the outcome of one email verification.
type EmailResult struct {
	Email          string `json:"email"`
	FormatValid    bool   `json:"format_valid"`
	DomainResolves bool   `json:"domain_resolves"`
	HasMX          bool   `json:"has_mx"`
	Exists         *bool  `json:"exists,omitempty"` // nil = unknown
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
}

// PhoneResult is the outcome of one phone verification.
type PhoneResult struct {
	Phone        string `json:"phone"`
	FormatValid  bool   `json:"format_valid"`
	CarrierValid *bool  `json:"carrier_valid,omitempty"` // nil = unknown
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
}

// Result bundles both contact channels.
type Result struct {
	Email *EmailResult `json:"email,omitempty"`
	Phone *PhoneResult `json:"phone,omitempty"`
}

// Verifier runs contact verification with pluggable deep checks.
type Verifier struct {
	resolver  dnscheck.Resolver
	existence ExistenceChecker
	carrier   CarrierLookup
}

// New creates a Verifier. existence and carrier may be nil; the corresponding
// signals then stay unknown.
func New(resolver dnscheck.Resolver, existence ExistenceChecker, carrier CarrierLookup) *Verifier {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Verifier{resolver: resolver, existence: existence, carrier: carrier}
}

// VerifyEmail checks format, the domain's A record, and MX presence. Valid
// requires format plus a resolving domain; a missing MX record is recorded
// but not disqualifying.
func (v *Verifier) VerifyEmail(ctx context.Context, email string) EmailResult {
	res := EmailResult{Email: email}

	if fv := validate.Email(email); !fv.Valid {
		res.Reason = fv.Reason
		return res
	}
	res.FormatValid = true

	domain := email[strings.LastIndex(email, "@")+1:]
	if addrs, err := v.resolver.LookupHost(ctx, domain); err == nil && len(addrs) > 0 {
		res.DomainResolves = true
	} else {
		res.Reason = "email domain does not resolve"
		return res
	}
	if mxs, err := v.resolver.LookupMX(ctx, domain); err == nil && len(mxs) > 0 {
		res.HasMX = true
	}

	if v.existence != nil {
		if exists, err := v.existence.EmailExists(ctx, email); err == nil {
			res.Exists = &exists
		}
	}

	res.Valid = res.FormatValid && res.DomainResolves
	if res.Exists != nil && !*res.Exists {
		res.Valid = false
		res.Reason = "mailbox does not exist"
	}
	return res
}

// VerifyPhone checks format and applies cheap plausibility heuristics before
// consulting the carrier lookup: a number that is all one digit, or whose
// digits read the same both ways, is treated as fabricated.
func (v *Verifier) VerifyPhone(ctx context.Context, phone string) PhoneResult {
	res := PhoneResult{Phone: phone}

	if fv := validate.Phone(phone, ""); !fv.Valid {
		res.Reason = fv.Reason
		return res
	}
	res.FormatValid = true

	digits := digitsOf(phone)
	if allSameDigit(digits) {
		res.Reason = "phone number is a single repeated digit"
		return res
	}
	if len(digits) >= 7 && isPalindrome(digits) {
		res.Reason = "phone number is a palindrome"
		return res
	}

	if v.carrier != nil {
		if ok, err := v.carrier.CarrierValid(ctx, phone); err == nil {
			res.CarrierValid = &ok
		}
	}

	res.Valid = true
	if res.CarrierValid != nil && !*res.CarrierValid {
		res.Valid = false
		res.Reason = "number not registered with any carrier"
	}
	return res
}

// VerifyContactInfo verifies whichever channels are present. Empty inputs
// yield nil entries rather than failures.
func (v *Verifier) VerifyContactInfo(ctx context.Context, email, phone string) Result {
	var res Result
	if email != "" {
		er := v.VerifyEmail(ctx, email)
		res.Email = &er
	}
	if phone != "" {
		pr := v.VerifyPhone(ctx, phone)
		res.Phone = &pr
	}
	return res
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSameDigit(digits string) bool {
	if digits == "" {
		return false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}

func isPalindrome(digits string) bool {
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		if digits[i] != digits[j] {
			return false
		}
	}
	return true
}
