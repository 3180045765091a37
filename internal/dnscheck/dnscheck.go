// Package dnscheck verifies that a company's domain resolves and inspects
// the signals around it: record presence, domain age, SSL, and whether the
// domain plausibly belongs to the company name.
package dnscheck

import (
	"context"
	"crypto/tls"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/praxis-labs/veracity/internal/discrepancy"
)

// Resolver is the lookup subset of net.Resolver, injectable for tests.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

// AgeProvider reports a domain's age in days. Implementations typically wrap
// a WHOIS or registration-data API. A nil provider means age is unknown.
type AgeProvider interface {
	DomainAgeDays(ctx context.Context, domain string) (int, error)
}

// RecordResult captures one DNS verification pass.
type RecordResult struct {
	Domain    string   `json:"domain"`
	Verified  bool     `json:"verified"` // at least one A record resolved
	ARecords  []string `json:"a_records,omitempty"`
	MXRecords []string `json:"mx_records,omitempty"`
	NSRecords []string `json:"ns_records,omitempty"`
	Err       string   `json:"error,omitempty"`
}

// Verifier performs DNS-level checks.
type Verifier struct {
	resolver Resolver
	age      AgeProvider

	// sslDialer is swappable in tests.
	sslDialer func(ctx context.Context, addr string) (net.Conn, error)
	sslPort   string
	timeout   time.Duration
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithSSLDialer overrides the TCP dialer used for certificate checks.
func WithSSLDialer(d func(ctx context.Context, addr string) (net.Conn, error)) Option {
	return func(v *Verifier) { v.sslDialer = d }
}

// New creates a Verifier. A nil resolver uses net.DefaultResolver; a nil age
// provider reports unknown age.
func New(resolver Resolver, age AgeProvider, opts ...Option) *Verifier {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	v := &Verifier{
		resolver: resolver,
		age:      age,
		sslPort:  "443",
		timeout:  10 * time.Second,
	}
	v.sslDialer = func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: v.timeout}
		return d.DialContext(ctx, "tcp", addr)
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// VerifyRecords resolves the domain's A, MX, and NS records. Verified means
// at least one A record exists; MX and NS absence is recorded, not fatal.
func (v *Verifier) VerifyRecords(ctx context.Context, domain string) RecordResult {
	res := RecordResult{Domain: domain}

	addrs, err := v.resolver.LookupHost(ctx, domain)
	if err != nil {
		res.Err = err.Error()
		return res
	}
	res.ARecords = addrs
	res.Verified = len(addrs) > 0

	if mxs, err := v.resolver.LookupMX(ctx, domain); err == nil {
		for _, mx := range mxs {
			res.MXRecords = append(res.MXRecords, mx.Host)
		}
	}
	if nss, err := v.resolver.LookupNS(ctx, domain); err == nil {
		for _, ns := range nss {
			res.NSRecords = append(res.NSRecords, ns.Host)
		}
	}
	return res
}

// DomainAge returns the domain age in days, or nil when no provider is
// configured or the lookup fails.
func (v *Verifier) DomainAge(ctx context.Context, domain string) *int {
	if v.age == nil {
		return nil
	}
	days, err := v.age.DomainAgeDays(ctx, domain)
	if err != nil {
		zap.L().Warn("domain age lookup failed",
			zap.String("domain", domain),
			zap.Error(err),
		)
		return nil
	}
	return &days
}

// CheckSSL reports whether the domain serves a valid certificate on 443.
// nil means unreachable (unknown), false means the handshake or certificate
// verification failed.
func (v *Verifier) CheckSSL(ctx context.Context, domain string) *bool {
	conn, err := v.sslDialer(ctx, net.JoinHostPort(domain, v.sslPort))
	if err != nil {
		return nil
	}
	defer conn.Close() //nolint:errcheck

	tlsConn := tls.Client(conn, &tls.Config{ServerName: domain})
	valid := tlsConn.HandshakeContext(ctx) == nil
	return &valid
}

// DomainMatchesCompany reports whether the domain plausibly belongs to the
// company: at least half the name's words appear in the domain base, or the
// domain base is contained in the squashed name.
func DomainMatchesCompany(domain, legalName string) bool {
	base := domainBase(domain)
	name := discrepancy.NormalizeName(legalName)
	if base == "" || name == "" {
		return false
	}
	words := strings.Fields(strings.ToLower(name))

	matched := 0
	for _, w := range words {
		if strings.Contains(base, w) {
			matched++
		}
	}
	if matched*2 >= len(words) {
		return true
	}

	squashed := strings.ReplaceAll(strings.ToLower(name), " ", "")
	return strings.Contains(squashed, base)
}

// domainBase strips scheme, www prefix, port, and TLD labels, leaving the
// registrable label ("acme" from "www.acme.co.uk").
func domainBase(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	if i := strings.IndexAny(d, "/:"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "www.")
	labels := strings.Split(d, ".")
	if len(labels) == 0 {
		return ""
	}
	return labels[0]
}
