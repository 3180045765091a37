package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"", false},
		{"not-an-email", false},
		{"user@", false},
		{"@example.com", false},
		{"user@example", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			res := Email(tt.in)
			assert.Equal(t, tt.valid, res.Valid)
			if !tt.valid {
				assert.NotEmpty(t, res.Reason)
			}
		})
	}
}

func TestPhone(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"+1 (555) 123-4567", true},
		{"5551234", true},
		{"123456789012345", true},
		{"", false},
		{"123456", false},             // too short
		{"1234567890123456", false},   // too long
		{"555-123-ABCD", false},       // letters
		{"+44 20 7946 0958", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.valid, Phone(tt.in, "").Valid)
		})
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"example.com", true},
		{"sub.example.co.uk", true},
		{"a-b.example.io", true},
		{"", false},
		{"no-tld", false},
		{"-bad.example.com", false},
		{"example.c", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.valid, Domain(tt.in).Valid)
		})
	}
}

func TestRegistrationNumber(t *testing.T) {
	assert.True(t, RegistrationNumber("12345678", "").Valid)
	assert.True(t, RegistrationNumber("SC-123/456", "gb").Valid)
	assert.True(t, RegistrationNumber("hrb12345", "de").Valid) // uppercased before matching
	assert.False(t, RegistrationNumber("", "").Valid)
	assert.False(t, RegistrationNumber("12 345", "").Valid)
	assert.False(t, RegistrationNumber("NO_UNDERSCORES", "").Valid)
}

func TestURL(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"http://example.com", true},
		{"https://example.com/path?q=1", true},
		{"https://localhost:8080/health", true},
		{"http://192.168.1.1/admin", true},
		{"", false},
		{"ftp://example.com", false},
		{"example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.valid, URL(tt.in).Valid)
		})
	}
}

func TestURL_DangerousSchemes(t *testing.T) {
	for _, raw := range []string{
		"javascript:alert(1)",
		"data:text/html;base64,PHNjcmlwdD4=",
		"vbscript:msgbox",
		"file:///etc/passwd",
		"about:blank",
		"  JAVASCRIPT:alert(1)",
	} {
		res := URL(raw)
		assert.False(t, res.Valid, raw)
		assert.True(t, strings.Contains(res.Reason, "dangerous"), raw)
	}
}

func TestValidatorsNeverPanicOnGarbage(t *testing.T) {
	garbage := []string{"", " ", "\x00", strings.Repeat("x", 10000), "日本語.example"}
	for _, g := range garbage {
		_ = Email(g)
		_ = Phone(g, "US")
		_ = Domain(g)
		_ = RegistrationNumber(g, "")
		_ = URL(g)
	}
}
