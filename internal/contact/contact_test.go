package contact

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	hosts map[string][]string
	mx    map[string][]*net.MX
}

func (f *fakeResolver) LookupHost(_ context.Context, host string) ([]string, error) {
	addrs, ok := f.hosts[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return addrs, nil
}

func (f *fakeResolver) LookupMX(_ context.Context, name string) ([]*net.MX, error) {
	mxs, ok := f.mx[name]
	if !ok {
		return nil, errors.New("no mx records")
	}
	return mxs, nil
}

func (f *fakeResolver) LookupNS(_ context.Context, _ string) ([]*net.NS, error) {
	return nil, errors.New("no ns records")
}

type fakeExistence struct {
	exists bool
	err    error
}

func (f *fakeExistence) EmailExists(_ context.Context, _ string) (bool, error) {
	return f.exists, f.err
}

type fakeCarrier struct {
	valid bool
	err   error
}

func (f *fakeCarrier) CarrierValid(_ context.Context, _ string) (bool, error) {
	return f.valid, f.err
}

func resolvingExample() *fakeResolver {
	return &fakeResolver{
		hosts: map[string][]string{"acme.example.com": {"203.0.113.10"}},
		mx:    map[string][]*net.MX{"acme.example.com": {{Host: "mail.acme.example.com"}}},
	}
}

func TestVerifyEmail_Valid(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyEmail(context.Background(), "info@acme.example.com")
	assert.True(t, res.FormatValid)
	assert.True(t, res.DomainResolves)
	assert.True(t, res.HasMX)
	assert.True(t, res.Valid)
	assert.Nil(t, res.Exists)
}

func TestVerifyEmail_BadFormat(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyEmail(context.Background(), "not-an-email")
	assert.False(t, res.FormatValid)
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Reason)
}

func TestVerifyEmail_DomainDoesNotResolve(t *testing.T) {
	v := New(&fakeResolver{}, nil, nil)

	res := v.VerifyEmail(context.Background(), "info@ghost.example.com")
	assert.True(t, res.FormatValid)
	assert.False(t, res.DomainResolves)
	assert.False(t, res.Valid)
}

func TestVerifyEmail_MissingMXStillValid(t *testing.T) {
	r := &fakeResolver{hosts: map[string][]string{"acme.example.com": {"203.0.113.10"}}}
	v := New(r, nil, nil)

	res := v.VerifyEmail(context.Background(), "info@acme.example.com")
	assert.True(t, res.Valid)
	assert.False(t, res.HasMX)
}

func TestVerifyEmail_ExistenceChecker(t *testing.T) {
	v := New(resolvingExample(), &fakeExistence{exists: false}, nil)

	res := v.VerifyEmail(context.Background(), "ghost@acme.example.com")
	require.NotNil(t, res.Exists)
	assert.False(t, *res.Exists)
	assert.False(t, res.Valid)
	assert.Equal(t, "mailbox does not exist", res.Reason)
}

func TestVerifyEmail_ExistenceCheckerErrorIsUnknown(t *testing.T) {
	v := New(resolvingExample(), &fakeExistence{err: errors.New("smtp blocked")}, nil)

	res := v.VerifyEmail(context.Background(), "info@acme.example.com")
	assert.Nil(t, res.Exists)
	assert.True(t, res.Valid)
}

func TestVerifyPhone_Valid(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyPhone(context.Background(), "+1 (415) 555-0123")
	assert.True(t, res.FormatValid)
	assert.True(t, res.Valid)
	assert.Nil(t, res.CarrierValid)
}

func TestVerifyPhone_BadFormat(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyPhone(context.Background(), "123")
	assert.False(t, res.FormatValid)
	assert.False(t, res.Valid)
}

func TestVerifyPhone_RepeatedDigit(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyPhone(context.Background(), "1111111111")
	assert.True(t, res.FormatValid)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "repeated digit")
}

func TestVerifyPhone_Palindrome(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyPhone(context.Background(), "1234554321")
	assert.True(t, res.FormatValid)
	assert.False(t, res.Valid)
	assert.Contains(t, res.Reason, "palindrome")
}

func TestVerifyPhone_CarrierInvalid(t *testing.T) {
	v := New(resolvingExample(), nil, &fakeCarrier{valid: false})

	res := v.VerifyPhone(context.Background(), "+14155550123")
	require.NotNil(t, res.CarrierValid)
	assert.False(t, *res.CarrierValid)
	assert.False(t, res.Valid)
}

func TestVerifyPhone_CarrierErrorIsUnknown(t *testing.T) {
	v := New(resolvingExample(), nil, &fakeCarrier{err: errors.New("api down")})

	res := v.VerifyPhone(context.Background(), "+14155550123")
	assert.Nil(t, res.CarrierValid)
	assert.True(t, res.Valid)
}

func TestVerifyContactInfo(t *testing.T) {
	v := New(resolvingExample(), nil, nil)

	res := v.VerifyContactInfo(context.Background(), "info@acme.example.com", "+14155550123")
	require.NotNil(t, res.Email)
	require.NotNil(t, res.Phone)
	assert.True(t, res.Email.Valid)
	assert.True(t, res.Phone.Valid)

	empty := v.VerifyContactInfo(context.Background(), "", "")
	assert.Nil(t, empty.Email)
	assert.Nil(t, empty.Phone)
}
