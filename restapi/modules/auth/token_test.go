package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestSigner(t *testing.T, clock *fakeClock) *Signer {
	t.Helper()
	s, err := NewSigner("test-secret")
	require.NoError(t, err)
	if clock != nil {
		s.now = clock.Now
	}
	return s
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestVerifyRoundTrip(t *testing.T) {
	s := newTestSigner(t, nil)

	for _, subject := range []string{"ivan.petrov", "a", "логин", "with space"} {
		token, err := s.Issue(subject)
		require.NoError(t, err)

		got, err := s.Verify(token, SessionMaxAge)
		require.NoError(t, err)
		assert.Equal(t, subject, got)
	}
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// flipLowBit swaps the character at i for the one whose 6-bit value differs
// only in the lowest bit
func flipLowBit(s string, i int) string {
	b := []byte(s)
	b[i] = base64URLAlphabet[strings.IndexByte(base64URLAlphabet, b[i])^1]
	return string(b)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	s := newTestSigner(t, nil)
	token, err := s.Issue("ivan.petrov")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	// 32 signature bytes leave 2 unused bits in the last character
	require.Len(t, parts[2], 43)

	for _, i := range []int{0, len(parts[2]) / 2, len(parts[2]) - 1} {
		tampered := parts[0] + "." + parts[1] + "." + flipLowBit(parts[2], i)
		sub, err := s.Verify(tampered, SessionMaxAge)
		assert.ErrorIs(t, err, ErrInvalidSession, "position %d", i)
		assert.Empty(t, sub, "position %d", i)
	}
}

func TestVerifyRejectsTamperedSubject(t *testing.T) {
	s := newTestSigner(t, nil)
	token, err := s.Issue("ivan")
	require.NoError(t, err)
	other, err := s.Issue("admin")
	require.NoError(t, err)

	// payload of one token with the signature of another
	a := strings.Split(token, ".")
	b := strings.Split(other, ".")
	_, err = s.Verify(a[0]+"."+b[1]+"."+a[2], SessionMaxAge)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	token, err := newTestSigner(t, nil).Issue("ivan")
	require.NoError(t, err)

	other, err := NewSigner("another-secret")
	require.NoError(t, err)
	_, err = other.Verify(token, SessionMaxAge)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyRejectsExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	s := newTestSigner(t, clock)

	token, err := s.Issue("ivan")
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Minute)
	got, err := s.Verify(token, SessionMaxAge)
	require.NoError(t, err)
	assert.Equal(t, "ivan", got)

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = s.Verify(token, SessionMaxAge)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := newTestSigner(t, nil)
	for _, token := range []string{"", "abc", "a.b.c"} {
		_, err := s.Verify(token, SessionMaxAge)
		assert.ErrorIs(t, err, ErrInvalidSession, token)
	}
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(16)
	require.NoError(t, err)
	b, err := GenerateSecureToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 22)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
}
