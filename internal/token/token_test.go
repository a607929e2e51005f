package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSignVerify_RoundTrip(t *testing.T) {
	svc, err := NewService(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name   string
		claims Claims
		ttl    time.Duration
	}{
		{"access", Claims{Email: "a@example.com"}, AccessTTL},
		{"refresh", Claims{Email: "b@example.com", UserID: "42"}, RefreshTTL},
		{"one second", Claims{Email: "c@example.com", UserID: "7"}, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed, err := svc.Sign(tt.claims, tt.ttl)
			require.NoError(t, err)

			got, ok := svc.Verify(signed)
			require.True(t, ok)
			assert.Equal(t, tt.claims.Email, got.Email)
			assert.Equal(t, tt.claims.UserID, got.UserID)
		})
	}
}

func TestSign_Deterministic(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc, err := NewService(testSecret, WithClock(fixedClock(now)))
	require.NoError(t, err)

	first, err := svc.SignAccess("a@example.com")
	require.NoError(t, err)
	second, err := svc.SignAccess("a@example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestVerify_Idempotent(t *testing.T) {
	svc, err := NewService(testSecret)
	require.NoError(t, err)

	signed, err := svc.SignRefresh("a@example.com", "1")
	require.NoError(t, err)

	first, ok1 := svc.Verify(signed)
	second, ok2 := svc.Verify(signed)
	assert.True(t, ok1)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestVerify_FailsClosed(t *testing.T) {
	now := time.Now()
	svc, err := NewService(testSecret, WithClock(fixedClock(now)))
	require.NoError(t, err)

	expired, err := svc.Sign(Claims{Email: "a@example.com"}, -time.Minute)
	require.NoError(t, err)

	other, err := NewService("another-secret-key-1234567890123456789012")
	require.NoError(t, err)
	foreign, err := other.SignAccess("a@example.com")
	require.NoError(t, err)

	otherIssuer, err := NewService(testSecret, WithIssuer("someone-else"))
	require.NoError(t, err)
	wrongIssuer, err := otherIssuer.SignAccess("a@example.com")
	require.NoError(t, err)

	noneAlg := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email: "a@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    DefaultIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})
	unsigned, err := noneAlg.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	valid, err := svc.SignAccess("a@example.com")
	require.NoError(t, err)
	parts := strings.Split(valid, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	tests := []struct {
		name       string
		credential string
	}{
		{"missing", ""},
		{"malformed", "not.a.token"},
		{"garbage", "abc"},
		{"expired", expired},
		{"signature mismatch", foreign},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
		{"tampered signature", tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := svc.Verify(tt.credential)
			assert.False(t, ok)
			assert.Nil(t, claims)
		})
	}
}

func TestVerify_ExpiryFollowsClock(t *testing.T) {
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	current := start
	svc, err := NewService(testSecret, WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	signed, err := svc.SignAccess("a@example.com")
	require.NoError(t, err)

	current = start.Add(AccessTTL - time.Second)
	_, ok := svc.Verify(signed)
	assert.True(t, ok)

	current = start.Add(AccessTTL + time.Second)
	_, ok = svc.Verify(signed)
	assert.False(t, ok)
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService("")
	assert.Error(t, err)
}

func TestWithTTL(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	current := start
	svc, err := NewService(testSecret, WithTTL(time.Minute, time.Hour), WithClock(func() time.Time { return current }))
	require.NoError(t, err)

	access, err := svc.SignAccess("a@example.com")
	require.NoError(t, err)
	refresh, err := svc.SignRefresh("a@example.com", "7")
	require.NoError(t, err)

	current = start.Add(2 * time.Minute)
	_, ok := svc.Verify(access)
	assert.False(t, ok)
	claims, ok := svc.Verify(refresh)
	require.True(t, ok)
	assert.Equal(t, "7", claims.UserID)

	_, err = NewService(testSecret, WithTTL(time.Hour, time.Minute))
	assert.Error(t, err, "access must not outlive refresh")
}

func TestDecodeUnverified(t *testing.T) {
	idToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email":   "g@example.com",
		"name":    "Gina Example",
		"locale":  "id",
		"picture": "https://example.com/p.png",
	})
	signed, err := idToken.SignedString([]byte("provider-key-we-do-not-have"))
	require.NoError(t, err)

	claims, ok := DecodeUnverified(signed)
	require.True(t, ok)
	assert.Equal(t, "g@example.com", claims.Email)
	assert.Equal(t, "Gina Example", claims.Name)
	assert.Equal(t, "id", claims.Locale)

	_, ok = DecodeUnverified("garbage")
	assert.False(t, ok)

	_, ok = DecodeUnverified("")
	assert.False(t, ok)
}
