package jwt

import (
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	iss := NewIssuer("test-secret", "sbfportal", time.Minute)

	raw, exp, err := iss.IssueAccess("user-1", "a@x.test")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 2*time.Second)

	claims, err := iss.VerifyAccess(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "a@x.test", claims.Email)
	require.Equal(t, "access", claims.TokenType)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	iss := NewIssuer("test-secret", "sbfportal", time.Minute)
	raw, _, err := iss.IssueAccess("user-1", "a@x.test")
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	// Tocar un byte del payload invalida la firma.
	payload := []byte(parts[1])
	payload[0] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	_, err = iss.VerifyAccess(tampered)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, _, err := NewIssuer("secret-a", "sbfportal", time.Minute).IssueAccess("user-1", "a@x.test")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b", "sbfportal", time.Minute).VerifyAccess(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	iss := NewIssuer("test-secret", "sbfportal", time.Minute)

	now := time.Now().Add(-2 * time.Minute)
	claims := Claims{
		Email:     "a@x.test",
		TokenType: "access",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "sbfportal",
			IssuedAt:  jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(time.Minute)),
		},
	}
	raw, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = iss.VerifyAccess(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	iss := NewIssuer("test-secret", "sbfportal", time.Minute)

	claims := Claims{
		TokenType: "refresh",
		RegisteredClaims: jwtv5.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "sbfportal",
			ExpiresAt: jwtv5.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	raw, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = iss.VerifyAccess(raw)
	require.ErrorIs(t, err, ErrWrongType)
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	raw, _, err := NewIssuer("test-secret", "other-issuer", time.Minute).IssueAccess("user-1", "a@x.test")
	require.NoError(t, err)

	_, err = NewIssuer("test-secret", "sbfportal", time.Minute).VerifyAccess(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}
