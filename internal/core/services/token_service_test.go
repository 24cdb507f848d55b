package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_GenerateAndValidate(t *testing.T) {
	secret := "super-secret-key-for-testing"
	issuer := "kanso-test"
	subject := "laptop"

	setup := func() *TokenService {
		return NewTokenService(secret, issuer, 1*time.Hour)
	}

	t.Run("Success: Should generate and validate a token", func(t *testing.T) {
		service := setup()

		tokenString, err := service.GenerateToken(subject)
		assert.NoError(t, err)
		assert.NotEmpty(t, tokenString)

		extracted, err := service.ValidateToken(tokenString)
		assert.NoError(t, err)
		assert.Equal(t, subject, extracted)
	})

	t.Run("Success: Every token gets its own id", func(t *testing.T) {
		service := setup()

		first, err := service.GenerateToken(subject)
		require.NoError(t, err)
		second, err := service.GenerateToken(subject)
		require.NoError(t, err)

		parse := func(s string) string {
			claims := &jwt.RegisteredClaims{}
			_, _, err := jwt.NewParser().ParseUnverified(s, claims)
			require.NoError(t, err)
			return claims.ID
		}
		assert.NotEmpty(t, parse(first))
		assert.NotEqual(t, parse(first), parse(second))
	})

	t.Run("Fail: Should reject expired token", func(t *testing.T) {
		service := NewTokenService(secret, issuer, -1*time.Second)

		tokenString, err := service.GenerateToken(subject)
		assert.NoError(t, err)

		extracted, err := service.ValidateToken(tokenString)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "token is expired")
		assert.Empty(t, extracted)
	})

	t.Run("Fail: Should reject token with wrong secret (Tampered)", func(t *testing.T) {
		tokenString, _ := setup().GenerateToken(subject)

		attackerService := NewTokenService("wrong-key", issuer, 1*time.Hour)

		extracted, err := attackerService.ValidateToken(tokenString)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token")
		assert.Empty(t, extracted)
	})

	t.Run("Fail: Should reject token with wrong issuer", func(t *testing.T) {
		serviceA := NewTokenService(secret, "correct-issuer", 1*time.Hour)
		tokenString, _ := serviceA.GenerateToken(subject)

		serviceB := NewTokenService(secret, "wrong-issuer", 1*time.Hour)

		extracted, err := serviceB.ValidateToken(tokenString)
		assert.ErrorIs(t, err, ErrInvalidTokenIssuer)
		assert.Empty(t, extracted)
	})

	t.Run("Fail: Should reject token without subject", func(t *testing.T) {
		service := setup()
		tokenString, err := service.GenerateToken("")
		require.NoError(t, err)

		_, err = service.ValidateToken(tokenString)
		assert.EqualError(t, err, "invalid token subject")
	})

	t.Run("Fail: Should reject 'None' algorithm attack", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": subject,
			"iss": issuer,
		})

		fakeTokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)

		_, err := setup().ValidateToken(fakeTokenString)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected signing method")
	})

	t.Run("Fail: Should reject malformed token string", func(t *testing.T) {
		extracted, err := setup().ValidateToken("this-is-not-a-jwt")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid token")
		assert.Empty(t, extracted)
	})
}
