package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-0123456789"

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestHS256Validator_ValidToken(t *testing.T) {
	t.Parallel()

	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	token := signHS256(t, testSecret, jwt.MapClaims{
		"sub":   "user-1",
		"iss":   "https://issuer.example",
		"aud":   "statement-worker",
		"email": "user@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	claims, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "https://issuer.example", claims.Issuer)
	assert.Equal(t, []string{"statement-worker"}, claims.Audience)
	require.NotNil(t, claims.Email)
	assert.Equal(t, "user@example.com", *claims.Email)
}

func TestHS256Validator_WrongSecret(t *testing.T) {
	t.Parallel()

	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	token := signHS256(t, "other-secret", jwt.MapClaims{"sub": "user-1"})
	_, err = v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestHS256Validator_ExpiredToken(t *testing.T) {
	t.Parallel()

	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	token := signHS256(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err = v.Validate(context.Background(), token)
	require.Error(t, err)
}

func TestHS256Validator_AudienceList(t *testing.T) {
	t.Parallel()

	v, err := NewHS256Validator(testSecret)
	require.NoError(t, err)

	token := signHS256(t, testSecret, jwt.MapClaims{
		"sub": "user-1",
		"aud": []string{"a", "b"},
	})
	claims, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, claims.Audience)
}

func TestNewHS256Validator_EmptySecret(t *testing.T) {
	t.Parallel()

	_, err := NewHS256Validator("")
	require.Error(t, err)
}
