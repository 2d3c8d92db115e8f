package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testValidator(t *testing.T, secret string) *JWTValidator {
	t.Helper()
	v, err := NewJWTValidator(JWTConfig{
		SecretKey: secret,
		Issuer:    "polymath-backend",
		Audience:  []string{"polymath-api"},
	})
	require.NoError(t, err)
	return v
}

func TestNewJWTValidator_RequiresSecret(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{})
	assert.Error(t, err)
}

func TestValidateToken_RoundTrip(t *testing.T) {
	v := testValidator(t, "test-secret")

	token, err := v.GenerateToken("user-42", "u@example.com", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, []string{"admin"}, claims.Roles)
}

func TestValidateToken_DefaultRole(t *testing.T) {
	v := testValidator(t, "test-secret")

	token, err := v.GenerateToken("user-42", "", nil, time.Hour)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"authenticated"}, claims.Roles)
}

func TestValidateToken_Expired(t *testing.T) {
	v := testValidator(t, "test-secret")

	token, err := v.GenerateToken("user-42", "", nil, -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	issuer := testValidator(t, "secret-a")
	verifier := testValidator(t, "secret-b")

	token, err := issuer.GenerateToken("user-42", "", nil, time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestValidateToken_Garbage(t *testing.T) {
	v := testValidator(t, "test-secret")
	_, err := v.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserContext(t *testing.T) {
	ctx := context.Background()

	_, err := GetUserFromContext(ctx)
	assert.ErrorIs(t, err, ErrNoUserInContext)

	ctx = SetUserInContext(ctx, &UserContext{UserID: "user-1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
}
