package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	v, err := NewJWTValidator("secret")
	require.NoError(t, err)

	token, err := v.Issue("user-1", time.Minute)
	require.NoError(t, err)

	sub, err := v.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestValidateRejectsBadTokens(t *testing.T) {
	v, err := NewJWTValidator("secret")
	require.NoError(t, err)
	other, err := NewJWTValidator("other")
	require.NoError(t, err)

	foreign, err := other.Issue("user-1", time.Minute)
	require.NoError(t, err)
	expired, err := v.Issue("user-1", -time.Minute)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":      "",
		"garbage":    "not-a-jwt",
		"wrong key":  foreign,
		"expired":    expired,
		"no subject": noSubject,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewJWTValidatorRequiresSecret(t *testing.T) {
	_, err := NewJWTValidator("")
	assert.Error(t, err)
}
