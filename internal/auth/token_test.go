package auth

import (
	"testing"
	"time"

	"github.com/RichardoC/padchat/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ada = models.User{Sub: "auth0|ada", Name: "Ada", Email: "ada@example.com", Picture: "https://example.com/ada.png"}

func TestIssueAndAuthenticate(t *testing.T) {
	a := NewAuthenticator([]byte("test-secret"), "padchat")

	token, err := a.Issue(ada, time.Hour)
	require.NoError(t, err)

	user, err := a.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, ada, *user)
}

func TestAuthenticateRejects(t *testing.T) {
	a := NewAuthenticator([]byte("test-secret"), "padchat")
	valid, err := a.Issue(ada, time.Hour)
	require.NoError(t, err)

	expired, err := a.Issue(ada, -time.Minute)
	require.NoError(t, err)

	otherSecret, err := NewAuthenticator([]byte("other-secret"), "padchat").Issue(ada, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewAuthenticator([]byte("test-secret"), "someone-else").Issue(ada, time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ada.Sub,
			Issuer:    "padchat",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "padchat",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"tampered":     valid + "x",
		"expired":      expired,
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"alg none":     unsigned,
		"no subject":   noSubject,
		"empty":        "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := a.Authenticate(token)
			assert.ErrorIs(t, err, models.ErrUnauthorized)
		})
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	_, err := NewAuthenticator([]byte("s"), "").Issue(models.User{Name: "anon"}, time.Hour)
	assert.Error(t, err)
}
