package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/padchat/internal/models"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity fields carried by a session token. The subject is the user id.
type Claims struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator validates HS256 bearer tokens and turns them into users.
type Authenticator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthenticator(secret []byte, issuer string) *Authenticator {
	return &Authenticator{secret: secret, issuer: issuer, now: time.Now}
}

// Issue signs a token for user valid for ttl.
func (a *Authenticator) Issue(user models.User, ttl time.Duration) (string, error) {
	if user.Sub == "" {
		return "", errors.New("user subject is required")
	}
	now := a.now()
	claims := &Claims{
		Name:    user.Name,
		Email:   user.Email,
		Picture: user.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Sub,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate returns the user for a valid token, or an error wrapping models.ErrUnauthorized.
func (a *Authenticator) Authenticate(tokenString string) (*models.User, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrUnauthorized, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", models.ErrUnauthorized)
	}

	return &models.User{
		Sub:     claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Picture: claims.Picture,
	}, nil
}
