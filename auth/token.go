// Package auth validates the bearer tokens issued by the external account
// service. Token issuance does not live here; only claim validation does.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the data stored inside a marketplace token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenValidator checks HS256 signatures against the shared secret the
// account service signs with.
type TokenValidator struct {
	secret []byte
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate parses the token and verifies signature and expiration.
func (v *TokenValidator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// Sign creates a token for a user. The account service owns issuance in
// production; this exists for tests and local tooling.
func (v *TokenValidator) Sign(userID string, duration time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "market-chat",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
