package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenValidator_Round_Trip(t *testing.T) {
	req := require.New(t)
	validator := NewTokenValidator("shared-secret")

	token, err := validator.Sign("u42", time.Minute)
	req.NoError(err)

	claims, err := validator.Validate(token)
	req.NoError(err)
	req.Equal("u42", claims.UserID)
}

func TestTokenValidator_Rejects_Wrong_Secret(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenValidator("secret-a")
	verifier := NewTokenValidator("secret-b")

	token, err := issuer.Sign("u42", time.Minute)
	req.NoError(err)

	_, err = verifier.Validate(token)
	req.Error(err)
}

func TestTokenValidator_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	validator := NewTokenValidator("shared-secret")

	token, err := validator.Sign("u42", -time.Minute)
	req.NoError(err)

	_, err = validator.Validate(token)
	req.Error(err)
}

func TestTokenValidator_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	validator := NewTokenValidator("shared-secret")

	_, err := validator.Validate("not.a.token")
	req.Error(err)
}
