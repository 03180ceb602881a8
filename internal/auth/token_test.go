package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/studyhall/server/internal/domain"
)

func TestVerifier_RoundTrip(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret")

	token, err := v.Issue("alice", "Alice", time.Minute)
	req.NoError(err)

	user, err := v.Verify(token)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), user.ID)
	req.Equal("Alice", user.Username)
}

func TestVerifier_Rejects(t *testing.T) {
	req := require.New(t)
	v := NewVerifier("secret")

	expired, err := v.Issue("alice", "", -time.Minute)
	req.NoError(err)
	_, err = v.Verify(expired)
	req.ErrorIs(err, ErrInvalidToken)

	foreign, err := NewVerifier("other").Issue("alice", "", time.Minute)
	req.NoError(err)
	_, err = v.Verify(foreign)
	req.ErrorIs(err, ErrInvalidToken)

	noUser, err := v.Issue("", "", time.Minute)
	req.NoError(err)
	_, err = v.Verify(noUser)
	req.ErrorIs(err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "alice"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	req.NoError(err)
	_, err = v.Verify(none)
	req.ErrorIs(err, ErrInvalidToken)

	_, err = v.Verify("garbage")
	req.ErrorIs(err, ErrInvalidToken)
}
