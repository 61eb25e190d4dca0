package jwt

import (
	"testing"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testSecret = "test-secret"

func TestSignAndValidate(t *testing.T) {
	a := assert.New(t)
	s := NewSigner(testSecret)

	sign, err := s.Sign("player-18", "Flint", false)
	a.NoError(err)

	claims, err := s.Validate(sign)
	a.NoError(err)
	a.Equal("player-18", claims.PlayerID())
	a.Equal("Flint", claims.Username)
	a.False(claims.Guest)

	guest, err := s.Sign("guest-1", "Happy Pebble", true)
	a.NoError(err)
	claims, err = s.Validate(guest)
	a.NoError(err)
	a.True(claims.Guest)
	a.True(claims.ExpiresAt.Sub(claims.IssuedAt.Time) == guestTTL)
}

func TestValidate_wrongSecret(t *testing.T) {
	sign, err := NewSigner("other").Sign("1", "x", true)
	assert.NoError(t, err)

	_, err = NewSigner(testSecret).Validate(sign)
	assert.ErrorIs(t, err, jwtgo.ErrTokenSignatureInvalid)
}

func TestValidate_InvalidAudience(t *testing.T) {
	token := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{"different-audience"},
		ID:       uuid.New().String(),
		IssuedAt: jwtgo.NewNumericDate(time.Now()),
		Issuer:   Issuer,
		Subject:  "15",
	})

	signedToken, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Error(err)
		return
	}

	claims, err := NewSigner(testSecret).Validate(signedToken)
	assert.ErrorIs(t, err, ErrInvalidAudience)
	assert.Nil(t, claims)
}

func TestValidate_InvalidIssuer(t *testing.T) {
	token := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{Audience},
		ID:       uuid.New().String(),
		IssuedAt: jwtgo.NewNumericDate(time.Now()),
		Issuer:   "invalid-issuer",
		Subject:  "15",
	})

	signedToken, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Error(err)
		return
	}

	_, err = NewSigner(testSecret).Validate(signedToken)
	assert.ErrorIs(t, err, ErrInvalidIssuer)

	_, err = Inspect(signedToken)
	assert.ErrorIs(t, err, ErrInvalidIssuer)
}

func TestValidate_Expired(t *testing.T) {
	s := NewSigner(testSecret)
	s.now = func() time.Time {
		return time.Now().Add(-registeredTTL - time.Hour)
	}

	signedToken, err := s.Sign("15", "x", false)
	assert.NoError(t, err)

	_, err = NewSigner(testSecret).Validate(signedToken)
	assert.ErrorIs(t, err, jwtgo.ErrTokenExpired)

	claims, err := Inspect(signedToken)
	assert.NoError(t, err)
	assert.True(t, claims.Expired(time.Now()))
}

func TestInspect(t *testing.T) {
	signed, err := NewSigner(testSecret).Sign("guest-7", "Quick Shears", true)
	assert.NoError(t, err)

	claims, err := Inspect(signed)
	assert.NoError(t, err)
	assert.Equal(t, "guest-7", claims.PlayerID())
	assert.True(t, claims.Guest)
	assert.False(t, claims.Expired(time.Now()))

	_, err = Inspect("not-a-token")
	assert.Error(t, err)
}

func TestNewSigner_emptySecret(t *testing.T) {
	assert.Panics(t, func() { NewSigner("") })
}
