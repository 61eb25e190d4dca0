package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Issuer issues the JWT
const Issuer = "skemino.demo"

// Audience is the intended JWT audience
const Audience = "skemino.client"

// token lifetimes
const (
	guestTTL      = time.Hour * 24
	registeredTTL = time.Hour * 24 * 30
)

// ErrInvalidAudience is returned when the token was issued for someone else
var ErrInvalidAudience = errors.New("invalid audience")

// ErrInvalidIssuer is returned when the token was not issued by us
var ErrInvalidIssuer = errors.New("invalid issuer")

// Claims are the claims carried by a player credential
type Claims struct {
	Username string `json:"username"`
	Guest    bool   `json:"guest"`
	jwtgo.RegisteredClaims
}

// PlayerID returns the subject of the token
func (c *Claims) PlayerID() string {
	return c.Subject
}

// Signer signs and validates player credentials with a shared secret
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a signer for the secret
func NewSigner(secret string) *Signer {
	if secret == "" {
		panic("jwt secret cannot be empty")
	}

	return &Signer{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Sign will sign a JWT for the player
func (s *Signer) Sign(playerID, username string, guest bool) (string, error) {
	ttl := registeredTTL
	if guest {
		ttl = guestTTL
	}

	now := s.now()
	token := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, &Claims{
		Username: username,
		Guest:    guest,
		RegisteredClaims: jwtgo.RegisteredClaims{
			Audience:  jwtgo.ClaimStrings{Audience},
			ID:        uuid.New().String(),
			IssuedAt:  jwtgo.NewNumericDate(now),
			ExpiresAt: jwtgo.NewNumericDate(now.Add(ttl)),
			Issuer:    Issuer,
			Subject:   playerID,
		},
	})

	return token.SignedString(s.secret)
}

// Validate will validate a signed JWT and return its claims
func (s *Signer) Validate(signedString string) (*Claims, error) {
	token, err := jwtgo.ParseWithClaims(signedString, &Claims{}, func(token *jwtgo.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtgo.SigningMethodHMAC); !ok {
			return nil, errors.New("expected HS256 signing method")
		}

		return s.secret, nil
	}, jwtgo.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		logrus.Warn("token claims were not valid. did not expect to reach this code")
		return nil, errors.New("claims were not valid")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("expected *jwt.Claims, got %T", token.Claims)
	}

	if err := checkClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// Inspect returns the claims of a token without verifying its signature.
// Clients use it to learn who they are; the server remains the authority.
func Inspect(signedString string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwtgo.NewParser().ParseUnverified(signedString, claims); err != nil {
		return nil, err
	}

	if err := checkClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// Expired returns true if the claims carry an expiry before t
func (c *Claims) Expired(t time.Time) bool {
	return c.ExpiresAt != nil && !t.Before(c.ExpiresAt.Time)
}

func checkClaims(claims *Claims) error {
	if !containsAudience(claims.Audience, Audience) {
		return ErrInvalidAudience
	}

	if claims.Issuer != Issuer {
		return ErrInvalidIssuer
	}

	return nil
}

func containsAudience(audiences jwtgo.ClaimStrings, target string) bool {
	for _, aud := range audiences {
		if aud == target {
			return true
		}
	}
	return false
}
