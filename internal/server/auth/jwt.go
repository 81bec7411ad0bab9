package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/timex"
	"github.com/golang-jwt/jwt/v5"
)

// TokenKind separates access tokens from refresh tokens so one can never be
// accepted in place of the other.
type TokenKind string

const (
	KindAccess  TokenKind = "access"
	KindRefresh TokenKind = "refresh"
)

// AccessClaims is the payload of a short-lived access token.
type AccessClaims struct {
	Email string    `json:"email"`
	Roles []string  `json:"roles"`
	Kind  TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims checks.
func (c AccessClaims) Validate() error {
	if c.Kind != KindAccess {
		return common.ErrWrongTokenUse
	}
	if c.Subject == "" {
		return common.ErrInvalidToken
	}
	return nil
}

// RefreshClaims is the payload of a refresh token. ID carries the jti.
type RefreshClaims struct {
	Kind TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

func (c RefreshClaims) Validate() error {
	if c.Kind != KindRefresh {
		return common.ErrWrongTokenUse
	}
	if c.Subject == "" || c.ID == "" {
		return common.ErrInvalidToken
	}
	return nil
}

// TokenCodec signs and verifies HS256 tokens with one symmetric key.
type TokenCodec struct {
	secret []byte
	now    timex.Clock
	parser *jwt.Parser
}

// NewTokenCodec builds a codec over secret. A nil clock means the wall clock.
func NewTokenCodec(secret []byte, now timex.Clock) *TokenCodec {
	if now == nil {
		now = timex.SystemClock
	}
	return &TokenCodec{
		secret: secret,
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(now),
			// non-zero trailing bits would let two signature strings verify alike
			jwt.WithStrictDecoding(),
		),
	}
}

// SignAccess mints an access token for the user and returns it with its expiry.
func (c *TokenCodec) SignAccess(userID, email string, roles []string, ttl time.Duration) (string, time.Time, error) {
	exp := c.now().Add(ttl)
	claims := AccessClaims{
		Email: email,
		Roles: roles,
		Kind:  KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := c.sign(claims)
	return s, exp, err
}

// SignRefresh mints a refresh token carrying jti and returns it with its expiry.
func (c *TokenCodec) SignRefresh(userID, jti string, ttl time.Duration) (string, time.Time, error) {
	exp := c.now().Add(ttl)
	claims := RefreshClaims{
		Kind: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := c.sign(claims)
	return s, exp, err
}

func (c *TokenCodec) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// VerifyAccess returns the claims of a valid access token. Any failure is
// reported as common.ErrTokenExpired or common.ErrInvalidToken.
func (c *TokenCodec) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh returns the claims of a valid refresh token.
func (c *TokenCodec) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *TokenCodec) verify(token string, claims jwt.Claims) error {
	if token == "" {
		return common.ErrInvalidToken
	}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	}
	if !parsed.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
