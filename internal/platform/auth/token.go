// Package auth issues and verifies the bearer tokens that identify callers of
// the gateway. Tokens are HS256 JWTs whose subject is the account id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

var ErrInvalidToken = errors.New("invalid bearer token")

// Principal is the authenticated caller.
type Principal struct {
	AccountID uuid.UUID
	Admin     bool
}

// Claims is the token payload.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Authority signs and verifies tokens with one shared secret.
type Authority struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewAuthority(secret, issuer string, now func() time.Time) *Authority {
	if now == nil {
		now = time.Now
	}
	return &Authority{secret: []byte(secret), issuer: issuer, now: now}
}

// Issue mints a token for p that is valid for ttl.
func (a *Authority) Issue(p Principal, ttl time.Duration) (string, error) {
	if p.AccountID == uuid.Nil {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   p.AccountID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if p.Admin {
		claims.Role = RoleAdmin
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Verify parses raw and returns the principal it names.
func (a *Authority) Verify(raw string) (Principal, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil || accountID == uuid.Nil {
		return Principal{}, fmt.Errorf("%w: subject is not an account id", ErrInvalidToken)
	}

	return Principal{AccountID: accountID, Admin: claims.Role == RoleAdmin}, nil
}
