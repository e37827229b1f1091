// Package auth holds the credential primitives: password hashing, signed
// access/refresh token issuance and the request guard that consumes them.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidora-app/vidora/internal/shared"
)

const tokenIssuerName = "vidora"

// TokenConfig carries the signing material for both token kinds. Access and
// refresh tokens are signed with distinct secrets so one cannot stand in for
// the other.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// AccessClaims are embedded in short-lived access tokens.
type AccessClaims struct {
	Email    string `json:"email"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// RefreshClaims are embedded in long-lived refresh tokens. Only the subject
// id is carried.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer creates and verifies signed, time-bounded tokens bound to a
// user identity.
type TokenIssuer struct {
	cfg TokenConfig
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(cfg TokenConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg}
}

// IssueAccess signs a new access token for the account.
func (i *TokenIssuer) IssueAccess(acc *shared.Account) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email:    acc.Email,
		UserName: acc.UserName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID.String(),
			Issuer:    tokenIssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.AccessTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("auth: sign access token: %w", err)
	}
	return token, nil
}

// IssueRefresh signs a new refresh token for the account.
func (i *TokenIssuer) IssueRefresh(acc *shared.Account) (string, error) {
	now := time.Now()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   acc.ID.String(),
			Issuer:    tokenIssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.RefreshTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("auth: sign refresh token: %w", err)
	}
	return token, nil
}

// VerifyAccess checks signature and expiry of an access token and returns its
// claims. Any failure maps to shared.ErrInvalidToken.
func (i *TokenIssuer) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(token, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh checks signature and expiry of a refresh token and returns
// its claims. Any failure maps to shared.ErrInvalidToken.
func (i *TokenIssuer) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := i.verify(token, claims, i.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *TokenIssuer) verify(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return shared.ErrInvalidToken
	}
	return nil
}
