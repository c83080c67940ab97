package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/vessia-direct/api/internal/platform/config"
)

var (
	// ErrTokenExpired signals that the provided gateway token has expired.
	ErrTokenExpired = errors.New("auth: gateway token expired")
	// ErrTokenInvalid signals that the provided gateway token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: gateway token invalid")
)

// GatewayClaims is the claim set minted by the API gateway for storefront sessions.
type GatewayClaims struct {
	ConsultantID string   `json:"consultantId,omitempty"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens issued by the API gateway.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTVerifier constructs a verifier from the security configuration.
func NewJWTVerifier(cfg config.JWTConfig) (*JWTVerifier, error) {
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("jwt verifier: signing secret is required")
	}
	return &JWTVerifier{
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
	}, nil
}

// VerifyToken parses and validates the token string, returning its claims.
func (v *JWTVerifier) VerifyToken(_ context.Context, tokenStr string) (*GatewayClaims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: verifier not initialised", ErrTokenInvalid)
	}

	claims := &GatewayClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrTokenInvalid, claims.Issuer)
	}
	if v.audience != "" && !claims.VerifyAudience(v.audience, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrTokenInvalid)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: subject claim missing", ErrTokenInvalid)
	}

	return claims, nil
}
