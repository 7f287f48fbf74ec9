// Package auth validates the bearer tokens that carry the acting user and
// tenant of a request.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/orderflow/backend/internal/domain/shared"
	"github.com/orderflow/backend/internal/infrastructure/config"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant_id in claims")
	ErrMissingUserID    = errors.New("missing user_id in claims")
	ErrMissingRole      = errors.New("missing role in claims")
	ErrMissingSecret    = errors.New("jwt secret is not configured")
)

// Claims identify the acting user
type Claims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// JWTService checks HS256 tokens from the identity provider. Issue signs
// with the same secret for tooling and tests.
type JWTService struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		parser: jwt.NewParser(opts...),
	}
}

// IssueInput describes the token to issue
type IssueInput struct {
	TenantID uuid.UUID
	Actor    shared.Actor
	TTL      time.Duration
}

func (s *JWTService) Issue(input IssueInput) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	now := time.Now()
	subject := input.Actor.ID.String()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(input.TTL)),
		},
		TenantID: input.TenantID.String(),
		UserID:   subject,
		Name:     input.Actor.Name,
		Role:     string(input.Actor.Role),
	}).SignedString(s.secret)
}

// Validate verifies signature, time claims and issuer, then requires the
// identity claims
func (s *JWTService) Validate(raw string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrTokenNotYetValid
	case err != nil:
		return nil, ErrInvalidToken
	case !token.Valid:
		return nil, ErrInvalidClaims
	}
	if err := claims.requireIdentity(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Claims) requireIdentity() error {
	for _, req := range []struct {
		value string
		err   error
	}{
		{c.TenantID, ErrMissingTenantID},
		{c.UserID, ErrMissingUserID},
		{c.Role, ErrMissingRole},
	} {
		if req.value == "" {
			return req.err
		}
	}
	return nil
}

func (c *Claims) TenantUUID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.TenantID)
	if err != nil {
		return uuid.Nil, ErrInvalidClaims
	}
	return id, nil
}

// Actor builds the acting user. Unknown role names pass through and match no
// role check.
func (c *Claims) Actor() (shared.Actor, error) {
	id, err := uuid.Parse(c.UserID)
	if err != nil {
		return shared.Actor{}, ErrInvalidClaims
	}
	return shared.Actor{ID: id, Name: c.Name, Role: shared.ParseRole(c.Role)}, nil
}
