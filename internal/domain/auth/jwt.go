// Package auth issues and validates bearer access tokens.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "bizzplus/internal/core/context"
	"bizzplus/internal/core/id"
	"bizzplus/internal/domain/party"
)

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultJWTConfig returns default JWT configuration.
func DefaultJWTConfig(secret string) JWTConfig {
	return JWTConfig{
		Secret:         secret,
		Issuer:         "bizzplus",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role"`
	PartyKind string `json:"pkind,omitempty"`
	PartyID   string `json:"pid,omitempty"`
}

// JWTService handles JWT operations.
type JWTService struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service.
func NewJWTService(config JWTConfig) *JWTService {
	return &JWTService{config: config, now: time.Now}
}

// GenerateAccessToken signs a token for user.
func (s *JWTService) GenerateAccessToken(user appctx.UserContext) (string, time.Time, error) {
	if err := validateUser(user); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    user.UserID,
		Email:     user.Email,
		Role:      user.Role,
		PartyKind: user.PartyKind,
		PartyID:   user.PartyID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates JWT and returns user context.
func (s *JWTService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	user := appctx.UserContext{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      claims.Role,
		PartyKind: claims.PartyKind,
		PartyID:   claims.PartyID,
	}
	if err := validateUser(user); err != nil {
		return nil, err
	}
	return &user, nil
}

// validateUser checks that non-admin users act for a party of their role.
func validateUser(u appctx.UserContext) error {
	if u.UserID == "" {
		return fmt.Errorf("token has no user id")
	}
	switch u.Role {
	case appctx.RoleAdmin:
		return nil
	case appctx.RoleManufacturer, appctx.RoleDistributor:
	default:
		return fmt.Errorf("unknown role %q", u.Role)
	}
	if u.PartyKind != u.Role {
		return fmt.Errorf("role %s cannot act for party kind %q", u.Role, u.PartyKind)
	}
	if _, err := party.ParseKind(u.PartyKind); err != nil {
		return err
	}
	if _, err := id.Parse(u.PartyID); err != nil {
		return fmt.Errorf("invalid party id: %w", err)
	}
	return nil
}
