package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/moni-del/dragon-d/pkg/middleware"
)

// Token roles.
const (
	RoleAdmin   = "admin"
	RoleShopper = "shopper"
)

const issuer = "dt-store"

// Claims represents the JWT claims for both admin and shopper tokens.
// Shopper tokens carry the Discord user and the cart session they own.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token generation and validation.
type JWTManager struct {
	secret        []byte
	adminExpiry   time.Duration
	shopperExpiry time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager with the given secret and expiry durations.
func NewJWTManager(secret string, adminExpiry, shopperExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:        []byte(secret),
		adminExpiry:   adminExpiry,
		shopperExpiry: shopperExpiry,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// AdminExpiry is the lifetime of admin tokens.
func (m *JWTManager) AdminExpiry() time.Duration { return m.adminExpiry }

// ShopperExpiry is the lifetime of shopper tokens.
func (m *JWTManager) ShopperExpiry() time.Duration { return m.shopperExpiry }

// GenerateAdminToken creates a signed admin token for email.
func (m *JWTManager) GenerateAdminToken(email string) (string, error) {
	return m.sign(&Claims{
		UserID: email,
		Email:  email,
		Role:   RoleAdmin,
	}, m.adminExpiry)
}

// GenerateShopperToken creates a signed shopper token binding a Discord
// user to a cart session.
func (m *JWTManager) GenerateShopperToken(userID, username, sessionID string) (string, error) {
	return m.sign(&Claims{
		UserID:    userID,
		Username:  username,
		Role:      RoleShopper,
		SessionID: sessionID,
	}, m.shopperExpiry)
}

func (m *JWTManager) sign(claims *Claims, expiry time.Duration) (string, error) {
	now := m.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		Issuer:    issuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", claims.Role, err)
	}
	return signed, nil
}

// Validate parses and validates a token, returning the claims.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Validator adapts Validate to the auth middleware.
func (m *JWTManager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		c, err := m.Validate(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID:    c.UserID,
			Email:     c.Email,
			Role:      c.Role,
			SessionID: c.SessionID,
		}, nil
	}
}
