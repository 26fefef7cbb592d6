package service

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/moni-del/dragon-d/internal/auth"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AuthService authenticates the single configured store admin.
type AuthService struct {
	jwt        *auth.JWTManager
	adminEmail string
	adminHash  []byte
	logger     *slog.Logger
}

// NewAuthService creates a new auth service. An empty password hash
// disables admin login.
func NewAuthService(jwt *auth.JWTManager, adminEmail, adminPasswordHash string, logger *slog.Logger) *AuthService {
	return &AuthService{
		jwt:        jwt,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		adminHash:  []byte(adminPasswordHash),
		logger:     logger,
	}
}

// AdminLogin checks email and password and issues an admin token.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*TokenResponse, error) {
	if len(s.adminHash) == 0 {
		s.logger.WarnContext(ctx, "admin login attempted but no admin password is configured")
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.adminEmail)) == 1
	// The hash is checked even for a wrong email so both paths cost the same.
	passErr := bcrypt.CompareHashAndPassword(s.adminHash, []byte(password))
	if !emailOK || passErr != nil {
		s.logger.WarnContext(ctx, "admin login failed", slog.String("email", email))
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.jwt.GenerateAdminToken(s.adminEmail)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.InfoContext(ctx, "admin logged in", slog.String("email", s.adminEmail))
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.jwt.AdminExpiry().Seconds()),
	}, nil
}
