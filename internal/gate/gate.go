package gate

import (
	"context"
	"log/slog"

	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

// Step is the next screen the storefront should show.
type Step string

// Gate steps, in the order a shopper passes them.
const (
	StepLogin       Step = "login"
	StepJoinDiscord Step = "join_discord"
	StepStore       Step = "store"
)

// Status is the shopper's progress through the gate.
type Status struct {
	LoggedIn  bool   `json:"logged_in"`
	InServer  bool   `json:"in_server"`
	Step      Step   `json:"step"`
	InviteURL string `json:"invite_url,omitempty"`
}

// Discord is the part of the Discord API the gate needs.
type Discord interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	CurrentUser(ctx context.Context, accessToken string) (*User, error)
	IsGuildMember(ctx context.Context, userID string) (bool, error)
}

// Service decides whether a shopper may enter the store: they must be
// logged in with Discord and be a member of the store's server.
type Service struct {
	discord   Discord
	inviteURL string
	logger    *slog.Logger
}

// NewService creates a gate service.
func NewService(discord Discord, inviteURL string, logger *slog.Logger) *Service {
	return &Service{discord: discord, inviteURL: inviteURL, logger: logger}
}

// LoginURL returns the Discord authorization URL for state.
func (s *Service) LoginURL(state string) string {
	return s.discord.AuthorizeURL(state)
}

// Authenticate completes the OAuth callback and returns the Discord user.
func (s *Service) Authenticate(ctx context.Context, code string) (*User, error) {
	if code == "" {
		return nil, apperrors.InvalidInput("missing code")
	}

	token, err := s.discord.Exchange(ctx, code)
	if err != nil {
		s.logger.ErrorContext(ctx, "discord code exchange failed", slog.String("error", err.Error()))
		return nil, apperrors.Unauthorized("discord login failed")
	}

	user, err := s.discord.CurrentUser(ctx, token)
	if err != nil {
		s.logger.ErrorContext(ctx, "discord user lookup failed", slog.String("error", err.Error()))
		return nil, apperrors.Unauthorized("discord login failed")
	}

	s.logger.InfoContext(ctx, "shopper logged in with discord",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Status reports the gate state for userID ("" when not logged in).
func (s *Service) Status(ctx context.Context, userID string) (Status, error) {
	if userID == "" {
		return Status{Step: StepLogin}, nil
	}

	member, err := s.discord.IsGuildMember(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "guild membership check failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return Status{LoggedIn: true}, apperrors.Unavailable("failed to check membership", err)
	}

	if !member {
		return Status{LoggedIn: true, Step: StepJoinDiscord, InviteURL: s.inviteURL}, nil
	}
	return Status{LoggedIn: true, InServer: true, Step: StepStore}, nil
}
