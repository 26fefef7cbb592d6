package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/moni-del/dragon-d/pkg/httpclient"
)

const remoteName = "discord"

// Config holds the Discord application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	GuildID      string
	BotToken     string
	InviteURL    string
	APIBaseURL   string
}

// User is the subset of a Discord user the store keeps.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// DisplayName prefers the global display name.
func (u *User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Client talks to the Discord REST API through a circuit breaker.
type Client struct {
	cfg    Config
	http   *httpclient.CircuitBreakerClient
	logger *slog.Logger
}

// NewClient creates a Discord client.
func NewClient(cfg Config, http *httpclient.CircuitBreakerClient, logger *slog.Logger) *Client {
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	return &Client{cfg: cfg, http: http, logger: logger}
}

// AuthorizeURL is where the shopper is sent to grant the identify and
// guilds scopes. state is echoed back to the callback.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.cfg.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.cfg.RedirectURI)
	q.Set("scope", "identify guilds")
	q.Set("state", state)
	return c.cfg.APIBaseURL + "/oauth2/authorize?" + q.Encode()
}

// Exchange trades an OAuth2 authorization code for an access token.
func (c *Client) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := c.doJSON(ctx, req, &tok); err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("exchange code: empty access token")
	}
	return tok.AccessToken, nil
}

// CurrentUser returns the user owning accessToken.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIBaseURL+"/users/@me", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var u User
	if err := c.doJSON(ctx, req, &u); err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	return &u, nil
}

// IsGuildMember reports whether userID has joined the configured guild.
// It uses the bot token; Discord answers 404 for non-members.
func (c *Client) IsGuildMember(ctx context.Context, userID string) (bool, error) {
	endpoint := fmt.Sprintf("%s/guilds/%s/members/%s", c.cfg.APIBaseURL, url.PathEscape(c.cfg.GuildID), url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create member request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.cfg.BotToken)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return false, fmt.Errorf("fetch guild member: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return false, nil
	case httpclient.IsSuccess(resp.StatusCode):
		_ = resp.Body.Close()
		return true, nil
	default:
		return false, httpclient.ParseResponseError(resp, remoteName)
	}
}

func (c *Client) doJSON(ctx context.Context, req *http.Request, target any) error {
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return httpclient.ParseResponseError(resp, remoteName)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s response: %w", remoteName, err)
	}
	return nil
}
