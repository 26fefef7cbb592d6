package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/moni-del/dragon-d/internal/auth"
	"github.com/moni-del/dragon-d/internal/gate"
	"github.com/moni-del/dragon-d/pkg/httputil"
)

const (
	// SessionCookie carries the shopper JWT.
	SessionCookie = "dt_session"
	stateCookie   = "dt_oauth_state"
	stateMaxAge   = 600
)

// GateConfig controls where the gate sends the browser and how cookies are set.
type GateConfig struct {
	ClientURL    string
	SecureCookie bool
}

// GateHandler handles the Discord login flow and the gate status probe.
type GateHandler struct {
	gate   *gate.Service
	jwt    *auth.JWTManager
	cfg    GateConfig
	logger *slog.Logger
}

// NewGateHandler creates a new gate HTTP handler.
func NewGateHandler(svc *gate.Service, jwt *auth.JWTManager, cfg GateConfig, logger *slog.Logger) *GateHandler {
	cfg.ClientURL = strings.TrimRight(cfg.ClientURL, "/")
	return &GateHandler{
		gate:   svc,
		jwt:    jwt,
		cfg:    cfg,
		logger: logger,
	}
}

// Login handles GET /auth/discord/login
func (h *GateHandler) Login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, h.cookie(stateCookie, state, stateMaxAge))
	http.Redirect(w, r, h.gate.LoginURL(state), http.StatusFound)
}

// Callback handles GET /auth/discord/callback
func (h *GateHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	http.SetCookie(w, h.cookie(stateCookie, "", -1))

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != q.Get("state") {
		h.logger.WarnContext(r.Context(), "discord callback with mismatched state")
		h.redirectClient(w, r, url.Values{"error": {"invalid_state"}})
		return
	}

	user, err := h.gate.Authenticate(r.Context(), q.Get("code"))
	if err != nil {
		h.redirectClient(w, r, url.Values{"error": {"auth_failed"}})
		return
	}

	token, err := h.jwt.GenerateShopperToken(user.ID, user.DisplayName(), uuid.NewString())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to issue shopper token", slog.String("error", err.Error()))
		h.redirectClient(w, r, url.Values{"error": {"auth_failed"}})
		return
	}

	http.SetCookie(w, h.cookie(SessionCookie, token, int(h.jwt.ShopperExpiry().Seconds())))
	h.redirectClient(w, r, url.Values{"loggedIn": {"true"}})
}

// Status handles GET /api/status
// A missing or invalid session reads as logged out rather than an error.
func (h *GateHandler) Status(w http.ResponseWriter, r *http.Request) {
	var userID string
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if claims, err := h.jwt.Validate(c.Value); err == nil && claims.Role == auth.RoleShopper {
			userID = claims.UserID
		}
	}

	status, err := h.gate.Status(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, status)
}

// Logout handles POST /auth/logout
func (h *GateHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie(SessionCookie, "", -1))
	httputil.WriteData(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *GateHandler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *GateHandler) redirectClient(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, h.cfg.ClientURL+"/?"+q.Encode(), http.StatusFound)
}
