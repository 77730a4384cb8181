package handlers

import (
	"encoding/json"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/domain"
	"github.com/agency-ops/report-desk/internal/service"
	"github.com/agency-ops/report-desk/internal/wizard"
)

// AuthHandler drives the Discord OAuth redirect round trip. Callback results
// always land on the frontend as query parameters; the browser is mid
// redirect so JSON bodies would go nowhere useful.
type AuthHandler struct {
	oauth    *service.OAuthService
	sessions wizard.Store
	logger   *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(oauth *service.OAuthService, sessions wizard.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{oauth: oauth, sessions: sessions, logger: logger}
}

// Login GET /api/auth/discord/login. Redirects to the Discord consent page.
// An optional session query parameter binds the round trip to a wizard
// session via the signed state.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	target, err := h.oauth.AuthorizeURL(c.Query("session"))
	if err != nil {
		return err
	}
	return c.Redirect(target, fiber.StatusFound)
}

// Callback GET /api/auth/discord/callback. Exchanges the code, resumes the
// wizard session named by the state when there is one, and sends the browser
// back to the report page.
func (h *AuthHandler) Callback(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return h.redirectError(c, "no_code")
	}

	profile, err := h.oauth.Exchange(c.UserContext(), code)
	if err != nil {
		h.logger.Warn("oauth exchange failed", zap.Error(err))
		return h.redirectError(c, "auth_failed")
	}

	h.resumeSession(c, profile)

	payload, err := json.Marshal(profile)
	if err != nil {
		return h.redirectError(c, "auth_failed")
	}
	return c.Redirect(h.oauth.ClientURL()+"/report?discord_auth="+url.QueryEscape(string(payload)),
		fiber.StatusFound)
}

// resumeSession delivers the verified Discord claim to the wizard session the
// state points at. Best effort: an expired or missing session only costs the
// resume, the profile still reaches the frontend.
func (h *AuthHandler) resumeSession(c *fiber.Ctx, profile *domain.DiscordProfile) {
	sessionID := h.oauth.SessionFromState(c.Query("state"))
	if sessionID == "" {
		return
	}

	session, err := h.sessions.Get(c.UserContext(), sessionID)
	if err != nil {
		if !errors.Is(err, wizard.ErrSessionNotFound) {
			h.logger.Warn("wizard session load failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return
	}

	session.Resume(&domain.IdentityClaim{
		Kind:       domain.ClaimKindSecondary,
		Handle:     profile.Username,
		ExternalID: profile.ID,
		Resolved:   true,
	})
	if err := h.sessions.Put(c.UserContext(), session); err != nil {
		h.logger.Warn("wizard session save failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (h *AuthHandler) redirectError(c *fiber.Ctx, reason string) error {
	return c.Redirect(h.oauth.ClientURL()+"/report?error="+url.QueryEscape(reason), fiber.StatusFound)
}
