package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/domain"
)

const defaultDiscordAPIBase = "https://discord.com/api"

// OAuthService drives the Discord authorization-code round trip for the
// wizard's secondary identity step.
type OAuthService struct {
	cfg     config.OAuthConfig
	states  *StateManager
	client  *http.Client
	apiBase string
	logger  *zap.Logger
}

// NewOAuthService constructs the service.
func NewOAuthService(cfg config.OAuthConfig, logger *zap.Logger) *OAuthService {
	return &OAuthService{
		cfg:     cfg,
		states:  NewStateManager(cfg.StateSecret, cfg.StateTTL()),
		client:  &http.Client{Timeout: cfg.ExchangeTimeout()},
		apiBase: defaultDiscordAPIBase,
		logger:  logger,
	}
}

// AuthorizeURL builds the redirect target for the login endpoint. The state
// parameter, when a wizard session id is supplied, lets the callback resume
// that session.
func (s *OAuthService) AuthorizeURL(sessionID string) (string, error) {
	query := url.Values{}
	query.Set("client_id", s.cfg.ClientID)
	query.Set("redirect_uri", s.cfg.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", "identify")
	if sessionID != "" {
		state, err := s.states.Issue(sessionID)
		if err != nil {
			return "", fmt.Errorf("sign oauth state: %w", err)
		}
		query.Set("state", state)
	}
	return s.apiBase + "/oauth2/authorize?" + query.Encode(), nil
}

// SessionFromState validates the returned state and extracts the wizard
// session id. Empty or invalid states yield an empty id: the callback still
// completes, it just cannot resume a session.
func (s *OAuthService) SessionFromState(state string) string {
	if state == "" {
		return ""
	}
	sessionID, err := s.states.Parse(state)
	if err != nil {
		s.logger.Warn("oauth state rejected", zap.Error(err))
		return ""
	}
	return sessionID
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type discordUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Discriminator string `json:"discriminator"`
	Avatar        string `json:"avatar"`
}

// Exchange trades the authorization code for a token and fetches the
// caller's Discord profile.
func (s *OAuthService) Exchange(ctx context.Context, code string) (*domain.DiscordProfile, error) {
	token, err := s.exchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.fetchProfile(ctx, token)
}

func (s *OAuthService) exchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", s.cfg.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.apiBase+"/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange status %d", resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned no access token")
	}
	return parsed.AccessToken, nil
}

func (s *OAuthService) fetchProfile(ctx context.Context, accessToken string) (*domain.DiscordProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiBase+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch status %d", resp.StatusCode)
	}

	var user discordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return &domain.DiscordProfile{
		ID:       user.ID,
		Username: fmt.Sprintf("%s#%s", user.Username, user.Discriminator),
		Avatar:   user.Avatar,
	}, nil
}

// ClientURL returns the frontend origin the callback redirects back to.
func (s *OAuthService) ClientURL() string {
	return s.cfg.ClientURL
}
