// Package roblox resolves free-text Roblox usernames to canonical identities
// via the public users API. Resolution is best-effort: any miss or transport
// failure degrades to a placeholder identity instead of an error.
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/config"
	"github.com/agency-ops/report-desk/internal/domain"
)

const unknownID = "Unknown"

// Resolver looks up usernames against the Roblox users API.
type Resolver struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewResolver builds a resolver with a bounded request timeout.
func NewResolver(cfg config.RobloxConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

type lookupRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

type lookupResponse struct {
	Data []struct {
		ID                int64  `json:"id"`
		Name              string `json:"name"`
		RequestedUsername string `json:"requestedUsername"`
	} `json:"data"`
}

// Resolve maps a handle to an external identity. It never returns an error:
// on any failure the identity carries ID "Unknown" and a search-by-keyword
// profile link built from the original handle.
func (r *Resolver) Resolve(ctx context.Context, handle string) domain.ResolvedIdentity {
	fallback := domain.ResolvedIdentity{
		ID:          unknownID,
		ProfileLink: "https://www.roblox.com/search/users?keyword=" + url.QueryEscape(handle),
		Resolved:    false,
	}

	body, err := json.Marshal(lookupRequest{Usernames: []string{handle}, ExcludeBannedUsers: true})
	if err != nil {
		r.logger.Warn("roblox lookup marshal failed", zap.Error(err))
		return fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/v1/usernames/users", bytes.NewReader(body))
	if err != nil {
		r.logger.Warn("roblox lookup request build failed", zap.Error(err))
		return fallback
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("roblox lookup failed", zap.String("handle", handle), zap.Error(err))
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("roblox lookup bad status",
			zap.String("handle", handle), zap.Int("status", resp.StatusCode))
		return fallback
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		r.logger.Warn("roblox lookup decode failed", zap.Error(err))
		return fallback
	}
	if len(parsed.Data) == 0 {
		return fallback
	}

	id := fmt.Sprintf("%d", parsed.Data[0].ID)
	return domain.ResolvedIdentity{
		ID:          id,
		ProfileLink: fmt.Sprintf("https://www.roblox.com/users/%s/profile", id),
		Resolved:    true,
	}
}
