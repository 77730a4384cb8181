package roblox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/agency-ops/report-desk/internal/config"
)

func newTestResolver(serverURL string) *Resolver {
	return NewResolver(config.RobloxConfig{BaseURL: serverURL, TimeoutSeconds: 2}, zap.NewNop())
}

func TestResolve_Match(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/usernames/users", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":123456,"name":"player123","requestedUsername":"player123"}]}`))
	}))
	defer srv.Close()

	identity := newTestResolver(srv.URL).Resolve(context.Background(), "player123")

	assert.True(t, identity.Resolved)
	assert.Equal(t, "123456", identity.ID)
	assert.Equal(t, "https://www.roblox.com/users/123456/profile", identity.ProfileLink)
}

func TestResolve_NoMatchFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	identity := newTestResolver(srv.URL).Resolve(context.Background(), "ghost player")

	assert.False(t, identity.Resolved)
	assert.Equal(t, "Unknown", identity.ID)
	assert.Equal(t, "https://www.roblox.com/search/users?keyword=ghost+player", identity.ProfileLink)
}

func TestResolve_ServerErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	identity := newTestResolver(srv.URL).Resolve(context.Background(), "player123")

	assert.False(t, identity.Resolved)
	assert.Equal(t, "Unknown", identity.ID)
}

func TestResolve_TransportErrorFallsBack(t *testing.T) {
	// Point at a closed server so the request itself fails.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	identity := newTestResolver(srv.URL).Resolve(context.Background(), "player123")

	assert.False(t, identity.Resolved)
	assert.Equal(t, "Unknown", identity.ID)
}

func TestResolve_GarbageBodyFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	identity := newTestResolver(srv.URL).Resolve(context.Background(), "player123")

	assert.False(t, identity.Resolved)
}
