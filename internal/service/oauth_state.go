package service

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// StateManager signs and validates the OAuth state parameter. The state is an
// HS256 JWT carrying the wizard session id, so the callback can both reject
// forged redirects and resume the right session.
type StateManager struct {
	secret []byte
	ttl    time.Duration
}

// NewStateManager builds a new manager.
func NewStateManager(secret string, ttl time.Duration) *StateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateManager{secret: []byte(secret), ttl: ttl}
}

type stateClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Issue signs a state token bound to the wizard session.
func (m *StateManager) Issue(sessionID string) (string, error) {
	now := time.Now()
	claims := &stateClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates a state token and returns the embedded session id.
func (m *StateManager) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &stateClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := parsed.Claims.(*stateClaims)
	if !ok || !parsed.Valid {
		return "", errors.New("invalid state token")
	}
	return claims.SessionID, nil
}
