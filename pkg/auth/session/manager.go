package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/campusfindz/campusfindz-backend/pkg/config"
	redisclient "github.com/campusfindz/campusfindz-backend/pkg/redis"
)

const sessionIDBytes = 32

// ErrNoSession is returned when a session ID has no backing record.
var ErrNoSession = errors.New("session not found")

// ErrStateMismatch is returned when the OAuth state token does not match
// the one bound to the session, or when none was stored.
var ErrStateMismatch = errors.New("oauth state mismatch")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(sessionID string) string
}

// Data is the server-side session record. The browser only ever holds
// the opaque session ID.
type Data struct {
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	LoggedIn      bool   `json:"logged_in"`
	OAuthState    string `json:"oauth_state,omitempty"`
	OAuthRedirect string `json:"oauth_redirect,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

// Manager handles opaque session creation, lookup, OAuth state binding,
// and destruction against Redis.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.SessionConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   cfg.TTL,
	}, nil
}

// TTL returns the configured session lifetime, used for cookie expiry.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create stores a fresh session record and returns its opaque ID.
func (m *Manager) Create(ctx context.Context, data Data) (string, error) {
	sid, err := generateSessionID()
	if err != nil {
		return "", err
	}
	data.CreatedAt = time.Now().Unix()
	if err := m.save(ctx, sid, data); err != nil {
		return "", err
	}
	return sid, nil
}

// Get loads the session record for the given ID.
func (m *Manager) Get(ctx context.Context, sessionID string) (Data, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Data{}, ErrNoSession
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return Data{}, ErrNoSession
		}
		return Data{}, err
	}
	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Data{}, fmt.Errorf("decoding session record: %w", err)
	}
	return data, nil
}

// SetOAuthState binds a one-time state token and post-login redirect to
// the session, creating the session if none exists yet.
func (m *Manager) SetOAuthState(ctx context.Context, sessionID, state, redirect string) (string, error) {
	data, err := m.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			return "", err
		}
		sessionID = ""
		data = Data{CreatedAt: time.Now().Unix()}
	}
	if sessionID == "" {
		sessionID, err = generateSessionID()
		if err != nil {
			return "", err
		}
	}
	data.OAuthState = state
	data.OAuthRedirect = redirect
	if err := m.save(ctx, sessionID, data); err != nil {
		return "", err
	}
	return sessionID, nil
}

// TakeOAuthState validates the provided state against the session's
// stored token and clears it so the token cannot be replayed. The
// comparison is exact and case sensitive.
func (m *Manager) TakeOAuthState(ctx context.Context, sessionID, provided string) (Data, error) {
	data, err := m.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return Data{}, ErrStateMismatch
		}
		return Data{}, err
	}
	stored := data.OAuthState
	data.OAuthState = ""
	if saveErr := m.save(ctx, sessionID, data); saveErr != nil {
		return Data{}, saveErr
	}
	if stored == "" || provided == "" {
		return Data{}, ErrStateMismatch
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) != 1 {
		return Data{}, ErrStateMismatch
	}
	return data, nil
}

// Promote replaces the session with a fresh logged-in record for the
// given user, destroying the pre-login session so its ID cannot be
// reused after authentication.
func (m *Manager) Promote(ctx context.Context, oldSessionID string, data Data) (string, error) {
	data.LoggedIn = true
	data.OAuthState = ""
	sid, err := m.Create(ctx, data)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(oldSessionID) != "" {
		if err := m.Destroy(ctx, oldSessionID); err != nil {
			return "", err
		}
	}
	return sid, nil
}

// Destroy removes the session record.
func (m *Manager) Destroy(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return m.store.Del(ctx, m.keyer.SessionKey(sessionID))
}

func (m *Manager) save(ctx context.Context, sessionID string, data Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session record: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(sessionID), string(payload), m.ttl)
}

func generateSessionID() (string, error) {
	bytes := make([]byte, sessionIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
