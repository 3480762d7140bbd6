package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) SessionKey(sessionID string) string {
	return fmt.Sprintf("sess:%s", sessionID)
}

func newTestManager(store *mockStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestManagerCreateAndGet(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	sid, err := manager.Create(ctx, Data{UserID: "user-1", Email: "a@wit.edu", LoggedIn: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	data, err := manager.Get(ctx, sid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if data.UserID != "user-1" || !data.LoggedIn {
		t.Fatalf("unexpected session data %+v", data)
	}

	if _, err := manager.Get(ctx, "missing"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestManagerOAuthStateSingleUse(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	sid, err := manager.SetOAuthState(ctx, "", "state-token", "/posts")
	if err != nil {
		t.Fatalf("set state: %v", err)
	}

	if _, err := manager.TakeOAuthState(ctx, sid, "wrong-token"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected mismatch for wrong token, got %v", err)
	}

	// The failed attempt burned the token. Even the correct value must
	// now be rejected.
	if _, err := manager.TakeOAuthState(ctx, sid, "state-token"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected mismatch after token consumed, got %v", err)
	}
}

func TestManagerOAuthStateHappyPath(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	sid, err := manager.SetOAuthState(ctx, "", "State-Token", "/posts/42")
	if err != nil {
		t.Fatalf("set state: %v", err)
	}

	data, err := manager.TakeOAuthState(ctx, sid, "State-Token")
	if err != nil {
		t.Fatalf("take state: %v", err)
	}
	if data.OAuthRedirect != "/posts/42" {
		t.Fatalf("expected redirect preserved, got %q", data.OAuthRedirect)
	}

	// Replay with the same valid value must fail.
	if _, err := manager.TakeOAuthState(ctx, sid, "State-Token"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected mismatch on replay, got %v", err)
	}
}

func TestManagerOAuthStateCaseSensitive(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	sid, err := manager.SetOAuthState(ctx, "", "AbC123", "")
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	if _, err := manager.TakeOAuthState(ctx, sid, "abc123"); !errors.Is(err, ErrStateMismatch) {
		t.Fatalf("expected case-sensitive comparison to fail, got %v", err)
	}
}

func TestManagerPromoteRotatesSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	preLogin, err := manager.SetOAuthState(ctx, "", "state", "/")
	if err != nil {
		t.Fatalf("set state: %v", err)
	}

	sid, err := manager.Promote(ctx, preLogin, Data{UserID: "user-1", Email: "a@wit.edu"})
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if sid == preLogin {
		t.Fatalf("expected a fresh session id after login")
	}
	if _, err := manager.Get(ctx, preLogin); !errors.Is(err, ErrNoSession) {
		t.Fatalf("pre-login session should be destroyed, got %v", err)
	}
	data, err := manager.Get(ctx, sid)
	if err != nil {
		t.Fatalf("get promoted: %v", err)
	}
	if !data.LoggedIn || data.OAuthState != "" {
		t.Fatalf("unexpected promoted session %+v", data)
	}
}

func TestManagerDestroy(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(store)
	ctx := context.Background()

	sid, err := manager.Create(ctx, Data{UserID: "user-1", LoggedIn: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := manager.Destroy(ctx, sid); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := manager.Get(ctx, sid); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after destroy, got %v", err)
	}
}
