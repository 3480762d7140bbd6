package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/campusfindz/campusfindz-backend/api/middleware"
	"github.com/campusfindz/campusfindz-backend/internal/auth"
	"github.com/campusfindz/campusfindz-backend/pkg/config"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/types"
)

type testAuthService struct {
	beginFn    func(ctx context.Context, sessionID, redirect, clientIP string) (*auth.BeginLoginResult, error)
	completeFn func(ctx context.Context, sessionID, state, code string) (*auth.CompleteLoginResult, error)
	logoutFn   func(ctx context.Context, sessionID string) error
	sessionFn  func(ctx context.Context, sessionID string) (*auth.SessionInfo, error)
}

func (s *testAuthService) BeginLogin(ctx context.Context, sessionID, redirect, clientIP string) (*auth.BeginLoginResult, error) {
	if s.beginFn != nil {
		return s.beginFn(ctx, sessionID, redirect, clientIP)
	}
	return &auth.BeginLoginResult{}, nil
}

func (s *testAuthService) CompleteLogin(ctx context.Context, sessionID, state, code string) (*auth.CompleteLoginResult, error) {
	if s.completeFn != nil {
		return s.completeFn(ctx, sessionID, state, code)
	}
	return &auth.CompleteLoginResult{}, nil
}

func (s *testAuthService) Logout(ctx context.Context, sessionID string) error {
	if s.logoutFn != nil {
		return s.logoutFn(ctx, sessionID)
	}
	return nil
}

func (s *testAuthService) Session(ctx context.Context, sessionID string) (*auth.SessionInfo, error) {
	if s.sessionFn != nil {
		return s.sessionFn(ctx, sessionID)
	}
	return &auth.SessionInfo{}, nil
}

var testCookieCfg = config.SessionConfig{CookieName: "cf_session", TTL: 7 * 24 * time.Hour}

func findCookie(t *testing.T, resp *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestLoginRedirectsAndSetsCookie(t *testing.T) {
	svc := &testAuthService{
		beginFn: func(ctx context.Context, sessionID, redirect, clientIP string) (*auth.BeginLoginResult, error) {
			if redirect != "/posts" {
				t.Fatalf("redirect not forwarded, got %q", redirect)
			}
			return &auth.BeginLoginResult{
				AuthURL:   "https://accounts.example.com/auth?state=abc",
				SessionID: "sid-login",
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login?redirect=/posts", nil)
	resp := httptest.NewRecorder()
	Login(svc, testCookieCfg, testLogger())(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "https://accounts.example.com/auth?state=abc" {
		t.Fatalf("unexpected redirect target %q", loc)
	}
	cookie := findCookie(t, resp, testCookieCfg.CookieName)
	if cookie == nil || cookie.Value != "sid-login" {
		t.Fatalf("session cookie not written: %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie attributes wrong: %+v", cookie)
	}
	if cookie.Secure {
		t.Fatal("cookie must not be Secure on a plain HTTP request")
	}
}

func TestCallbackInvalidState(t *testing.T) {
	svc := &testAuthService{
		completeFn: func(ctx context.Context, sessionID, state, code string) (*auth.CompleteLoginResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "Invalid state parameter. Possible CSRF attack.")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?state=forged&code=x", nil)
	resp := httptest.NewRecorder()
	Callback(svc, testCookieCfg, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body types.ErrorEnvelope
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != string(pkgerrors.CodeInvalidState) {
		t.Fatalf("unexpected code %s", body.Code)
	}
	if body.Message != "Invalid state parameter. Possible CSRF attack." {
		t.Fatalf("unexpected message %q", body.Message)
	}
}

func TestCallbackRotatesCookieAndRedirects(t *testing.T) {
	svc := &testAuthService{
		completeFn: func(ctx context.Context, sessionID, state, code string) (*auth.CompleteLoginResult, error) {
			if sessionID != "sid-old" {
				t.Fatalf("expected cookie session forwarded, got %q", sessionID)
			}
			return &auth.CompleteLoginResult{SessionID: "sid-new", Redirect: "/me"}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?state=ok&code=x", nil)
	req = req.WithContext(middleware.WithSessionID(req.Context(), "sid-old"))
	resp := httptest.NewRecorder()
	Callback(svc, testCookieCfg, testLogger())(resp, req)

	if resp.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.Code)
	}
	if loc := resp.Header().Get("Location"); loc != "/me" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	cookie := findCookie(t, resp, testCookieCfg.CookieName)
	if cookie == nil || cookie.Value != "sid-new" {
		t.Fatalf("rotated cookie not written: %+v", cookie)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	called := false
	svc := &testAuthService{
		logoutFn: func(ctx context.Context, sessionID string) error {
			called = true
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(middleware.WithSessionID(req.Context(), "sid-1"))
	resp := httptest.NewRecorder()
	Logout(svc, testCookieCfg, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
	if !called {
		t.Fatal("expected logout forwarded to service")
	}
	cookie := findCookie(t, resp, testCookieCfg.CookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected expired cookie, got %+v", cookie)
	}
}

func TestSessionEndpoint(t *testing.T) {
	svc := &testAuthService{
		sessionFn: func(ctx context.Context, sessionID string) (*auth.SessionInfo, error) {
			return &auth.SessionInfo{LoggedIn: true, Email: "student@wit.edu", IsAdmin: true}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	resp := httptest.NewRecorder()
	Session(svc, testLogger())(resp, req)

	var envelope struct {
		Status string           `json:"status"`
		Data   auth.SessionInfo `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Status != types.StatusSuccess {
		t.Fatalf("unexpected status %q", envelope.Status)
	}
	if !envelope.Data.LoggedIn || !envelope.Data.IsAdmin {
		t.Fatalf("unexpected session info %+v", envelope.Data)
	}
}

func TestCallbackDomainRejectedRendersHTML(t *testing.T) {
	svc := &testAuthService{
		completeFn: func(context.Context, string, string, string) (*auth.CompleteLoginResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDomainNotAllowed, "email domain not allowed")
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/callback?state=s&code=c", nil)
	rec := httptest.NewRecorder()

	Callback(svc, testCookieCfg, testLogger())(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "Account not allowed") {
		t.Fatalf("body missing rejection heading: %q", rec.Body.String())
	}
}
