package controllers

import (
	"net/http"
	"strings"

	"github.com/campusfindz/campusfindz-backend/api/middleware"
	"github.com/campusfindz/campusfindz-backend/api/responses"
	"github.com/campusfindz/campusfindz-backend/internal/auth"
	"github.com/campusfindz/campusfindz-backend/pkg/auth/session"
	"github.com/campusfindz/campusfindz-backend/pkg/config"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

// Login starts the OAuth flow: binds a fresh state token to the caller's
// session and redirects to the provider.
func Login(svc auth.Service, cookieCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		redirect := strings.TrimSpace(r.URL.Query().Get("redirect"))
		result, err := svc.BeginLogin(r.Context(), middleware.SessionIDFromContext(r.Context()), redirect, clientIP(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session.WriteCookie(w, r, cookieCfg.CookieName, result.SessionID, cookieCfg.TTL)
		http.Redirect(w, r, result.AuthURL, http.StatusFound)
	}
}

// Callback completes the OAuth flow. The state token is single use: a
// mismatch burns it and the client has to restart the login.
func Callback(svc auth.Service, cookieCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		query := r.URL.Query()
		result, err := svc.CompleteLogin(
			r.Context(),
			middleware.SessionIDFromContext(r.Context()),
			query.Get("state"),
			query.Get("code"),
		)
		if err != nil {
			// The callback is hit by a browser, not an API client. A
			// rejected email domain gets a readable page instead of JSON.
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeDomainNotAllowed {
				writeDomainRejectedPage(w)
				return
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session.WriteCookie(w, r, cookieCfg.CookieName, result.SessionID, cookieCfg.TTL)
		target := result.Redirect
		if target == "" {
			target = "/"
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}

func writeDomainRejectedPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Account not allowed</title></head>
<body>
<h1>Account not allowed</h1>
<p>Sign in with your campus Google account to use the lost &amp; found bulletin.</p>
<p><a href="` + responses.LoginPath + `">Try again</a></p>
</body>
</html>
`))
}

// Logout destroys the server-side session and clears the cookie.
func Logout(svc auth.Service, cookieCfg config.SessionConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		if err := svc.Logout(r.Context(), middleware.SessionIDFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		session.ClearCookie(w, r, cookieCfg.CookieName)
		responses.WriteSuccess(w, map[string]string{"message": "logged out"})
	}
}

// Session reports who the current cookie belongs to. Anonymous requests
// get logged_in=false rather than an error.
func Session(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		info, err := svc.Session(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return forwarded
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return host
}
