package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/api/responses"
	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/pkg/auth/session"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

type sessionReader interface {
	Get(ctx context.Context, sessionID string) (session.Data, error)
}

// AdminChecker answers admin checks for arbitrary users.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) bool
}

// Session resolves the session cookie into an actor on the request
// context. Anonymous requests pass through untouched; route-level guards
// decide whether that is acceptable.
func Session(cookieName string, sessions sessionReader, resolver AdminChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := session.ReadCookie(r, cookieName)
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx = WithSessionID(ctx, sessionID)

			data, err := sessions.Get(ctx, sessionID)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session"))
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if data.LoggedIn {
				if userID, parseErr := uuid.Parse(data.UserID); parseErr == nil {
					actor := authz.Actor{UserID: userID}
					if resolver != nil {
						actor.IsAdmin = resolver.IsAdmin(ctx, userID)
					}
					ctx = WithActor(ctx, actor)
					if logg != nil {
						ctx = logg.WithUserID(ctx, data.UserID)
						ctx = logg.WithActorAdmin(ctx, actor.IsAdmin)
					}
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with a 401 that carries the
// login URL.
func RequireAuth(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ActorFromContext(r.Context()); !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects non-admin actors. Anonymous requests get a 401 so
// clients can distinguish "log in first" from "not allowed".
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "Authentication required"))
				return
			}
			if !actor.IsAdmin {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
