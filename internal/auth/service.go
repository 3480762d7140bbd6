package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/internal/users"
	"github.com/campusfindz/campusfindz-backend/pkg/auth/session"
	"github.com/campusfindz/campusfindz-backend/pkg/config"
	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	pkgerrors "github.com/campusfindz/campusfindz-backend/pkg/errors"
	"github.com/campusfindz/campusfindz-backend/pkg/google"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

const stateBytes = 32

// sessionManager is the slice of the session manager the auth flow needs.
type sessionManager interface {
	Get(ctx context.Context, sessionID string) (session.Data, error)
	SetOAuthState(ctx context.Context, sessionID, state, redirect string) (string, error)
	TakeOAuthState(ctx context.Context, sessionID, provided string) (session.Data, error)
	Promote(ctx context.Context, oldSessionID string, data session.Data) (string, error)
	Destroy(ctx context.Context, sessionID string) error
	TTL() time.Duration
}

type userUpserter interface {
	UpsertFromGoogle(ctx context.Context, profile users.GoogleProfileDTO) (*models.User, error)
}

// AdminResolver answers admin checks for arbitrary users.
type AdminResolver interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) bool
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// BeginLoginResult carries the redirect target for the OAuth hop and the
// session the state token was bound to.
type BeginLoginResult struct {
	AuthURL   string
	SessionID string
}

// CompleteLoginResult carries the rotated session and the user it now
// belongs to.
type CompleteLoginResult struct {
	SessionID string
	User      *users.UserDTO
	Redirect  string
}

// SessionInfo is the wire shape for the current-session endpoint.
type SessionInfo struct {
	LoggedIn bool    `json:"logged_in"`
	UserID   string  `json:"user_id,omitempty"`
	Email    string  `json:"email,omitempty"`
	Name     string  `json:"name,omitempty"`
	Picture  *string `json:"picture,omitempty"`
	IsAdmin  bool    `json:"is_admin"`
}

// Service drives the Google OAuth login flow and session lifecycle.
type Service interface {
	BeginLogin(ctx context.Context, sessionID, redirect, clientIP string) (*BeginLoginResult, error)
	CompleteLogin(ctx context.Context, sessionID, state, code string) (*CompleteLoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	Session(ctx context.Context, sessionID string) (*SessionInfo, error)
}

type service struct {
	sessions  sessionManager
	provider  google.IdentityProvider
	users     userUpserter
	resolver  AdminResolver
	limiter   rateLimiter
	domain    string
	rateLimit config.AuthRateLimitConfig
	logg      *logger.Logger
}

// NewService wires the auth flow. The limiter may be nil, which disables
// login rate limiting.
func NewService(
	sessions sessionManager,
	provider google.IdentityProvider,
	upserter userUpserter,
	resolver AdminResolver,
	limiter rateLimiter,
	oauthCfg config.GoogleOAuthConfig,
	rateCfg config.AuthRateLimitConfig,
	logg *logger.Logger,
) (Service, error) {
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session manager required")
	}
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "identity provider required")
	}
	if upserter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users service required")
	}
	if resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "admin resolver required")
	}
	domain := strings.ToLower(strings.TrimSpace(oauthCfg.AllowedEmailDomain))
	if domain != "" && !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}
	return &service{
		sessions:  sessions,
		provider:  provider,
		users:     upserter,
		resolver:  resolver,
		limiter:   limiter,
		domain:    domain,
		rateLimit: rateCfg,
		logg:      logg,
	}, nil
}

func (s *service) BeginLogin(ctx context.Context, sessionID, redirect, clientIP string) (*BeginLoginResult, error) {
	if err := s.allowLogin(ctx, clientIP); err != nil {
		return nil, err
	}

	state, err := generateState()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate state token")
	}
	boundSession, err := s.sessions.SetOAuthState(ctx, sessionID, state, sanitizeRedirect(redirect))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bind state to session")
	}
	return &BeginLoginResult{
		AuthURL:   s.provider.AuthURL(state),
		SessionID: boundSession,
	}, nil
}

func (s *service) CompleteLogin(ctx context.Context, sessionID, state, code string) (*CompleteLoginResult, error) {
	data, err := s.sessions.TakeOAuthState(ctx, sessionID, state)
	if err != nil {
		if errors.Is(err, session.ErrStateMismatch) || errors.Is(err, session.ErrNoSession) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "Invalid state parameter. Possible CSRF attack.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify state")
	}

	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeAuthExchange, "authorization code missing")
	}
	profile, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeAuthExchange, err, "exchange authorization code")
	}

	if !s.emailAllowed(profile.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeDomainNotAllowed,
			fmt.Sprintf("Only %s accounts may sign in.", s.domain))
	}

	user, err := s.users.UpsertFromGoogle(ctx, users.GoogleProfileDTO{
		GoogleID: profile.GoogleID,
		Email:    profile.Email,
		Name:     profile.Name,
		Picture:  profile.Picture,
	})
	if err != nil {
		return nil, err
	}
	dto := users.FromModel(user)

	newSessionID, err := s.sessions.Promote(ctx, sessionID, session.Data{
		UserID:   user.ID.String(),
		Email:    dto.Email,
		Name:     dto.Name,
		Picture:  derefString(dto.Picture),
		LoggedIn: true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "establish session")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user logged in")
	}
	return &CompleteLoginResult{
		SessionID: newSessionID,
		User:      dto,
		Redirect:  data.OAuthRedirect,
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "destroy session")
	}
	return nil
}

func (s *service) Session(ctx context.Context, sessionID string) (*SessionInfo, error) {
	if sessionID == "" {
		return &SessionInfo{}, nil
	}
	data, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) {
			return &SessionInfo{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	if !data.LoggedIn {
		return &SessionInfo{}, nil
	}

	info := &SessionInfo{
		LoggedIn: true,
		UserID:   data.UserID,
		Email:    data.Email,
		Name:     data.Name,
	}
	if data.Picture != "" {
		picture := data.Picture
		info.Picture = &picture
	}
	if userID, err := uuid.Parse(data.UserID); err == nil {
		info.IsAdmin = s.resolver.IsAdmin(ctx, userID)
	}
	return info, nil
}

func (s *service) allowLogin(ctx context.Context, clientIP string) error {
	if s.limiter == nil || clientIP == "" || s.rateLimit.LoginIPLimit <= 0 {
		return nil
	}
	allowed, _, err := s.limiter.FixedWindowAllow(ctx, "login:"+clientIP, int64(s.rateLimit.LoginIPLimit), s.rateLimit.LoginWindow)
	if err != nil {
		// Rate limiting is advisory; an unreachable limiter must not block login.
		if s.logg != nil {
			s.logg.Error(ctx, "login rate limit check failed", err)
		}
		return nil
	}
	if !allowed {
		return pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts, slow down")
	}
	return nil
}

func (s *service) emailAllowed(email string) bool {
	if s.domain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(email)), s.domain)
}

// sanitizeRedirect only accepts same-site relative paths for the post-login
// redirect.
func sanitizeRedirect(redirect string) string {
	if redirect == "" {
		return ""
	}
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		return ""
	}
	return redirect
}

func generateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
