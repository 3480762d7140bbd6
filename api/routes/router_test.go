package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campusfindz/campusfindz-backend/api/controllers"
	"github.com/campusfindz/campusfindz-backend/internal/auth"
	"github.com/campusfindz/campusfindz-backend/internal/authz"
	"github.com/campusfindz/campusfindz-backend/internal/comments"
	"github.com/campusfindz/campusfindz-backend/internal/notifications"
	"github.com/campusfindz/campusfindz-backend/internal/photos"
	"github.com/campusfindz/campusfindz-backend/internal/posts"
	"github.com/campusfindz/campusfindz-backend/internal/users"
	"github.com/campusfindz/campusfindz-backend/pkg/auth/session"
	"github.com/campusfindz/campusfindz-backend/pkg/config"
	"github.com/campusfindz/campusfindz-backend/pkg/db/models"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
)

var (
	memberID = uuid.New()
	adminID  = uuid.New()
)

type stubSessions struct{}

func (stubSessions) Get(_ context.Context, sessionID string) (session.Data, error) {
	switch sessionID {
	case "sid-member":
		return session.Data{UserID: memberID.String(), Email: "member@wit.edu", LoggedIn: true}, nil
	case "sid-admin":
		return session.Data{UserID: adminID.String(), Email: "admin@wit.edu", LoggedIn: true}, nil
	}
	return session.Data{}, session.ErrNoSession
}

type stubResolver struct{}

func (stubResolver) IsAdmin(_ context.Context, userID uuid.UUID) bool {
	return userID == adminID
}

type stubAuthService struct{}

func (stubAuthService) BeginLogin(context.Context, string, string, string) (*auth.BeginLoginResult, error) {
	return &auth.BeginLoginResult{AuthURL: "https://accounts.google.com/o/oauth2/auth?state=x", SessionID: "sid-anon"}, nil
}

func (stubAuthService) CompleteLogin(context.Context, string, string, string) (*auth.CompleteLoginResult, error) {
	return &auth.CompleteLoginResult{SessionID: "sid-member", Redirect: "/"}, nil
}

func (stubAuthService) Logout(context.Context, string) error {
	return nil
}

func (stubAuthService) Session(context.Context, string) (*auth.SessionInfo, error) {
	return &auth.SessionInfo{}, nil
}

type stubUsersService struct{}

func (stubUsersService) Get(_ context.Context, _ authz.Actor, id uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id}, nil
}

func (stubUsersService) List(context.Context, authz.Actor, users.ListParams) (*users.ListResult, error) {
	return &users.ListResult{}, nil
}

func (stubUsersService) Update(_ context.Context, _ authz.Actor, id uuid.UUID, _ users.UpdateUserDTO) (*users.UserDTO, error) {
	return &users.UserDTO{ID: id}, nil
}

func (stubUsersService) Delete(context.Context, authz.Actor, uuid.UUID) error {
	return nil
}

func (stubUsersService) UpsertFromGoogle(context.Context, users.GoogleProfileDTO) (*models.User, error) {
	panic("not used by the router")
}

type stubPostsService struct{}

func (stubPostsService) Create(context.Context, authz.Actor, posts.CreatePostDTO) (*posts.PostDTO, error) {
	return &posts.PostDTO{ID: uuid.New()}, nil
}

func (stubPostsService) Get(_ context.Context, id uuid.UUID) (*posts.PostDTO, error) {
	return &posts.PostDTO{ID: id}, nil
}

func (stubPostsService) List(context.Context, posts.ListParams) (*posts.ListResult, error) {
	return &posts.ListResult{Items: []posts.PostDTO{}}, nil
}

func (stubPostsService) Update(_ context.Context, _ authz.Actor, id uuid.UUID, _ posts.UpdatePostDTO) (*posts.PostDTO, error) {
	return &posts.PostDTO{ID: id}, nil
}

func (stubPostsService) Delete(context.Context, authz.Actor, uuid.UUID) error {
	return nil
}

type stubCommentsService struct{}

func (stubCommentsService) Create(context.Context, authz.Actor, uuid.UUID, comments.CreateCommentDTO) (*comments.CommentDTO, error) {
	return &comments.CommentDTO{ID: uuid.New()}, nil
}

func (stubCommentsService) ListByPost(context.Context, uuid.UUID, comments.ListParams) (*comments.ListResult, error) {
	return &comments.ListResult{Items: []comments.CommentDTO{}}, nil
}

func (stubCommentsService) Update(_ context.Context, _ authz.Actor, id uuid.UUID, _ comments.UpdateCommentDTO) (*comments.CommentDTO, error) {
	return &comments.CommentDTO{ID: id}, nil
}

func (stubCommentsService) Delete(context.Context, authz.Actor, uuid.UUID) error {
	return nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(context.Context, notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{Items: []notifications.NotificationDTO{}}, nil
}

func (stubNotificationsService) MarkRead(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) UnreadCount(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

type stubPhotosService struct{}

func (stubPhotosService) Upload(context.Context, authz.Actor, string, io.Reader) (*photos.PhotoDTO, error) {
	return &photos.PhotoDTO{ID: uuid.New()}, nil
}

func (stubPhotosService) Get(_ context.Context, id uuid.UUID) (*photos.PhotoDTO, error) {
	return &photos.PhotoDTO{ID: id}, nil
}

func (stubPhotosService) Open(context.Context, uuid.UUID) (*photos.Content, error) {
	panic("not used by the router")
}

func (stubPhotosService) Delete(context.Context, authz.Actor, uuid.UUID) error {
	return nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Session.CookieName = "cf_session"
	cfg.Session.TTL = 7 * 24 * time.Hour
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(Params{
		Config:               cfg,
		Logger:               logg,
		Sessions:             stubSessions{},
		AdminResolver:        stubResolver{},
		AuthService:          stubAuthService{},
		UsersService:         stubUsersService{},
		PostsService:         stubPostsService{},
		CommentsService:      stubCommentsService{},
		NotificationsService: stubNotificationsService{},
		PhotosService:        stubPhotosService{},
		HealthDeps: []controllers.NamedPinger{
			{Name: "database", Pinger: stubPinger{}},
		},
	})
}

func do(t *testing.T, router http.Handler, method, target, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "cf_session", Value: sessionID})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicSurface(t *testing.T) {
	router := testRouter(t)

	cases := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"health live", http.MethodGet, "/health/live", http.StatusOK},
		{"health ready", http.MethodGet, "/health/ready", http.StatusOK},
		{"list posts", http.MethodGet, "/api/v1/posts", http.StatusOK},
		{"get post", http.MethodGet, "/api/v1/posts/" + uuid.NewString(), http.StatusOK},
		{"list comments", http.MethodGet, "/api/v1/posts/" + uuid.NewString() + "/comments", http.StatusOK},
		{"photo metadata", http.MethodGet, "/api/v1/photos/" + uuid.NewString(), http.StatusOK},
		{"session probe", http.MethodGet, "/api/v1/auth/session", http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.target, "")
			if rec.Code != tc.want {
				t.Fatalf("%s %s: status = %d, want %d", tc.method, tc.target, rec.Code, tc.want)
			}
		})
	}
}

func TestRouterGuardsWrites(t *testing.T) {
	router := testRouter(t)

	cases := []struct {
		name   string
		method string
		target string
	}{
		{"create post", http.MethodPost, "/api/v1/posts"},
		{"delete post", http.MethodDelete, "/api/v1/posts/" + uuid.NewString()},
		{"create comment", http.MethodPost, "/api/v1/posts/" + uuid.NewString() + "/comments"},
		{"list notifications", http.MethodGet, "/api/v1/notifications"},
		{"me", http.MethodGet, "/api/v1/users/me"},
		{"upload photo", http.MethodPost, "/api/v1/photos"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, router, tc.method, tc.target, "")
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("%s %s anonymous: status = %d, want 401", tc.method, tc.target, rec.Code)
			}
			var body struct {
				LoginURL string `json:"login_url"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.LoginURL == "" {
				t.Fatal("expected login_url hint on 401 responses")
			}
		})
	}
}

func TestRouterAdminListing(t *testing.T) {
	router := testRouter(t)

	if rec := do(t, router, http.MethodGet, "/api/v1/users", "sid-member"); rec.Code != http.StatusForbidden {
		t.Fatalf("member listing users: status = %d, want 403", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/api/v1/users", "sid-admin"); rec.Code != http.StatusOK {
		t.Fatalf("admin listing users: status = %d, want 200", rec.Code)
	}
}

func TestRouterSessionSeedsActor(t *testing.T) {
	router := testRouter(t)

	rec := do(t, router, http.MethodGet, "/api/v1/notifications", "sid-member")
	if rec.Code != http.StatusOK {
		t.Fatalf("member notifications: status = %d, want 200", rec.Code)
	}
}

func TestRouterLoginRedirects(t *testing.T) {
	router := testRouter(t)

	rec := do(t, router, http.MethodGet, "/api/v1/auth/login", "")
	if rec.Code != http.StatusFound {
		t.Fatalf("login: status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc == "" {
		t.Fatal("expected a Location header pointing at the provider")
	}
}
