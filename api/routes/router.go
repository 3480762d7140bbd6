package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusfindz/campusfindz-backend/api/controllers"
	"github.com/campusfindz/campusfindz-backend/api/middleware"
	"github.com/campusfindz/campusfindz-backend/internal/auth"
	"github.com/campusfindz/campusfindz-backend/internal/comments"
	"github.com/campusfindz/campusfindz-backend/internal/notifications"
	"github.com/campusfindz/campusfindz-backend/internal/photos"
	"github.com/campusfindz/campusfindz-backend/internal/posts"
	"github.com/campusfindz/campusfindz-backend/internal/users"
	"github.com/campusfindz/campusfindz-backend/pkg/auth/session"
	"github.com/campusfindz/campusfindz-backend/pkg/config"
	"github.com/campusfindz/campusfindz-backend/pkg/logger"
	"github.com/campusfindz/campusfindz-backend/pkg/metrics"
)

type sessionManager interface {
	Get(ctx context.Context, sessionID string) (session.Data, error)
}

// Params carries everything NewRouter needs to assemble the HTTP surface.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	Sessions      sessionManager
	AdminResolver middleware.AdminChecker
	HTTPMetrics   *metrics.HTTPMetrics
	Gatherer      prometheus.Gatherer

	AuthService          auth.Service
	UsersService         users.Service
	PostsService         posts.Service
	CommentsService      comments.Service
	NotificationsService notifications.Service
	PhotosService        photos.Service

	HealthDeps []controllers.NamedPinger
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(p.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.HealthDeps...))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session.CookieName, p.Sessions, p.AdminResolver, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", controllers.Login(p.AuthService, cfg.Session, logg))
			r.Get("/callback", controllers.Callback(p.AuthService, cfg.Session, logg))
			r.Post("/logout", controllers.Logout(p.AuthService, cfg.Session, logg))
			r.Get("/session", controllers.Session(p.AuthService, logg))
		})

		r.Route("/posts", func(r chi.Router) {
			// The bulletin is readable without a session. Writes require one.
			r.Get("/", controllers.ListPosts(p.PostsService, logg))
			r.Get("/{postID}", controllers.GetPost(p.PostsService, logg))
			r.Get("/{postID}/comments", controllers.ListComments(p.CommentsService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(logg))
				r.Post("/", controllers.CreatePost(p.PostsService, logg))
				r.Put("/{postID}", controllers.UpdatePost(p.PostsService, logg))
				r.Delete("/{postID}", controllers.DeletePost(p.PostsService, logg))
				r.Post("/{postID}/comments", controllers.CreateComment(p.CommentsService, logg))
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Put("/{commentID}", controllers.UpdateComment(p.CommentsService, logg))
			r.Delete("/{commentID}", controllers.DeleteComment(p.CommentsService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.Get("/", controllers.ListNotifications(p.NotificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(p.NotificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.NotificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(p.NotificationsService, logg))
			// Legacy clients mark read with a bare PUT on the resource.
			r.Put("/{notificationID}", controllers.MarkNotificationRead(p.NotificationsService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireAuth(logg))
			r.With(middleware.RequireAdmin(logg)).Get("/", controllers.ListUsers(p.UsersService, logg))
			r.Get("/me", controllers.Me(p.UsersService, logg))
			r.Get("/{userID}", controllers.GetUser(p.UsersService, logg))
			r.Put("/{userID}", controllers.UpdateUser(p.UsersService, logg))
			r.Delete("/{userID}", controllers.DeleteUser(p.UsersService, logg))
		})

		r.Route("/photos", func(r chi.Router) {
			r.Get("/{photoID}", controllers.GetPhoto(p.PhotosService, logg))
			r.Get("/{photoID}/content", controllers.ServePhoto(p.PhotosService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth(logg))
				r.Post("/", controllers.UploadPhoto(p.PhotosService, logg))
				r.Delete("/{photoID}", controllers.DeletePhoto(p.PhotosService, logg))
			})
		})
	})

	return r
}
