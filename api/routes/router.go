package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mapas-backend/api/controllers"
	"github.com/angelmondragon/mapas-backend/api/middleware"
	"github.com/angelmondragon/mapas-backend/internal/auth"
	"github.com/angelmondragon/mapas-backend/internal/notifications"
	"github.com/angelmondragon/mapas-backend/internal/users"
	"github.com/angelmondragon/mapas-backend/pkg/auth/session"
	"github.com/angelmondragon/mapas-backend/pkg/config"
	"github.com/angelmondragon/mapas-backend/pkg/db/models"
	"github.com/angelmondragon/mapas-backend/pkg/i18n"
	"github.com/angelmondragon/mapas-backend/pkg/logger"
	"github.com/angelmondragon/mapas-backend/pkg/metrics"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type subsiteResolver interface {
	Resolve(ctx context.Context, host string) (*int64, error)
}

type actorLoader interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

type notificationGenerator interface {
	Generate(ctx context.Context, req notifications.Request) (notifications.Result, error)
}

// Params bundles everything the router wires into handlers. Gatherer,
// HTTPMetrics, RateLimiter and Subsites may be nil.
type Params struct {
	Config        *config.Config
	Logger        *logger.Logger
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	DB            controllers.Pinger
	Redis         controllers.Pinger
	RateLimiter   rateLimiter
	Sessions      sessionManager
	Subsites      subsiteResolver
	Actors        actorLoader
	Auth          auth.Service
	Users         users.Service
	Notifications notifications.Service
	Generator     notificationGenerator
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	locale := i18n.Default()
	if tag, ok := i18n.Parse(cfg.App.Locale); ok {
		locale = tag
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Locale(locale),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{"db": p.DB, "redis": p.Redis}, logg))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		if p.Subsites != nil {
			r.Use(middleware.Subsite(p.Subsites, cfg.App.TrustProxy, logg))
		}

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, p.RateLimiter, logg)).Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, p.RateLimiter, logg)).Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(p.Sessions, cfg.JWT, logg))
			r.Post("/logout", controllers.AuthLogout(p.Sessions, cfg.JWT, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.Actor(p.Actors, logg))

			r.With(middleware.RequireUser(logg)).Get("/me", controllers.GetMe(p.Users, cfg.App.BaseURL, logg))

			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", controllers.GetUser(p.Users, cfg.App.BaseURL, logg))
				r.Get("/agents", controllers.ListUserAgents(p.Users, logg))
				r.Get("/subsites", controllers.ListUserSubsites(p.Users, logg))
				r.Get("/can", controllers.UserCan(p.Users, logg))
				r.Get("/roles/{role}", controllers.UserIs(p.Users, logg))
				r.Get("/meta/{key}", controllers.GetUserMeta(p.Users, logg))
				r.Get("/{kind}", controllers.ListUserEntities(p.Users, logg))
				r.Get("/{kind}/controlled", controllers.ListUserControlled(p.Users, logg))
				r.Get("/{kind}/control-agents", controllers.ListUserControlAgents(p.Users, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireUser(logg))
					r.Delete("/", controllers.DeleteUser(p.Users, logg))
					r.Put("/profile", controllers.SetUserProfile(p.Users, cfg.App.BaseURL, logg))
					r.Post("/roles", controllers.AddUserRole(p.Users, logg))
					r.Delete("/roles/{role}", controllers.RemoveUserRole(p.Users, logg))
					r.Put("/meta/{key}", controllers.SetUserMeta(p.Users, logg))
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.Actor(p.Actors, logg))
			r.Use(middleware.RequireUser(logg))

			r.Get("/", controllers.ListNotifications(p.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Notifications, logg))
			r.Post("/generate", controllers.GenerateNotifications(p.Generator, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Notifications, logg))
		})
	})

	return r
}
