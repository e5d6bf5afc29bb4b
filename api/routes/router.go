package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motoyard/motoyard-backend/api/controllers"
	"github.com/motoyard/motoyard-backend/api/middleware"
	authsvc "github.com/motoyard/motoyard-backend/internal/auth"
	"github.com/motoyard/motoyard-backend/internal/catalog"
	"github.com/motoyard/motoyard-backend/internal/images"
	usersvc "github.com/motoyard/motoyard-backend/internal/users"
	"github.com/motoyard/motoyard-backend/pkg/auth/session"
	"github.com/motoyard/motoyard-backend/pkg/config"
	"github.com/motoyard/motoyard-backend/pkg/db"
	"github.com/motoyard/motoyard-backend/pkg/logger"
	"github.com/motoyard/motoyard-backend/pkg/metrics"
	"github.com/motoyard/motoyard-backend/pkg/redis"
	"github.com/motoyard/motoyard-backend/pkg/storage/gcs"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *redis.Client
	GCS            gcs.Pinger
	SessionChecker session.AccessSessionChecker
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *metrics.HTTPMetrics

	AuthService    authsvc.Service
	UserService    usersvc.Service
	CatalogService catalog.Service
	ImageService   images.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.CORS),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUserLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis, deps.GCS))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/login", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).
				Post("/access-token", controllers.LoginAccessToken(deps.AuthService, logg))
			r.Post("/refresh-token", controllers.LoginRefreshToken(deps.AuthService, logg))
			r.With(middleware.Auth(cfg.JWT, deps.SessionChecker, logg)).
				Post("/test-token", controllers.LoginTestToken(deps.AuthService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).
				Post("/", controllers.RegisterUser(deps.UserService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
				r.Get("/me", controllers.UserProfile(deps.UserService, logg))
				r.Put("/me", controllers.UpdateUserProfile(deps.UserService, logg))
				r.With(middleware.RequireSuperuser(logg)).
					Get("/", controllers.ListUsers(deps.UserService, logg))
			})
		})

		r.Route("/motorcycles", func(r chi.Router) {
			r.Get("/", controllers.ListMotorcycles(deps.CatalogService, logg))
			r.Get("/{motorcycleId}", controllers.GetMotorcycle(deps.CatalogService, logg))

			r.Group(func(r chi.Router) {
				r.Use(
					middleware.Auth(cfg.JWT, deps.SessionChecker, logg),
					middleware.RequireSuperuser(logg),
				)
				r.Post("/", controllers.CreateMotorcycle(deps.CatalogService, logg))
				r.Put("/{motorcycleId}", controllers.UpdateMotorcycle(deps.CatalogService, logg))
				r.Delete("/{motorcycleId}", controllers.DeleteMotorcycle(deps.CatalogService, logg))
				r.Post("/{motorcycleId}/productImage", controllers.AttachProductImage(deps.ImageService, logg))
			})
		})

		r.Route("/productImage", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
			r.Post("/", controllers.UploadProductImage(deps.ImageService, logg))
			r.Delete("/", controllers.DeleteProductImage(deps.ImageService, logg))
		})
	})

	return r
}
