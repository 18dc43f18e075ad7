package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scanningworld/scanningworld-backend/api/controllers"
	"github.com/scanningworld/scanningworld-backend/api/middleware"
	"github.com/scanningworld/scanningworld-backend/internal/auth"
	"github.com/scanningworld/scanningworld-backend/internal/places"
	"github.com/scanningworld/scanningworld-backend/internal/regions"
	"github.com/scanningworld/scanningworld-backend/internal/scan"
	"github.com/scanningworld/scanningworld-backend/internal/users"
	"github.com/scanningworld/scanningworld-backend/pkg/config"
	"github.com/scanningworld/scanningworld-backend/pkg/logger"
	"github.com/scanningworld/scanningworld-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       *redis.Client
	Registry    *prometheus.Registry
	AuthService auth.Service
	RegionsSvc  regions.Service
	PlacesSvc   places.Service
	ScanSvc     scan.Service
	UserRepo    *users.Repository
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginPhoneLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterPhoneLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/password-reset", controllers.AuthPasswordResetRequest(p.AuthService, logg))
		r.Post("/password-reset/confirm", controllers.AuthPasswordResetConfirm(p.AuthService, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/v1/auth/logout", controllers.AuthLogout(p.AuthService, logg))

		r.Route("/v1/users", func(r chi.Router) {
			r.Get("/me", controllers.UserMe(p.UserRepo, logg))
			r.Put("/me/region", controllers.UserUpdateRegion(p.UserRepo, p.RegionsSvc, logg))
			r.Put("/me/profile", controllers.UserUpdateProfile(p.UserRepo, logg))
		})

		r.Post("/v1/scan", controllers.ScanRedeem(p.ScanSvc, logg))

		r.Route("/v1/regions", func(r chi.Router) {
			r.Get("/", controllers.RegionList(p.RegionsSvc, logg))
			r.Get("/{regionId}", controllers.RegionGet(p.RegionsSvc, logg))
			r.Get("/{regionId}/places", controllers.PlaceListByRegion(p.PlacesSvc, logg))
		})

		r.Route("/v1/places", func(r chi.Router) {
			r.Get("/{placeId}", controllers.PlaceGet(p.PlacesSvc, logg))
			r.Get("/{placeId}/reviews", controllers.PlaceReviews(p.PlacesSvc, logg))
			r.Post("/{placeId}/reviews", controllers.PlaceAddReview(p.PlacesSvc, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/regions", func(r chi.Router) {
			r.Post("/", controllers.RegionCreate(p.RegionsSvc, logg))
			r.Put("/{regionId}", controllers.RegionUpdate(p.RegionsSvc, logg))
			r.Delete("/{regionId}", controllers.RegionDelete(p.RegionsSvc, logg))
		})
		r.Route("/places", func(r chi.Router) {
			r.Post("/", controllers.PlaceCreate(p.PlacesSvc, logg))
			r.Put("/{placeId}", controllers.PlaceUpdate(p.PlacesSvc, logg))
			r.Delete("/{placeId}", controllers.PlaceDelete(p.PlacesSvc, logg))
		})
	})

	return r
}
