package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rodrigoferraz/autovendas-backend/api/controllers"
	"github.com/rodrigoferraz/autovendas-backend/api/middleware"
	"github.com/rodrigoferraz/autovendas-backend/internal/negotiations"
	"github.com/rodrigoferraz/autovendas-backend/internal/notifications"
	"github.com/rodrigoferraz/autovendas-backend/pkg/config"
	"github.com/rodrigoferraz/autovendas-backend/pkg/guard"
	"github.com/rodrigoferraz/autovendas-backend/pkg/logger"
	"github.com/rodrigoferraz/autovendas-backend/pkg/metrics"
	"github.com/rodrigoferraz/autovendas-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         *redis.Client
	Guard         *guard.Guard
	Negotiations  negotiations.Service
	Notifications notifications.Service
	Metrics       *metrics.HTTPMetrics
	PromGatherer  prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	writeLimit := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		writeLimit = middleware.WriteRateLimit(cfg.RateLimit, deps.Redis, logg)
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(),
	)

	healthDeps := map[string]controllers.Pinger{"database": deps.DB}
	if deps.Redis != nil {
		healthDeps["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})

	if deps.PromGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.PromGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/negotiations", func(r chi.Router) {
			r.Get("/", controllers.ListNegotiations(deps.Negotiations, logg))
			r.Get("/{negotiationID}", controllers.GetNegotiation(deps.Negotiations, logg))
			r.Get("/{negotiationID}/history", controllers.GetNegotiationHistory(deps.Negotiations, logg))

			// Mutations carry the duplicate guard plus the write rate limit.
			r.Group(func(r chi.Router) {
				r.Use(writeLimit)

				r.With(middleware.DuplicateGuard(deps.Guard, middleware.GuardCritical, logg)).
					Post("/", controllers.CreateNegotiation(deps.Negotiations, logg))
				r.With(middleware.DuplicateGuard(deps.Guard, middleware.GuardCritical, logg)).
					Post("/{negotiationID}/respond", controllers.RespondNegotiation(deps.Negotiations, logg))
				r.With(middleware.DuplicateGuard(deps.Guard, middleware.GuardCritical, logg)).
					Post("/{negotiationID}/messages", controllers.AddNegotiationMessage(deps.Negotiations, logg))
				r.With(middleware.DuplicateGuard(deps.Guard, middleware.GuardPerUser, logg)).
					Post("/{negotiationID}/cancel", controllers.CancelNegotiation(deps.Negotiations, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Group(func(r chi.Router) {
				r.Use(writeLimit)
				r.With(middleware.DuplicateGuard(deps.Guard, middleware.GuardPerUser, logg)).
					Post("/{notificationID}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
				r.With(middleware.DuplicateGuard(deps.Guard, middleware.GuardPerUser, logg)).
					Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			})
		})
	})

	return r
}
