package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/pricesheets-backend/api/controllers"
	engagementcontrollers "github.com/angelmondragon/pricesheets-backend/api/controllers/engagement"
	sendcontrollers "github.com/angelmondragon/pricesheets-backend/api/controllers/sends"
	"github.com/angelmondragon/pricesheets-backend/api/middleware"
	"github.com/angelmondragon/pricesheets-backend/internal/distribution"
	"github.com/angelmondragon/pricesheets-backend/internal/engagement"
	"github.com/angelmondragon/pricesheets-backend/internal/notifications"
	"github.com/angelmondragon/pricesheets-backend/internal/publicview"
	"github.com/angelmondragon/pricesheets-backend/pkg/config"
	"github.com/angelmondragon/pricesheets-backend/pkg/db"
	"github.com/angelmondragon/pricesheets-backend/pkg/logger"
	"github.com/angelmondragon/pricesheets-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	sheetService publicview.Service,
	distributionService distribution.Service,
	engagementService engagement.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.ClientAddress(cfg.Proxy.TrustedHops),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// A typed nil client must not reach the interface-based middleware.
	var idempotencyStore redis.IdempotencyStore
	var limiter middleware.RateLimiterStore
	readiness := map[string]controllers.Pinger{}
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisClient != nil {
		idempotencyStore = redisClient
		limiter = redisClient
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	sheetPolicy := middleware.NewRateLimitPolicy("sheets", cfg.PublicRateLimit.Window, cfg.PublicRateLimit.IPLimit)
	r.With(middleware.RateLimit(sheetPolicy, limiter, logg)).
		Get("/sheets/{documentId}", controllers.PublicSheet(sheetService, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/documents/{documentId}", func(r chi.Router) {
			r.Post("/sends", sendcontrollers.CreateSends(distributionService, logg))
			r.Get("/sends", sendcontrollers.ListSends(distributionService, logg))
			r.Get("/preview", controllers.PreviewSheet(sheetService, logg))
		})

		r.Get("/engagement", engagementcontrollers.Summary(engagementService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	return r
}
