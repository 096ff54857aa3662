package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ecoswap/ecoswap-api/api/controllers"
	"github.com/ecoswap/ecoswap-api/api/middleware"
	"github.com/ecoswap/ecoswap-api/internal/exchanges"
	"github.com/ecoswap/ecoswap-api/internal/products"
	"github.com/ecoswap/ecoswap-api/internal/users"
	"github.com/ecoswap/ecoswap-api/pkg/config"
	"github.com/ecoswap/ecoswap-api/pkg/db"
	"github.com/ecoswap/ecoswap-api/pkg/logger"
	"github.com/ecoswap/ecoswap-api/pkg/metrics"
	"github.com/ecoswap/ecoswap-api/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	exchangeService exchanges.Service,
	productService products.Service,
	userService users.Service,
	notificationsService controllers.NotificationInbox,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigin),
	)

	exchangePolicy := middleware.NewRateLimitPolicy(
		"exchanges",
		cfg.RateLimit.ExchangeWindow,
		cfg.RateLimit.ExchangeLimit,
	)

	var idempotencyStore redis.IdempotencyStore
	if cfg.FeatureFlags.Idempotency && redisClient != nil {
		idempotencyStore = redisClient
	}
	var rateStore middleware.FixedWindowStore
	if redisClient != nil {
		rateStore = redisClient
	}

	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		readiness["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// public reads
		r.Get("/products", controllers.BrowseProducts(productService, logg))
		r.Get("/products/{productId}", controllers.GetProduct(productService, logg))
		r.Get("/users/{userId}", controllers.GetUser(userService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Route("/exchanges", func(r chi.Router) {
				r.With(middleware.RateLimit(exchangePolicy, rateStore, logg)).Post("/", controllers.CreateExchange(exchangeService, logg))
				r.Get("/user", controllers.ListUserExchanges(exchangeService, logg))
				r.Get("/{exchangeId}", controllers.GetExchange(exchangeService, logg))
				r.Put("/{exchangeId}/status", controllers.UpdateExchangeStatus(exchangeService, logg))
				r.Post("/{exchangeId}/feedback", controllers.SubmitExchangeFeedback(exchangeService, logg))
			})

			r.Post("/products", controllers.CreateProduct(productService, logg))
			r.Get("/products/mine", controllers.ListMyProducts(productService, logg))
			r.Patch("/products/{productId}", controllers.UpdateProduct(productService, logg))
			r.Delete("/products/{productId}", controllers.DeleteProduct(productService, logg))

			r.Get("/users/me", controllers.GetMe(userService, logg))
			r.Put("/users/me", controllers.UpsertMe(userService, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(notificationsService, logg))
				r.Put("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
				r.Put("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			})
		})

	})

	return r
}
