package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rahulmehra/storefront-backend/api/controllers"
	"github.com/rahulmehra/storefront-backend/api/middleware"
	ordersvc "github.com/rahulmehra/storefront-backend/internal/orders"
	"github.com/rahulmehra/storefront-backend/internal/session"
	"github.com/rahulmehra/storefront-backend/internal/shipping"
	"github.com/rahulmehra/storefront-backend/pkg/config"
	"github.com/rahulmehra/storefront-backend/pkg/db"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	pkgredis "github.com/rahulmehra/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires together.
type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         db.Pinger
	RedisClient      *pkgredis.Client
	Sessions         *session.Manager
	ShippingV        *shipping.Validator
	Orders           ordersvc.Service
	MetricsGatherer  prometheus.Gatherer
	IdempotencyStore pkgredis.IdempotencyStore
	CriticalTTL      time.Duration
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.SessionID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DBPinger, deps.RedisClient))
	})

	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.IdempotencyStore, deps.CriticalTTL, deps.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(deps.Sessions, deps.Logger))
			r.Delete("/", controllers.CartClear(deps.Sessions, deps.Logger))
			r.Post("/items", controllers.CartAddItem(deps.Sessions, deps.Logger))
			r.Patch("/items/{itemID}", controllers.CartUpdateItem(deps.Sessions, deps.Logger))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(deps.Sessions, deps.Logger))
		})

		r.Route("/shipping", func(r chi.Router) {
			r.Get("/", controllers.ShippingGet(deps.Sessions, deps.Logger))
			r.Put("/", controllers.ShippingPut(deps.Sessions, deps.ShippingV, deps.Logger))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", controllers.CheckoutState(deps.Sessions, deps.Logger))
			r.Post("/cod", controllers.CheckoutCOD(deps.Sessions, deps.Logger))
			r.Post("/card/intent", controllers.CheckoutCardIntent(deps.Sessions, deps.Logger))
			r.Post("/card/confirm", controllers.CheckoutCardConfirm(deps.Sessions, deps.Logger))
			r.Post("/card/retry-order", controllers.CheckoutRetryOrder(deps.Sessions, deps.Logger))
			r.Post("/abandon", controllers.CheckoutAbandon(deps.Sessions, deps.Logger))
		})

		r.Get("/orders", controllers.OrdersList(deps.Orders, deps.Logger))
		r.Delete("/session", controllers.SessionReset(deps.Sessions, deps.Logger))
	})

	return r
}
