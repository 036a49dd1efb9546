package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reiger65/stonewhistle-workshop-manager/api/controllers"
	"github.com/reiger65/stonewhistle-workshop-manager/api/middleware"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/cron"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/items"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/orders"
	"github.com/reiger65/stonewhistle-workshop-manager/internal/sync"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/config"
	"github.com/reiger65/stonewhistle-workshop-manager/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Health      map[string]controllers.Pinger
	Driver      *sync.Driver
	SyncLock    cron.Lock
	RateLimiter middleware.RateLimiterStore
	Orders      orders.Service
	Items       items.Service
}

// NewRouter assembles the HTTP surface: health probes, Prometheus metrics,
// and the v1 workshop API.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Health))
	})

	r.Handle("/metrics", promhttp.Handler())

	defaultPeriod, err := sync.ParsePeriod(cfg.Sync.DefaultPeriod)
	if err != nil {
		defaultPeriod = sync.Period3Months
	}

	syncPolicy := middleware.NewSyncRateLimitPolicy("sync-trigger", time.Minute, 3)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sync", func(r chi.Router) {
			r.With(middleware.SyncRateLimit(syncPolicy, deps.RateLimiter, logg)).
				Post("/", controllers.TriggerSyncAll(deps.Driver, deps.SyncLock, defaultPeriod, logg))
			r.Post("/orders/{orderNumber}", controllers.SyncOneOrder(deps.Driver, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/number/{orderNumber}", controllers.GetOrder(deps.Orders, logg))
			r.Post("/{orderId}/status", controllers.SetOrderStatus(deps.Orders, logg))
			r.Post("/{orderId}/archive", controllers.ArchiveOrder(deps.Orders, logg))
			r.Post("/{orderId}/dedupe", controllers.DedupeOrder(deps.Driver, logg))
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/{itemId}", controllers.GetItem(deps.Items, logg))
			r.Post("/{itemId}/stage", controllers.SetItemStage(deps.Items, logg))
			r.Post("/{itemId}/archive", controllers.ArchiveItem(deps.Items, logg))
		})
	})

	return r
}
