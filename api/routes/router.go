package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/dropflowhq/dropflow-backend/api/controllers"
	"github.com/dropflowhq/dropflow-backend/api/middleware"
	"github.com/dropflowhq/dropflow-backend/internal/fulfillment"
	"github.com/dropflowhq/dropflow-backend/internal/payouts"
	"github.com/dropflowhq/dropflow-backend/pkg/config"
	"github.com/dropflowhq/dropflow-backend/pkg/logger"
	"github.com/dropflowhq/dropflow-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	gdb *gorm.DB,
	redisClient *redis.Client,
	fulfillmentService fulfillment.Service,
	transferReconciler payouts.Reconciler,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, gdb, redisClient))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(fulfillmentService, logg))
			r.Get("/{orderId}/status", controllers.OrderStatus(fulfillmentService, logg))
		})
		r.Get("/supplier-orders/{supplierOrderId}/tracking", controllers.SupplierOrderTracking(fulfillmentService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Post("/fulfillment/run", controllers.AdminRunFulfillment(fulfillmentService, logg))
		r.Post("/orders/{orderId}/mark-paid", controllers.AdminMarkOrderPaid(fulfillmentService, logg))
		r.Post("/transfers/{transferId}/resolve", controllers.AdminResolveTransfer(transferReconciler, logg))
	})

	return r
}
