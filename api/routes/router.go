package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RayhanLauzzadani/pasma-apps/api/controllers"
	ordercontrollers "github.com/RayhanLauzzadani/pasma-apps/api/controllers/orders"
	"github.com/RayhanLauzzadani/pasma-apps/api/middleware"
	"github.com/RayhanLauzzadani/pasma-apps/internal/disputes"
	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/internal/wallets"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	pkgredis "github.com/RayhanLauzzadani/pasma-apps/pkg/redis"
)

// Store backs idempotent replay, rate limiting and the readiness check.
type Store interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	store Store,
	gatherer prometheus.Gatherer,
	ordersSvc orders.Service,
	disputesSvc disputes.Service,
	walletsSvc wallets.Service,
	ledgerSvc ledger.Service,
	notificationsSvc notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	placePolicy := middleware.NewRateLimitPolicy(
		"place_order",
		cfg.RateLimit.Window,
		cfg.RateLimit.PlaceIPLimit,
		cfg.RateLimit.PlaceUserLimit,
	)
	disputePolicy := middleware.NewRateLimitPolicy(
		"open_dispute",
		cfg.RateLimit.Window,
		cfg.RateLimit.DisputeIPLimit,
		cfg.RateLimit.DisputeUserLimit,
	)

	deps := map[string]controllers.Pinger{}
	if dbP != nil {
		deps["db"] = dbP
	}
	if store != nil {
		deps["redis"] = store
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, deps, logg))
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RateLimit(placePolicy, store, logg)).Post("/", ordercontrollers.Place(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.Post("/accept", ordercontrollers.Accept(ordersSvc, logg))
				r.Post("/ship", ordercontrollers.Ship(ordersSvc, logg))
				r.Post("/cancel", ordercontrollers.Cancel(ordersSvc, logg))
				r.Post("/complete", ordercontrollers.Complete(ordersSvc, logg))
				r.With(middleware.RateLimit(disputePolicy, store, logg)).Post("/disputes", ordercontrollers.OpenDispute(disputesSvc, logg))
			})
		})

		r.Get("/disputes/{disputeId}", ordercontrollers.DisputeDetail(disputesSvc, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.GetWallet(walletsSvc, logg))
			r.Post("/init", controllers.InitWallet(walletsSvc, logg))
			r.Get("/transactions", controllers.ListWalletTransactions(ledgerSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsSvc, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsSvc, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsSvc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
			r.Get("/disputes", ordercontrollers.ListOpenDisputes(disputesSvc, logg))
			r.Post("/disputes/{disputeId}/resolve", ordercontrollers.ResolveDispute(disputesSvc, logg))
			r.Get("/notifications", controllers.ListAdminNotifications(notificationsSvc, logg))
		})
	})

	return r
}
