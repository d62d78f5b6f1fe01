// Package app assembles the escrow services shared by the API and the cron
// worker.
package app

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/RayhanLauzzadani/pasma-apps/internal/disputes"
	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/internal/orders"
	"github.com/RayhanLauzzadani/pasma-apps/internal/users"
	"github.com/RayhanLauzzadani/pasma-apps/internal/wallets"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/config"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/metrics"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
)

// Services is the wired escrow domain.
type Services struct {
	Orders        orders.Service
	Disputes      disputes.Service
	Wallets       wallets.Service
	Ledger        ledger.Service
	Notifications notifications.Service
	Outbox        *outbox.Repository
	Metrics       *metrics.EscrowMetrics
}

// NewServices builds every escrow service on top of one database client.
// reg may be nil when metrics are not exported.
func NewServices(cfg config.EscrowConfig, dbClient *db.Client, reg prometheus.Registerer, logg *logger.Logger) (*Services, error) {
	if dbClient == nil {
		return nil, fmt.Errorf("database client required")
	}
	conn := dbClient.DB()

	policy, err := orders.PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	fees, err := orders.FeePolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	var escrowMetrics *metrics.EscrowMetrics
	if reg != nil {
		escrowMetrics = metrics.NewEscrowMetrics(reg)
	}

	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	walletSvc, err := wallets.NewService(wallets.NewRepository(conn), logg)
	if err != nil {
		return nil, fmt.Errorf("wallet service: %w", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("ledger service: %w", err)
	}
	notificationsRepo := notifications.NewRepository(conn)
	notifier, err := notifications.NewEmitter(notificationsRepo, emitter)
	if err != nil {
		return nil, fmt.Errorf("notification emitter: %w", err)
	}
	notificationsSvc, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	rolesRepo := users.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	machine, err := orders.NewMachine(orders.MachineDeps{
		Repo:     ordersRepo,
		Wallets:  walletSvc,
		Ledger:   ledgerSvc,
		Notifier: notifier,
		Outbox:   emitter,
		Policy:   policy,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("order machine: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:          ordersRepo,
		Machine:       machine,
		Tx:            dbClient,
		Fees:          fees,
		Invoices:      ledger.NewInvoiceGenerator(),
		Roles:         rolesRepo,
		Metrics:       escrowMetrics,
		Logger:        logg,
		RetryAttempts: cfg.MaxTxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	disputesSvc, err := disputes.NewService(disputes.ServiceParams{
		Repo:          disputes.NewRepository(conn),
		Machine:       machine,
		Tx:            dbClient,
		Roles:         rolesRepo,
		Outbox:        emitter,
		Metrics:       escrowMetrics,
		Logger:        logg,
		RetryAttempts: cfg.MaxTxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("disputes service: %w", err)
	}

	return &Services{
		Orders:        ordersSvc,
		Disputes:      disputesSvc,
		Wallets:       walletSvc,
		Ledger:        ledgerSvc,
		Notifications: notificationsSvc,
		Outbox:        outboxRepo,
		Metrics:       escrowMetrics,
	}, nil
}
