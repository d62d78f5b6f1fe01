package orders

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/RayhanLauzzadani/pasma-apps/internal/ledger"
	"github.com/RayhanLauzzadani/pasma-apps/internal/notifications"
	"github.com/RayhanLauzzadani/pasma-apps/internal/users"
	"github.com/RayhanLauzzadani/pasma-apps/internal/wallets"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/dbtest"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/db/models"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/enums"
	pkgerrors "github.com/RayhanLauzzadani/pasma-apps/pkg/errors"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/logger"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/outbox"
	"github.com/RayhanLauzzadani/pasma-apps/pkg/types"
)

type harness struct {
	client *db.Client
	svc    Service
	ledger ledger.Service
	admin  models.User
	buyer  models.User
	seller models.User
	store  models.Store
}

func newHarness(t *testing.T, buyerBalance int64) *harness {
	return newHarnessWithRepo(t, buyerBalance, nil)
}

func newHarnessWithRepo(t *testing.T, buyerBalance int64, wrap func(Repository) Repository) *harness {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard})

	walletSvc, err := wallets.NewService(wallets.NewRepository(conn), logg)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn))
	require.NoError(t, err)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	notifier, err := notifications.NewEmitter(notifications.NewRepository(conn), outboxSvc)
	require.NoError(t, err)

	h := &harness{client: client, ledger: ledgerSvc}
	h.admin = dbtest.SeedUser(t, conn, 0, enums.UserRoleAdmin)
	h.buyer = dbtest.SeedUser(t, conn, buyerBalance)
	h.seller = dbtest.SeedUser(t, conn, 0)
	h.store = dbtest.SeedStore(t, conn, h.seller.ID)

	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	machine, err := NewMachine(MachineDeps{
		Repo:     repo,
		Wallets:  walletSvc,
		Ledger:   ledgerSvc,
		Notifier: notifier,
		Outbox:   outboxSvc,
		Policy:   DefaultPolicy(h.admin.ID),
		Logger:   logg,
	})
	require.NoError(t, err)
	h.svc, err = NewService(ServiceParams{
		Repo:          repo,
		Machine:       machine,
		Tx:            client,
		Fees:          ledger.DefaultFeePolicy(),
		Roles:         users.NewRepository(conn),
		Logger:        logg,
		RetryAttempts: 3,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) buyerActor() Actor {
	return Actor{UserID: h.buyer.ID, Role: enums.ActorBuyer}
}

func (h *harness) sellerActor() Actor {
	return Actor{UserID: h.seller.ID, Role: enums.ActorSeller}
}

func (h *harness) placeInput(products ...models.Product) PlaceInput {
	in := PlaceInput{
		SellerID:        h.seller.ID,
		StoreID:         h.store.ID,
		StoreName:       h.store.Name,
		Amounts:         PlaceAmounts{Shipping: 1000},
		ShippingAddress: types.ShippingAddress{Label: "Rumah", Address: "Jl. Merdeka 1", Phone: "08123456789"},
	}
	for _, p := range products {
		in.Items = append(in.Items, PlaceItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Qty: 1})
		in.Amounts.Subtotal += p.Price
	}
	return in
}

func TestOrderLifecycleSettlesEscrow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 20000)
	conn := h.client.DB()
	product := dbtest.SeedProduct(t, conn, h.store.ID, 5000, 3)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)
	assert.Regexp(t, `^INV-`, placed.InvoiceID)

	buyer := dbtest.ReloadUser(t, conn, h.buyer.ID)
	assert.Equal(t, int64(11950), buyer.WalletAvailable)
	assert.Equal(t, int64(8050), buyer.WalletOnHold)

	order, err := h.svc.Accept(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, order.Status)
	assert.Equal(t, 2, dbtest.ReloadProduct(t, conn, product.ID).Stock)

	order, err = h.svc.Ship(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, order.Status)

	order, err = h.svc.Complete(ctx, h.buyerActor(), placed.OrderID, enums.CompletedByBuyer)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.Equal(t, enums.PaymentStatusSettled, order.PaymentStatus)

	buyer = dbtest.ReloadUser(t, conn, h.buyer.ID)
	assert.Equal(t, int64(11950), buyer.WalletAvailable)
	assert.Zero(t, buyer.WalletOnHold)
	assert.Equal(t, int64(6000), dbtest.ReloadUser(t, conn, h.seller.ID).WalletAvailable)
	assert.Equal(t, int64(2050), dbtest.ReloadUser(t, conn, h.admin.ID).WalletAvailable)
	assert.Equal(t, 1, dbtest.ReloadProduct(t, conn, product.ID).Sold)

	var store models.Store
	require.NoError(t, conn.First(&store, "id = ?", h.store.ID).Error)
	assert.Equal(t, int64(1), store.TotalSales)
	assert.NotNil(t, store.LastSaleAt)

	net, err := h.ledger.NetByOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	var sum int64
	for _, v := range net {
		sum += v
	}
	assert.Zero(t, sum)
	assert.Equal(t, int64(-8050), net[h.buyer.ID])

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).
		Where("aggregate_id = ? AND event_type = ?", placed.OrderID, enums.EventOrderStateChanged).
		Count(&events).Error)
	assert.Equal(t, int64(3), events)
}

func TestPlaceRejectsInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 100)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)

	_, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))

	var count int64
	require.NoError(t, h.client.DB().Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, int64(100), dbtest.ReloadUser(t, h.client.DB(), h.buyer.ID).WalletAvailable)
}

func TestPlaceValidatesInput(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 20000)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)

	_, err := h.svc.Place(ctx, Actor{}, h.placeInput(product))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))

	in := h.placeInput(product)
	in.Items[0].Qty = 0
	_, err = h.svc.Place(ctx, h.buyerActor(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	in = h.placeInput(product)
	in.ShippingAddress.Phone = ""
	_, err = h.svc.Place(ctx, h.buyerActor(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	in = h.placeInput(product)
	in.Amounts.Shipping = -1
	_, err = h.svc.Place(ctx, h.buyerActor(), in)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestPlaceReplaysIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 20000)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)
	in := h.placeInput(product)
	in.IdempotencyKey = "checkout-1"

	first, err := h.svc.Place(ctx, h.buyerActor(), in)
	require.NoError(t, err)
	second, err := h.svc.Place(ctx, h.buyerActor(), in)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var count int64
	require.NoError(t, h.client.DB().Model(&models.Order{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(8050), dbtest.ReloadUser(t, h.client.DB(), h.buyer.ID).WalletOnHold)
}

func TestAcceptDoesNotPartiallyDecrementStock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 50000)
	conn := h.client.DB()
	plenty := dbtest.SeedProduct(t, conn, h.store.ID, 5000, 10)
	scarce := dbtest.SeedProduct(t, conn, h.store.ID, 3000, 1)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(plenty, scarce))
	require.NoError(t, err)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", scarce.ID).Update("stock", 0).Error)

	_, err = h.svc.Accept(ctx, h.sellerActor(), placed.OrderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 10, dbtest.ReloadProduct(t, conn, plenty.ID).Stock)

	order, err := h.svc.Get(ctx, h.buyerActor(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPlaced, order.Status)
}

func TestCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 20000)
	conn := h.client.DB()
	product := dbtest.SeedProduct(t, conn, h.store.ID, 5000, 3)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)
	_, err = h.svc.Accept(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)

	order, err := h.svc.Cancel(ctx, h.buyerActor(), placed.OrderID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, order.Status)

	order, err = h.svc.Cancel(ctx, SystemActor(), placed.OrderID, "acceptance timeout")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCanceled, order.Status)
	require.NotNil(t, order.CanceledBy)
	assert.Equal(t, enums.ActorBuyer, *order.CanceledBy)

	buyer := dbtest.ReloadUser(t, conn, h.buyer.ID)
	assert.Equal(t, int64(20000), buyer.WalletAvailable)
	assert.Zero(t, buyer.WalletOnHold)
	assert.Equal(t, 3, dbtest.ReloadProduct(t, conn, product.ID).Stock)

	entries, err := h.ledger.ListByOrder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = h.svc.Cancel(ctx, Actor{UserID: uuid.New()}, placed.OrderID, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestSendGraceReminderOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 20000)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)
	_, err = h.svc.Accept(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)
	_, err = h.svc.Ship(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)

	sent, err := h.svc.SendGraceReminder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.False(t, sent)

	svc := h.svc.(*service)
	svc.now = func() time.Time { return time.Now().Add(49 * time.Hour) }
	sent, err = h.svc.SendGraceReminder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = h.svc.SendGraceReminder(ctx, placed.OrderID)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestListForUserAndDue(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 50000)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)

	mine, err := h.svc.ListForUser(ctx, h.buyerActor(), ListParams{})
	require.NoError(t, err)
	require.Len(t, mine.Orders, 1)
	assert.Equal(t, placed.OrderID, mine.Orders[0].ID)

	sales, err := h.svc.ListForUser(ctx, h.sellerActor(), ListParams{AsSeller: true})
	require.NoError(t, err)
	assert.Len(t, sales.Orders, 1)

	none, err := h.svc.ListForUser(ctx, h.sellerActor(), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, none.Orders)

	due, err := h.svc.ListDue(ctx, DueUnaccepted, time.Now().UTC().Add(time.Hour), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = h.svc.ListDue(ctx, DueUnaccepted, time.Now().UTC().Add(25*time.Hour), nil, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, placed.OrderID, due[0].ID)

	_, err = h.svc.Get(ctx, Actor{UserID: uuid.New(), Role: enums.ActorBuyer}, placed.OrderID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
	_, err = h.svc.Get(ctx, h.buyerActor(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestListDueResumesAfterCursor(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 50000)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 5)

	_, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)
	_, err = h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)

	now := time.Now().UTC().Add(25 * time.Hour)
	first, err := h.svc.ListDue(ctx, DueUnaccepted, now, nil, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := h.svc.ListDue(ctx, DueUnaccepted, now, first[0].Cursor(), 1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.False(t, second[0].Deadline.Before(first[0].Deadline))

	rest, err := h.svc.ListDue(ctx, DueUnaccepted, now, second[0].Cursor(), 1)
	require.NoError(t, err)
	assert.Empty(t, rest)
}

func TestGetConfirmsAdminAgainstStoredRoles(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 50000)
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)

	order, err := h.svc.Get(ctx, Actor{UserID: h.admin.ID, Role: enums.ActorAdmin}, placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, placed.OrderID, order.ID)

	outsider := dbtest.SeedUser(t, h.client.DB(), 0)
	_, err = h.svc.Get(ctx, Actor{UserID: outsider.ID, Role: enums.ActorAdmin}, placed.OrderID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

type staleRepo struct {
	Repository
	failures *int
	calls    *int
}

func (r staleRepo) WithTx(tx *gorm.DB) Repository {
	return staleRepo{Repository: r.Repository.WithTx(tx), failures: r.failures, calls: r.calls}
}

func (r staleRepo) UpdateGuarded(ctx context.Context, next *models.Order, expectedVersion int) error {
	*r.calls++
	if *r.failures > 0 {
		*r.failures--
		return db.ErrStaleWrite
	}
	return r.Repository.UpdateGuarded(ctx, next, expectedVersion)
}

func TestTransitionRetriesStaleWrites(t *testing.T) {
	ctx := context.Background()
	failures, calls := 0, 0
	h := newHarnessWithRepo(t, 20000, func(r Repository) Repository {
		return staleRepo{Repository: r, failures: &failures, calls: &calls}
	})
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)
	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)

	failures = 1
	order, err := h.svc.Accept(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, order.Status)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, dbtest.ReloadProduct(t, h.client.DB(), product.ID).Stock)

	failures = 10
	_, err = h.svc.Ship(ctx, h.sellerActor(), placed.OrderID)
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConcurrentModification))

	order, err = h.svc.Get(ctx, h.sellerActor(), placed.OrderID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusAccepted, order.Status)
}

type collidingRepo struct {
	Repository
	collisions *int
	invoices   *[]string
}

func (r collidingRepo) WithTx(tx *gorm.DB) Repository {
	return collidingRepo{Repository: r.Repository.WithTx(tx), collisions: r.collisions, invoices: r.invoices}
}

func (r collidingRepo) Create(ctx context.Context, order *models.Order) error {
	*r.invoices = append(*r.invoices, order.InvoiceID)
	if *r.collisions > 0 {
		*r.collisions--
		return errors.New("UNIQUE constraint failed: orders.invoice_id")
	}
	return r.Repository.Create(ctx, order)
}

func TestPlaceRegeneratesCollidingInvoiceID(t *testing.T) {
	ctx := context.Background()
	collisions := 1
	var invoices []string
	h := newHarnessWithRepo(t, 20000, func(r Repository) Repository {
		return collidingRepo{Repository: r, collisions: &collisions, invoices: &invoices}
	})
	product := dbtest.SeedProduct(t, h.client.DB(), h.store.ID, 5000, 3)

	placed, err := h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.NotEqual(t, invoices[0], invoices[1])
	assert.Equal(t, invoices[1], placed.InvoiceID)

	collisions = 10
	invoices = nil
	_, err = h.svc.Place(ctx, h.buyerActor(), h.placeInput(product))
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))
	assert.Len(t, invoices, 3)
}
