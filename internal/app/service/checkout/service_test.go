package checkout

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/fatflowers/storefront/internal/app/service/catalog"
	"github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/internal/platform/gateway"
	"github.com/fatflowers/storefront/pkg/config"
	"github.com/fatflowers/storefront/pkg/types"
)

type stubSessionClient struct {
	calls   int
	lastReq *gateway.SessionRequest
	session *gateway.Session
	err     error
}

func (s *stubSessionClient) CreateCheckoutSession(_ context.Context, req *gateway.SessionRequest) (*gateway.Session, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         glogger.Default.LogMode(glogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Product{}, &models.Order{}, &models.OrderItem{},
		&models.Payment{},
	))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *stubSessionClient) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Checkout.TaxRate = "0.10"
	cfg.Gateway.MetadataSecret = "meta-secret"
	cfg.Gateway.MaxAttempts = 1
	cfg.Gateway.SuccessURL = "https://shop.example/success"
	cfg.Gateway.CancelURL = "https://shop.example/cancel"

	db := openTestDB(t)
	stub := &stubSessionClient{session: &gateway.Session{ID: "cs_1", RedirectURL: "https://pay.example/cs_1"}}
	svc := NewService(cfg, db, nil, catalog.NewRepository(db), stub, gateway.NewMetadataSigner(cfg.Gateway.MetadataSecret), zap.NewNop().Sugar())
	return svc, db, stub
}

func seedProduct(t *testing.T, db *gorm.DB, id, price string, stock int64) {
	t.Helper()
	unitPrice, err := decimal.NewFromString(price)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Product{ID: id, Name: id, UnitPrice: unitPrice, Stock: stock}).Error)
}

func TestCreateCheckout_HappyPath(t *testing.T) {
	svc, db, stub := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)
	seedProduct(t, db, "p2", "5.50", 3)

	res, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{
		UserID: "u1",
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
	})
	require.NoError(t, err)

	require.True(t, res.Order.Subtotal.Equal(decimal.RequireFromString("25.50")), res.Order.Subtotal.String())
	require.True(t, res.Order.Tax.Equal(decimal.RequireFromString("2.55")), res.Order.Tax.String())
	require.True(t, res.Order.TotalAmount.Equal(decimal.RequireFromString("28.05")), res.Order.TotalAmount.String())
	require.Equal(t, "cs_1", res.Session.ID)

	var order models.Order
	require.NoError(t, db.Preload("Items").Where("id = ?", res.Order.ID).First(&order).Error)
	require.Equal(t, types.OrderStatusPending, order.Status)
	require.NotNil(t, order.GatewaySessionID)
	require.Equal(t, "cs_1", *order.GatewaySessionID)
	require.Len(t, order.Items, 2)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", order.ID).First(&payment).Error)
	require.Equal(t, types.PaymentStatusPending, payment.Status)
	require.True(t, payment.Amount.Equal(order.TotalAmount))
	require.Equal(t, "cs_1", *payment.GatewaySessionID)

	// Stock is not reserved at checkout time.
	var p1 models.Product
	require.NoError(t, db.Where("id = ?", "p1").First(&p1).Error)
	require.EqualValues(t, 5, p1.Stock)

	// The session request carries signed metadata and the order's key.
	require.Equal(t, 1, stub.calls)
	require.Equal(t, types.SessionModePayment, stub.lastReq.Mode)
	require.Equal(t, order.IdempotencyKey, stub.lastReq.IdempotencyKey)
	meta := stub.lastReq.Metadata
	require.Equal(t, order.ID, meta["order_id"])
	require.True(t, gateway.NewMetadataSigner("meta-secret").Verify(order.ID, "u1", meta["signature"]))
}

func TestCreateCheckout_SubscriptionMode(t *testing.T) {
	svc, db, stub := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)

	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{
		UserID: "u1",
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}},
		PlanID: "plan_basic",
	})
	require.NoError(t, err)
	require.Equal(t, types.SessionModeSubscription, stub.lastReq.Mode)
	require.Equal(t, "plan_basic", stub.lastReq.Metadata["plan_id"])
}

func TestCreateCheckout_DuplicateRejected(t *testing.T) {
	svc, db, stub := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)

	req := &CreateCheckoutRequest{UserID: "u1", Items: []ItemRequest{{ProductID: "p1", Quantity: 2}}}
	_, err := svc.CreateCheckout(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreateCheckout(context.Background(), req)
	require.ErrorIs(t, err, ErrDuplicateOrder)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.Equal(t, 1, stub.calls)
}

func TestCreateCheckout_PurchaseRefMakesNewOrder(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)

	items := []ItemRequest{{ProductID: "p1", Quantity: 1}}
	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{UserID: "u1", Items: items})
	require.NoError(t, err)
	_, err = svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{UserID: "u1", Items: items, PurchaseRef: "again"})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestCreateCheckout_ProductNotFound(t *testing.T) {
	svc, db, stub := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)

	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{
		UserID: "u1",
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}, {ProductID: "ghost", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrProductNotFound)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, stub.calls)
}

func TestCreateCheckout_InsufficientStock(t *testing.T) {
	svc, db, stub := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 2)

	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{
		UserID: "u1",
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 3}},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.Zero(t, count)
	require.Zero(t, stub.calls)
}

func TestCreateCheckout_EmptyCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestCreateCheckout_GatewayFailureLeavesPendingOrder(t *testing.T) {
	svc, db, stub := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)
	stub.err = fmt.Errorf("%w: status 400", gateway.ErrPermanent)

	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{
		UserID: "u1",
		Items:  []ItemRequest{{ProductID: "p1", Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrGatewayUnavailable)

	// The order survives without a session so support can follow up; the
	// gateway call never committed anything externally visible.
	var order models.Order
	require.NoError(t, db.First(&order).Error)
	require.Equal(t, types.OrderStatusPending, order.Status)
	require.Nil(t, order.GatewaySessionID)
}

func newCachedTestService(t *testing.T) (*Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Checkout.TaxRate = "0.10"
	cfg.Gateway.MetadataSecret = "meta-secret"
	cfg.Gateway.MaxAttempts = 1

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	db := openTestDB(t)
	stub := &stubSessionClient{session: &gateway.Session{ID: "cs_1", RedirectURL: "https://pay.example/cs_1"}}
	svc := NewService(cfg, db, cache, catalog.NewRepository(db), stub, gateway.NewMetadataSigner(cfg.Gateway.MetadataSecret), zap.NewNop().Sugar())
	return svc, db, mr
}

func TestCreateCheckout_CacheHitDefersToDatabase(t *testing.T) {
	svc, db, mr := newCachedTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)

	// A stale cache entry without a matching order row must not block the
	// checkout: only the unique constraint is authoritative.
	items := []ItemRequest{{ProductID: "p1", Quantity: 1}}
	require.NoError(t, mr.Set("checkout:idem:"+DeriveIdempotencyKey("u1", items, "", ""), "1"))

	_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{UserID: "u1", Items: items})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateCheckout_CachedDuplicateStillComesFromDatabase(t *testing.T) {
	svc, db, _ := newCachedTestService(t)
	seedProduct(t, db, "p1", "10.00", 5)

	req := &CreateCheckoutRequest{UserID: "u1", Items: []ItemRequest{{ProductID: "p1", Quantity: 1}}}
	_, err := svc.CreateCheckout(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.CreateCheckout(context.Background(), req)
	require.ErrorIs(t, err, ErrDuplicateOrder)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateCheckout_FailedAttemptReleasesReservation(t *testing.T) {
	svc, db, mr := newCachedTestService(t)
	seedProduct(t, db, "p1", "10.00", 1)

	req := &CreateCheckoutRequest{UserID: "u1", Items: []ItemRequest{{ProductID: "p1", Quantity: 2}}}
	_, err := svc.CreateCheckout(context.Background(), req)
	require.ErrorIs(t, err, ErrInsufficientStock)

	// The reservation is gone, so once inventory comes back the identical
	// request goes through instead of being shadow-blocked for the TTL.
	require.False(t, mr.Exists("checkout:idem:"+DeriveIdempotencyKey("u1", req.Items, "", "")))
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", "p1").Update("stock", 5).Error)

	_, err = svc.CreateCheckout(context.Background(), req)
	require.NoError(t, err)
}

func TestScanOrders_PaginatesAndFilters(t *testing.T) {
	svc, db, _ := newTestService(t)
	seedProduct(t, db, "p1", "10.00", 100)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateCheckout(context.Background(), &CreateCheckoutRequest{
			UserID:      "u1",
			Items:       []ItemRequest{{ProductID: "p1", Quantity: 1}},
			PurchaseRef: fmt.Sprintf("ref-%d", i),
		})
		require.NoError(t, err)
	}

	res, err := svc.ScanOrders(context.Background(), &ScanOrdersRequest{Size: 2})
	require.NoError(t, err)
	require.EqualValues(t, 3, res.Total)
	require.Len(t, res.Items, 2)

	res, err = svc.ScanOrders(context.Background(), &ScanOrdersRequest{From: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	res, err = svc.ScanOrders(context.Background(), &ScanOrdersRequest{
		Filters: []*types.CommonFilter{{Field: "user_id", Operator: types.CommonFilterOperatorEq, Values: []any{"nobody"}}},
		Size:    10,
	})
	require.NoError(t, err)
	require.Zero(t, res.Total)
	require.Empty(t, res.Items)
}
