package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/storefront/internal/app/service/catalog"
	"github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/internal/platform/gateway"
	"github.com/fatflowers/storefront/pkg/config"
	"github.com/fatflowers/storefront/pkg/logctx"
	"github.com/fatflowers/storefront/pkg/metrics"
	"github.com/fatflowers/storefront/pkg/retry"
	"github.com/fatflowers/storefront/pkg/tool"
	"github.com/fatflowers/storefront/pkg/types"
)

const idemCacheTTL = 24 * time.Hour

// CreateCheckoutRequest carries the authenticated user and the cart.
type CreateCheckoutRequest struct {
	UserID string
	Items  []ItemRequest
	// PlanID switches the session into subscription mode.
	PlanID string
	// PurchaseRef is an optional client-supplied salt that makes an otherwise
	// identical cart a new checkout intent.
	PurchaseRef string
}

// CreateCheckoutResult is returned synchronously to the caller.
type CreateCheckoutResult struct {
	Order   *models.Order
	Session *gateway.Session
}

// Service is the order and stock ledger. It owns the two checkout
// transactions and delegates session creation to the gateway adapter; it
// never mutates payment state after creation, that is reconciliation's job.
type Service struct {
	cfg     *config.Config
	db      *gorm.DB
	cache   *redis.Client
	catalog catalog.Repository
	client  gateway.SessionClient
	signer  *gateway.MetadataSigner
	policy  *retry.Policy
	log     *zap.SugaredLogger
}

func NewService(
	cfg *config.Config,
	db *gorm.DB,
	cache *redis.Client,
	cat catalog.Repository,
	client gateway.SessionClient,
	signer *gateway.MetadataSigner,
	log *zap.SugaredLogger,
) *Service {
	policy := retry.New(log)
	if cfg.Gateway.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Gateway.MaxAttempts
	}
	policy.Retryable = gateway.IsTransient
	return &Service{cfg: cfg, db: db, cache: cache, catalog: cat, client: client, signer: signer, policy: policy, log: log}
}

// CreateCheckout persists the order and payment in one transaction, creates
// the external session outside any transaction, then attaches the session id
// in a second short transaction.
func (s *Service) CreateCheckout(ctx context.Context, req *CreateCheckoutRequest) (*CreateCheckoutResult, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrProductNotFound)
	}

	start := time.Now()
	key := DeriveIdempotencyKey(req.UserID, req.Items, req.PlanID, req.PurchaseRef)
	log := logctx.FromCtx(ctx, s.log).With("user_id", req.UserID, "idempotency_key", key)

	// The cache is a hint only: a hit is logged but the decision always comes
	// from the idempotency-key lookup inside createOrder.
	cacheKey := "checkout:idem:" + key
	reserved := false
	if s.cache != nil {
		if ok, err := s.cache.SetNX(ctx, cacheKey, 1, idemCacheTTL).Result(); err == nil {
			reserved = ok
			if !ok {
				log.Infow("idempotency pre-check hit, deferring to database")
			}
		}
	}

	order, payment, err := s.createOrder(ctx, req, key)
	if err != nil {
		// Release the reservation so a retry after a transient failure (e.g.
		// restocked inventory) is not shadow-blocked by a stale cache entry.
		if reserved {
			if delErr := s.cache.Del(ctx, cacheKey).Err(); delErr != nil {
				log.Warnw("failed to release idempotency reservation", "err", delErr)
			}
		}
		return nil, err
	}

	session, err := s.createSession(ctx, order, req)
	if err != nil {
		log.Errorw("session creation failed, order left pending", "order_id", order.ID, "err", err)
		return nil, ErrGatewayUnavailable
	}

	if err := s.attachSession(ctx, order, payment, session); err != nil {
		return nil, fmt.Errorf("failed to attach session: %w", err)
	}

	log.Infow("checkout created", "order_id", order.ID, "session_id", session.ID, "total", order.TotalAmount)
	metrics.ObserveBusinessProcess("checkout", "create", metrics.MillisecondsSince(start))
	return &CreateCheckoutResult{Order: order, Session: session}, nil
}

func (s *Service) createOrder(ctx context.Context, req *CreateCheckoutRequest, key string) (*models.Order, *models.Payment, error) {
	var order *models.Order
	var payment *models.Payment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Order
		err := tx.Where("idempotency_key = ?", key).First(&existing).Error
		if err == nil {
			return ErrDuplicateOrder
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check idempotency key: %w", err)
		}

		ids := lo.Map(req.Items, func(it ItemRequest, _ int) string { return it.ProductID })
		products, err := s.catalog.GetProductsByIDs(ctx, tx, ids)
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		byID := lo.KeyBy(products, func(p *models.Product) string { return p.ID })

		orderID := tool.GenerateUUIDV7()
		subtotal := decimal.Zero
		items := make([]*models.OrderItem, 0, len(req.Items))
		for _, it := range req.Items {
			p, ok := byID[it.ProductID]
			if !ok {
				return fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
			}
			// Availability is checked here but not reserved; the decrement
			// happens at reconciliation so abandoned checkouts hold nothing.
			if p.Stock < it.Quantity {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, it.ProductID)
			}
			item := &models.OrderItem{
				ID:        tool.GenerateUUIDV7(),
				OrderID:   orderID,
				ProductID: p.ID,
				Quantity:  it.Quantity,
				UnitPrice: p.UnitPrice,
			}
			subtotal = subtotal.Add(item.Subtotal())
			items = append(items, item)
		}

		tax := subtotal.Mul(s.cfg.TaxRate()).Round(2)
		total := subtotal.Add(tax)

		order = &models.Order{
			ID:             orderID,
			UserID:         req.UserID,
			Status:         types.OrderStatusPending,
			IdempotencyKey: key,
			Subtotal:       subtotal,
			Tax:            tax,
			TotalAmount:    total,
			Items:          items,
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		payment = &models.Payment{
			ID:      tool.GenerateUUIDV7(),
			OrderID: orderID,
			UserID:  req.UserID,
			Amount:  total,
			Tax:     tax,
			Status:  types.PaymentStatusPending,
		}
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, payment, nil
}

// createSession builds the session request and submits it through the retry
// policy. The order's idempotency key doubles as the gateway call's token so
// a retried call cannot create two external sessions.
func (s *Service) createSession(ctx context.Context, order *models.Order, req *CreateCheckoutRequest) (*gateway.Session, error) {
	mode := types.SessionModePayment
	lineItems := make([]gateway.LineItem, 0, len(order.Items))
	for _, it := range order.Items {
		lineItems = append(lineItems, gateway.LineItem{
			Name:       it.ProductID,
			UnitAmount: it.UnitPrice.Mul(decimal.NewFromInt(100)).IntPart(),
			Quantity:   it.Quantity,
		})
	}
	if req.PlanID != "" {
		mode = types.SessionModeSubscription
	}

	sessionReq := &gateway.SessionRequest{
		Mode:       mode,
		LineItems:  lineItems,
		SuccessURL: s.cfg.Gateway.SuccessURL,
		CancelURL:  s.cfg.Gateway.CancelURL,
		Metadata: map[string]string{
			"order_id":  order.ID,
			"user_id":   order.UserID,
			"plan_id":   req.PlanID,
			"signature": s.signer.Sign(order.ID, order.UserID),
		},
		IdempotencyKey: order.IdempotencyKey,
	}

	var session *gateway.Session
	err := s.policy.Do(ctx, "create_checkout_session", func(ctx context.Context) error {
		var callErr error
		session, callErr = s.client.CreateCheckoutSession(ctx, sessionReq)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) attachSession(ctx context.Context, order *models.Order, payment *models.Payment, session *gateway.Session) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).
			Update("gateway_session_id", session.ID).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("gateway_session_id", session.ID).Error; err != nil {
			return err
		}
		order.GatewaySessionID = lo.ToPtr(session.ID)
		payment.GatewaySessionID = lo.ToPtr(session.ID)
		return nil
	})
}
