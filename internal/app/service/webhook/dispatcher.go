package webhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/storefront/internal/app/service/catalog"
	"github.com/fatflowers/storefront/internal/app/service/subscription"
	"github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/internal/platform/gateway"
	"github.com/fatflowers/storefront/pkg/logctx"
	"github.com/fatflowers/storefront/pkg/types"
)

// ErrStockConflict is the consistency error raised when stock that was
// available at checkout time was consumed by a racing checkout before this
// event arrived. It is never swallowed: the order is flagged for review and
// the breach is logged with its identifiers.
var ErrStockConflict = errors.New("stock inconsistency at reconciliation")

// Dispatcher maps verified event types to reconciliation handlers. All
// handlers run inside the guard's transaction and must be idempotent.
type Dispatcher struct {
	catalog catalog.Repository
	subSvc  *subscription.Service
	signer  *gateway.MetadataSigner
	log     *zap.SugaredLogger
}

func NewDispatcher(cat catalog.Repository, subSvc *subscription.Service, signer *gateway.MetadataSigner, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{catalog: cat, subSvc: subSvc, signer: signer, log: log}
}

func (d *Dispatcher) Dispatch(ctx context.Context, tx *gorm.DB, event *Event) (Outcome, error) {
	switch event.Type {
	case EventCheckoutSessionCompleted:
		return d.handleCheckoutCompleted(ctx, tx, event)
	case EventPaymentSucceeded:
		return d.handlePaymentResult(ctx, tx, event, true)
	case EventPaymentFailed:
		return d.handlePaymentResult(ctx, tx, event, false)
	case EventSubscriptionUpdated:
		return d.handleSubscriptionEvent(ctx, tx, event, false)
	case EventSubscriptionDeleted:
		return d.handleSubscriptionEvent(ctx, tx, event, true)
	}
	// Forward compatibility: new gateway event types must not fail ingestion.
	logctx.FromCtx(ctx, d.log).Infow("unrecognized event type acknowledged", "event_type", event.Type, "event_id", event.ID)
	return OutcomeIgnored, nil
}

// verifyMetadata re-checks the HMAC the session adapter embedded at checkout
// time, independently of the gateway's own body signature.
func (d *Dispatcher) verifyMetadata(meta map[string]string) error {
	if len(meta) == 0 {
		return nil
	}
	orderID, userID := meta["order_id"], meta["user_id"]
	if orderID == "" && userID == "" {
		return nil
	}
	if !d.signer.Verify(orderID, userID, meta["signature"]) {
		return fmt.Errorf("%w: order %s", ErrTamperedMetadata, orderID)
	}
	return nil
}

func (d *Dispatcher) handleCheckoutCompleted(ctx context.Context, tx *gorm.DB, event *Event) (Outcome, error) {
	obj, err := event.SessionObject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := d.verifyMetadata(obj.Metadata); err != nil {
		return "", err
	}
	log := logctx.FromCtx(ctx, d.log).With("event_id", event.ID, "session_id", obj.ID)

	payment, err := d.paymentBySession(ctx, tx, obj.ID)
	if err != nil {
		return "", err
	}
	if payment.Terminal() {
		// Already reconciled by an earlier delivery.
		return OutcomeApplied, nil
	}

	payment.Status = types.PaymentStatusCompleted
	if obj.ChargeID != "" {
		payment.GatewayChargeID = lo.ToPtr(obj.ChargeID)
	}
	if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
		return "", fmt.Errorf("failed to update payment: %w", err)
	}

	var order models.Order
	if err := tx.WithContext(ctx).Preload("Items").Where("id = ?", payment.OrderID).First(&order).Error; err != nil {
		return "", fmt.Errorf("failed to load order %s: %w", payment.OrderID, err)
	}

	outcome := OutcomeApplied
	if !order.Terminal() {
		status := types.OrderStatusCompleted
		for _, item := range order.Items {
			ok, decErr := d.catalog.DecrementStockIfAvailable(ctx, tx, item.ProductID, item.Quantity)
			if decErr != nil {
				return "", fmt.Errorf("failed to decrement stock: %w", decErr)
			}
			if !ok {
				// Invariant breach, surfaced to operators, never auto-fixed.
				log.Errorw("stock oversold at reconciliation",
					"order_id", order.ID,
					"product_id", item.ProductID,
					"quantity", item.Quantity,
					"err", ErrStockConflict,
				)
				status = types.OrderStatusReview
				outcome = OutcomeInconsistent
			}
		}
		if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", status).Error; err != nil {
			return "", fmt.Errorf("failed to update order: %w", err)
		}
	}

	if obj.Mode == types.SessionModeSubscription && obj.Subscription != nil {
		sub := obj.Subscription
		if sub.UserID == "" {
			sub.UserID = obj.Metadata["user_id"]
		}
		if err := d.subSvc.ApplyGatewayUpdate(ctx, tx, sub); err != nil {
			return "", fmt.Errorf("failed to apply subscription: %w", err)
		}
	}

	return outcome, nil
}

func (d *Dispatcher) handlePaymentResult(ctx context.Context, tx *gorm.DB, event *Event, succeeded bool) (Outcome, error) {
	obj, err := event.PaymentObject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := d.verifyMetadata(obj.Metadata); err != nil {
		return "", err
	}

	payment, err := d.paymentBySession(ctx, tx, obj.SessionID)
	if err != nil {
		return "", err
	}
	if payment.Terminal() {
		return OutcomeApplied, nil
	}

	if succeeded {
		payment.Status = types.PaymentStatusCompleted
	} else {
		payment.Status = types.PaymentStatusFailed
	}
	if obj.ChargeID != "" {
		payment.GatewayChargeID = lo.ToPtr(obj.ChargeID)
	}
	if err := tx.WithContext(ctx).Save(payment).Error; err != nil {
		return "", fmt.Errorf("failed to update payment: %w", err)
	}

	// Propagate to the order unless it already reached a terminal state.
	orderStatus := types.OrderStatusCompleted
	if !succeeded {
		orderStatus = types.OrderStatusFailed
	}
	var order models.Order
	if err := tx.WithContext(ctx).Where("id = ?", payment.OrderID).First(&order).Error; err != nil {
		return "", fmt.Errorf("failed to load order %s: %w", payment.OrderID, err)
	}
	if !order.Terminal() {
		if err := tx.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", orderStatus).Error; err != nil {
			return "", fmt.Errorf("failed to update order: %w", err)
		}
	}
	return OutcomeApplied, nil
}

func (d *Dispatcher) handleSubscriptionEvent(ctx context.Context, tx *gorm.DB, event *Event, deleted bool) (Outcome, error) {
	obj, err := event.SubscriptionObject()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if deleted {
		err = d.subSvc.ApplyGatewayDeletion(ctx, tx, obj)
	} else {
		err = d.subSvc.ApplyGatewayUpdate(ctx, tx, obj)
	}
	if err != nil {
		return "", err
	}
	return OutcomeApplied, nil
}

func (d *Dispatcher) paymentBySession(ctx context.Context, tx *gorm.DB, sessionID string) (*models.Payment, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}
	var payment models.Payment
	if err := tx.WithContext(ctx).Where("gateway_session_id = ?", sessionID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no payment for gateway session %s", sessionID)
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}
