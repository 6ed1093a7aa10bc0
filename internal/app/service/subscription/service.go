package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/pkg/config"
	"github.com/fatflowers/storefront/pkg/logctx"
	"github.com/fatflowers/storefront/pkg/tool"
	"github.com/fatflowers/storefront/pkg/types"
)

// ErrPlanNotFound means the gateway price id maps to no local plan. The
// state machine fails closed rather than guessing a plan.
var ErrPlanNotFound = errors.New("subscription plan not found")

// GatewaySubscription is the provider's subscription object as delivered in
// webhook events.
type GatewaySubscription struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	PriceID          string `json:"price_id"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
	Raw              []byte `json:"-"`
}

// Service maintains the Subscription lifecycle. Transitions are driven
// exclusively by verified gateway events; the checkout path never touches
// subscription rows.
type Service struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, log: log}
}

// ApplyGatewayUpdate creates or idempotently updates the subscription row for
// a gateway subscription object, inside the caller's transaction. Applying
// the same object twice is a no-op.
func (s *Service) ApplyGatewayUpdate(ctx context.Context, tx *gorm.DB, obj *GatewaySubscription) error {
	plan, err := s.resolvePlan(ctx, tx, obj.PriceID)
	if err != nil {
		return err
	}

	status := types.MapGatewayStatus(obj.Status)
	var expiresAt *time.Time
	if obj.CurrentPeriodEnd > 0 {
		expiresAt = lo.ToPtr(time.Unix(obj.CurrentPeriodEnd, 0).UTC())
	}

	return s.upsert(ctx, tx, obj, plan.ID, status, expiresAt)
}

// ApplyGatewayDeletion forces the subscription to Canceled regardless of the
// status string carried by the event.
func (s *Service) ApplyGatewayDeletion(ctx context.Context, tx *gorm.DB, obj *GatewaySubscription) error {
	plan, err := s.resolvePlan(ctx, tx, obj.PriceID)
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if obj.CurrentPeriodEnd > 0 {
		expiresAt = lo.ToPtr(time.Unix(obj.CurrentPeriodEnd, 0).UTC())
	}
	return s.upsert(ctx, tx, obj, plan.ID, types.SubscriptionStatusCanceled, expiresAt)
}

func (s *Service) resolvePlan(ctx context.Context, tx *gorm.DB, priceID string) (*models.SubscriptionPlan, error) {
	if priceID == "" {
		return nil, fmt.Errorf("%w: empty price id", ErrPlanNotFound)
	}
	var plan models.SubscriptionPlan
	if err := tx.WithContext(ctx).Where("gateway_price_id = ?", priceID).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: price %s", ErrPlanNotFound, priceID)
		}
		return nil, fmt.Errorf("failed to resolve plan: %w", err)
	}
	return &plan, nil
}

func (s *Service) upsert(ctx context.Context, tx *gorm.DB, obj *GatewaySubscription, planID string, status types.SubscriptionStatus, expiresAt *time.Time) error {
	var existing models.Subscription
	err := tx.WithContext(ctx).Where("gateway_subscription_id = ?", obj.ID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	sub := &models.Subscription{
		ID:                    tool.GenerateUUIDV7(),
		UserID:                obj.UserID,
		PlanID:                planID,
		GatewaySubscriptionID: obj.ID,
		Status:                status,
		ExpiresAt:             expiresAt,
	}
	if len(obj.Raw) > 0 {
		sub.Extra = datatypes.JSON(obj.Raw)
	}

	if existing.ID != "" {
		if existing.Status == status && equalTime(existing.ExpiresAt, expiresAt) && existing.PlanID == planID {
			// Identical replay, nothing to change.
			return nil
		}
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		if obj.UserID == "" {
			sub.UserID = existing.UserID
		}
	}

	// A user holds at most one live subscription. When a new one goes Active,
	// any other live row for the user is superseded in the same transaction.
	if status == types.SubscriptionStatusActive && sub.UserID != "" {
		res := tx.WithContext(ctx).Model(&models.Subscription{}).
			Where("user_id = ? AND gateway_subscription_id <> ? AND status IN ?",
				sub.UserID, obj.ID,
				[]types.SubscriptionStatus{types.SubscriptionStatusActive, types.SubscriptionStatusTrialing}).
			Update("status", types.SubscriptionStatusCanceled)
		if res.Error != nil {
			return fmt.Errorf("failed to supersede prior subscriptions: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			logctx.FromCtx(ctx, s.log).Infow("superseded prior live subscriptions",
				"user_id", sub.UserID,
				"gateway_subscription_id", obj.ID,
				"count", res.RowsAffected,
			)
		}
	}

	if err := tx.WithContext(ctx).Save(sub).Error; err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}

	logctx.FromCtx(ctx, s.log).Infow("subscription state applied",
		"gateway_subscription_id", obj.ID,
		"user_id", sub.UserID,
		"plan_id", planID,
		"status", status,
	)
	return nil
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// GetUserSubscription returns the most recent subscription for a user, or
// nil when none exists.
func (s *Service) GetUserSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// SeedPlans writes the configured plan catalog into the subscription_plan
// table. Existing rows are left untouched: plans are immutable once a
// subscription references them.
func SeedPlans(cfg *config.Config, db *gorm.DB, log *zap.SugaredLogger) error {
	if len(cfg.Plans) == 0 {
		return nil
	}
	rows := make([]*models.SubscriptionPlan, 0, len(cfg.Plans))
	for _, p := range cfg.Plans {
		rows = append(rows, &models.SubscriptionPlan{
			ID:             p.ID,
			GatewayPriceID: p.GatewayPriceID,
			Name:           p.Name,
			Price:          decimal.NewFromInt(p.PriceMinor).Div(decimal.NewFromInt(100)),
			Currency:       p.Currency,
		})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed subscription plans: %w", err)
	}
	log.Infow("subscription plans seeded", "count", len(rows))
	return nil
}
