package webhook

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/pkg/types"
)

func (e *testEnv) seedPlan(t *testing.T) {
	t.Helper()
	require.NoError(t, e.db.Create(&models.SubscriptionPlan{
		ID:             "plan_basic",
		GatewayPriceID: "price_basic",
		Name:           "Basic",
		Price:          decimal.RequireFromString("9.99"),
		Currency:       "USD",
	}).Error)
}

func TestProcess_SubscriptionCheckoutCompleted(t *testing.T) {
	e := newTestEnv(t)
	e.seedPlan(t)
	order := e.seedCheckout(t, "sess_1", 1, 5)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()

	outcome, err := e.process(t, event("evt_1", EventCheckoutSessionCompleted, map[string]any{
		"id":       "sess_1",
		"mode":     "subscription",
		"metadata": e.metadata(order),
		"subscription": map[string]any{
			"id":                 "sub_1",
			"price_id":           "price_basic",
			"status":             "active",
			"current_period_end": periodEnd,
		},
	}))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	// The subscription object carried no user id; the signed metadata did.
	var sub models.Subscription
	require.NoError(t, e.db.Where("gateway_subscription_id = ?", "sub_1").First(&sub).Error)
	require.Equal(t, order.UserID, sub.UserID)
	require.Equal(t, "plan_basic", sub.PlanID)
	require.Equal(t, types.SubscriptionStatusActive, sub.Status)

	var got models.Order
	require.NoError(t, e.db.Where("id = ?", order.ID).First(&got).Error)
	require.Equal(t, types.OrderStatusCompleted, got.Status)
}

func TestProcess_SubscriptionUpdated(t *testing.T) {
	e := newTestEnv(t)
	e.seedPlan(t)

	outcome, err := e.process(t, event("evt_1", EventSubscriptionUpdated, map[string]any{
		"id":                 "sub_1",
		"user_id":            "u1",
		"price_id":           "price_basic",
		"status":             "past_due",
		"current_period_end": time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	var sub models.Subscription
	require.NoError(t, e.db.Where("gateway_subscription_id = ?", "sub_1").First(&sub).Error)
	require.Equal(t, types.SubscriptionStatusExpired, sub.Status)
}

func TestProcess_SubscriptionDeleted(t *testing.T) {
	e := newTestEnv(t)
	e.seedPlan(t)

	object := map[string]any{
		"id":                 "sub_1",
		"user_id":            "u1",
		"price_id":           "price_basic",
		"status":             "active",
		"current_period_end": time.Now().Add(time.Hour).Unix(),
	}
	_, err := e.process(t, event("evt_1", EventSubscriptionUpdated, object))
	require.NoError(t, err)

	outcome, err := e.process(t, event("evt_2", EventSubscriptionDeleted, object))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, outcome)

	var sub models.Subscription
	require.NoError(t, e.db.Where("gateway_subscription_id = ?", "sub_1").First(&sub).Error)
	require.Equal(t, types.SubscriptionStatusCanceled, sub.Status)
}

func TestProcess_SubscriptionUnknownPlanRollsBack(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.process(t, event("evt_1", EventSubscriptionUpdated, map[string]any{
		"id":                 "sub_1",
		"user_id":            "u1",
		"price_id":           "price_missing",
		"status":             "active",
		"current_period_end": time.Now().Add(time.Hour).Unix(),
	}))
	require.Error(t, err)

	// Fail closed: nothing recorded, so a redelivery after the plan catalog
	// is fixed can still apply.
	require.Zero(t, e.eventCount(t))
	var count int64
	require.NoError(t, e.db.Model(&models.Subscription{}).Count(&count).Error)
	require.Zero(t, count)
}
