package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapGatewayStatus(t *testing.T) {
	tests := []struct {
		provider string
		want     SubscriptionStatus
	}{
		{"incomplete", SubscriptionStatusIncomplete},
		{"incomplete_expired", SubscriptionStatusIncomplete},
		{"trialing", SubscriptionStatusTrialing},
		{"active", SubscriptionStatusActive},
		{"canceled", SubscriptionStatusCanceled},
		{"past_due", SubscriptionStatusExpired},
		{"unpaid", SubscriptionStatusExpired},
		{"paused", SubscriptionStatusUnknown},
		{"", SubscriptionStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			require.Equal(t, tt.want, MapGatewayStatus(tt.provider))
		})
	}
}
