package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/fatflowers/storefront/internal/app/api/middleware"
	subscriptionsvc "github.com/fatflowers/storefront/internal/app/service/subscription"
	"github.com/fatflowers/storefront/pkg/response"
	"github.com/fatflowers/storefront/pkg/types"
)

// @Summary      Get Subscription
// @Description  Returns the authenticated user's current subscription, or null data when none exists.
// @Tags         Subscription
// @Produce      json
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/subscription [get]
func ApiGetSubscription(svc *subscriptionsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := svc.GetUserSubscription(c.Request.Context(), c.GetString(mw.UserIDKey))
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		if sub == nil {
			c.JSON(http.StatusOK, response.OKT[any](nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(types.SubscriptionInfo{
			Status:    sub.Status,
			PlanID:    sub.PlanID,
			ExpiresAt: sub.ExpiresAt,
		}))
	}
}

func RegisterSubscriptionRoutes(r gin.IRouter, svc *subscriptionsvc.Service) {
	r.GET("/subscription", ApiGetSubscription(svc))
}
