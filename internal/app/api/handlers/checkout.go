package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/fatflowers/storefront/internal/app/api/middleware"
	checkoutsvc "github.com/fatflowers/storefront/internal/app/service/checkout"
	"github.com/fatflowers/storefront/pkg/response"
)

type createCheckoutReq struct {
	Items       []checkoutsvc.ItemRequest `json:"items" binding:"required,min=1,dive"`
	PlanID      string                    `json:"plan_id"`
	PurchaseRef string                    `json:"purchase_ref"`
}

type createCheckoutResp struct {
	OrderID         string `json:"order_id"`
	SessionRedirect string `json:"session_redirect"`
}

// @Summary      Create Checkout
// @Description  Creates an order and an external checkout session for the authenticated user's cart.
// @Tags         Checkout
// @Accept       json
// @Produce      json
// @Param        request body createCheckoutReq true "Cart contents"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/checkout [post]
func ApiCreateCheckout(svc *checkoutsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCheckoutReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.CreateCheckout(c.Request.Context(), &checkoutsvc.CreateCheckoutRequest{
			UserID:      c.GetString(mw.UserIDKey),
			Items:       req.Items,
			PlanID:      req.PlanID,
			PurchaseRef: req.PurchaseRef,
		})
		if err != nil {
			switch {
			case errors.Is(err, checkoutsvc.ErrDuplicateOrder):
				c.JSON(http.StatusConflict, response.ErrorT[any](response.APIResponseCodeDuplicate, err.Error()))
			case errors.Is(err, checkoutsvc.ErrProductNotFound), errors.Is(err, checkoutsvc.ErrInsufficientStock):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			case errors.Is(err, checkoutsvc.ErrGatewayUnavailable):
				c.JSON(http.StatusBadGateway, response.ErrorT[any](response.APIResponseCodeUpstream, err.Error()))
			default:
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}

		c.JSON(http.StatusOK, response.OKT(createCheckoutResp{
			OrderID:         res.Order.ID,
			SessionRedirect: res.Session.RedirectURL,
		}))
	}
}

func RegisterCheckoutRoutes(r gin.IRouter, svc *checkoutsvc.Service) {
	r.POST("/checkout", ApiCreateCheckout(svc))
}
