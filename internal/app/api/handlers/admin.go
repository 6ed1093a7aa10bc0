package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	checkoutsvc "github.com/fatflowers/storefront/internal/app/service/checkout"
	models "github.com/fatflowers/storefront/internal/models"
	"github.com/fatflowers/storefront/pkg/response"
	"github.com/fatflowers/storefront/pkg/types"
)

type OrderListItem struct {
	ID               string            `json:"id"`
	UserID           string            `json:"user_id"`
	Status           types.OrderStatus `json:"status"`
	Subtotal         decimal.Decimal   `json:"subtotal"`
	Tax              decimal.Decimal   `json:"tax"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	GatewaySessionID *string           `json:"gateway_session_id"`
	ItemCount        int               `json:"item_count"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type ScanOrdersResp struct {
	Items []*OrderListItem `json:"items"`
	Total int64            `json:"total"`
}

func toOrderListItem(m *models.Order) *OrderListItem {
	return &OrderListItem{
		ID:               m.ID,
		UserID:           m.UserID,
		Status:           m.Status,
		Subtotal:         m.Subtotal,
		Tax:              m.Tax,
		TotalAmount:      m.TotalAmount,
		GatewaySessionID: m.GatewaySessionID,
		ItemCount:        len(m.Items),
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// @Summary      Scan Orders
// @Description  Paginated admin listing of orders with filters.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body checkoutsvc.ScanOrdersRequest true "Scan request"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/admin/orders/scan [post]
func ApiScanOrders(svc *checkoutsvc.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req checkoutsvc.ScanOrdersRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}

		res, err := svc.ScanOrders(c.Request.Context(), &req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}

		c.JSON(http.StatusOK, response.OKT(ScanOrdersResp{
			Items: lo.Map(res.Items, func(m *models.Order, _ int) *OrderListItem { return toOrderListItem(m) }),
			Total: res.Total,
		}))
	}
}

func RegisterAdminRoutes(r gin.IRouter, svc *checkoutsvc.Service) {
	r.POST("/orders/scan", ApiScanOrders(svc))
}
