package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	websvc "github.com/fatflowers/storefront/internal/app/service/webhook"
	"github.com/fatflowers/storefront/pkg/logctx"
	"github.com/fatflowers/storefront/pkg/response"
)

// SignatureHeader carries the gateway's HMAC over the raw request body.
const SignatureHeader = "X-Gateway-Signature"

// maxWebhookBody bounds the raw payload read into memory.
const maxWebhookBody = 1 << 20

// @Summary      Payment Webhook
// @Description  Ingests signed gateway events. Returns 200 for processed or intentionally ignored events and 400 for inauthentic or malformed payloads; the gateway retries on anything but 2xx.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Raw gateway event payload"
// @Success      200  {object}  handlers.RespOK
// @Router       /api/v1/webhooks/payments [post]
func ApiPaymentWebhook(guard *websvc.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		outcome, err := guard.Process(c.Request.Context(), body, c.GetHeader(SignatureHeader))
		if err != nil {
			log := logctx.FromGin(c, guard.Logger())
			switch {
			case errors.Is(err, websvc.ErrBadSignature), errors.Is(err, websvc.ErrTamperedMetadata):
				log.Errorw("webhook rejected as inauthentic", "error", err.Error())
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
			case errors.Is(err, websvc.ErrMalformedEvent):
				c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			default:
				// Rolled back; a non-2xx makes the gateway redeliver.
				log.Errorw("webhook processing failed", "error", err.Error())
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}

		c.JSON(http.StatusOK, response.OKT(map[string]string{"outcome": string(outcome)}))
	}
}

func RegisterWebhookRoutes(r gin.IRouter, guard *websvc.Guard) {
	r.POST("/webhooks/payments", ApiPaymentWebhook(guard))
}
