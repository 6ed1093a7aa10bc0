package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/storefront/pkg/response"
)

const UserIDKey = "user_id"

// UserAuthMiddleware extracts the authenticated user id forwarded by the
// identity layer in front of this service. The webhook endpoint deliberately
// does not use it: webhook authenticity comes from signature verification.
func UserAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, "missing user identity"))
			return
		}
		c.Set(UserIDKey, userID)
		ctx := context.WithValue(c.Request.Context(), UserIDKey, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
