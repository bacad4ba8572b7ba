package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/lemur767/assistext-backend-sub001/internal/accountcontext"
)

// HeaderAccount carries the authenticated account id, set by the gateway
// in front of this service.
const HeaderAccount = "X-Account-ID"

// AccountMiddleware resolves the tenant for the request and injects it
// into the request context.
func AccountMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderAccount))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		accountID, err := snowflake.ParseString(raw)
		if err != nil || accountID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := accountcontext.WithAccountID(c.Request.Context(), accountID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// accountFrom pulls the tenant injected by AccountMiddleware.
func accountFrom(c *gin.Context) (snowflake.ID, bool) {
	return accountcontext.AccountIDFromContext(c.Request.Context())
}
