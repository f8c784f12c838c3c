package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"prospectus-backend/internal/shared/server/respond"
)

const clientIDKey = "clientId"

// Identity requires an X-Client-Id header and stores it in the request context.
// There are no user accounts; a client ID identifies one browser session's
// documents, analyses, and chat sessions.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		clientID := strings.TrimSpace(c.GetHeader("X-Client-Id"))
		if clientID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing X-Client-Id header", nil)
			return
		}

		c.Set(clientIDKey, clientID)
		c.Next()
	}
}

// ClientIDFromContext fetches the client ID set by the Identity middleware.
func ClientIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(clientIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
