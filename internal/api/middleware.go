package api

import (
	"net/http"
	"strconv"
	"time"

	"chrisshop/internal/models"
	"chrisshop/internal/service"
	"chrisshop/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

const (
	sessionName  = "chrisshop-session"
	sessionToken = "token"
	principalKey = "principal"
)

// sessionMiddleware resolves the session cookie into a Principal and stores
// it in the gin context. Requests without a valid session pass through
// unauthenticated; the Require* guards decide what that means per route.
func sessionMiddleware(cookies *sessions.CookieStore, auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := cookies.Get(c.Request, sessionName)
		token, _ := session.Values[sessionToken].(string)

		principal, err := auth.Resolve(c.Request.Context(), token)
		if err == nil && principal != nil {
			c.Set(principalKey, *principal)
		}

		c.Next()
	}
}

// requireAuth rejects unauthenticated requests
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(principalKey); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}
		c.Next()
	}
}

// requireRole rejects authenticated callers holding the wrong role
func requireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := currentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "authentication required",
			})
			return
		}
		if principal.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   "operation not permitted",
			})
			return
		}
		c.Next()
	}
}

// currentPrincipal fetches the authenticated principal from the gin context
func currentPrincipal(c *gin.Context) (models.Principal, bool) {
	val, ok := c.Get(principalKey)
	if !ok {
		return models.Principal{}, false
	}
	principal, ok := val.(models.Principal)
	return principal, ok
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
