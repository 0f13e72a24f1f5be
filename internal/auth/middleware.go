package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const basicAuthRealm = "call-screening"

// RequireBasicAuth protects agent and admin routes with the SWML credentials.
// The platform embeds them in the URLs it fetches (user:password@host).
// An empty password is a wiring bug; the middleware fails closed.
func RequireBasicAuth(user, password string) gin.HandlerFunc {
	if user == "" || password == "" {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "basic auth not configured"})
		}
	}
	return gin.BasicAuthForRealm(gin.Accounts{user: password}, basicAuthRealm)
}
