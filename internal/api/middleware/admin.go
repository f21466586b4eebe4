package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuthorizer is what the middleware needs from the session store.
type AdminAuthorizer interface {
	Authorize(tokenOrPassword string) bool
}

// Admin guards privileged routes. Machine callers may send the password
// directly; interactive callers use the bearer token from /api/admin/login.
// Accepted, in order: Authorization: Bearer <token>, X-Admin-Password header,
// adminPassword JSON body field.
func Admin(sessions AdminAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			if sessions.Authorize(strings.TrimPrefix(header, "Bearer ")) {
				c.Next()
				return
			}
		}
		if pw := c.GetHeader("X-Admin-Password"); pw != "" && sessions.Authorize(pw) {
			c.Next()
			return
		}
		if pw := passwordFromBody(c); pw != "" && sessions.Authorize(pw) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "unauthorized",
		})
	}
}

// passwordFromBody peeks at the JSON body for adminPassword, restoring the
// body so the handler can still bind it.
func passwordFromBody(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var body struct {
		AdminPassword string `json:"adminPassword"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return body.AdminPassword
}
