package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"proshop-api/internal/auth"
)

const (
	authCookieName = "jwt"
	principalKey   = "principal"
)

// Authenticate resolves the jwt cookie (or Bearer header) to a
// principal and aborts with 401 otherwise.
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(authCookieName)
		if err != nil || raw == "" {
			header := c.GetHeader("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authorized, no token"})
				return
			}
			raw = strings.TrimPrefix(header, "Bearer ")
		}

		userID, err := h.tokens.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authorized, token failed"})
			return
		}

		user, err := h.users.GetByID(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "not authorized, token failed"})
			return
		}

		c.Set(principalKey, auth.Principal{
			ID:      user.ID,
			Name:    user.Name,
			Email:   user.Email,
			IsAdmin: user.IsAdmin,
		})
		c.Next()
	}
}

// RequireAdmin gates admin-only routes. Must run after Authenticate.
func (h *Handler) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principalFrom(c)
		if !ok || !p.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "not authorized as admin"})
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func (h *Handler) setAuthCookie(c *gin.Context, token string) {
	c.SetCookie(authCookieName, token, int(h.tokens.TTL().Seconds()), "/", "", false, true)
}

func (h *Handler) clearAuthCookie(c *gin.Context) {
	c.SetCookie(authCookieName, "", -1, "/", "", false, true)
}
