package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"fleet-admin/internal/model"
)

const (
	principalContextKey = "principal"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

// Authenticator resolves bearer tokens to the admin principal.
type Authenticator interface {
	Enabled() bool
	Username() string
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

func Auth(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticator.Enabled() {
			c.Set(principalContextKey, model.Principal{Username: authenticator.Username()})
			c.Next()
			return
		}

		token, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		principal, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(principalContextKey, principal)
		c.Next()
	}
}

func BearerToken(c *gin.Context) (string, bool) {
	rawHeader := c.GetHeader(authorizationHeader)
	if rawHeader == "" {
		return "", false
	}
	parts := strings.SplitN(rawHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}

	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}

	return principal, true
}
