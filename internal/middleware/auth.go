package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/domain"
	"github.com/chalkcast/appserver/internal/platform/logger"
	"github.com/chalkcast/appserver/internal/services"
)

const claimsKey = "appclaims"

type AuthMiddleware struct {
	log    *logger.Logger
	tokens services.TokenService
}

func NewAuthMiddleware(log *logger.Logger, tokens services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), tokens: tokens}
}

// RequireAuth verifies the bearer token and stores the decoded claims on
// the request context for handlers downstream.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing or invalid token", "code": "unauthorized"},
			})
			return
		}
		claims, err := am.tokens.VerifyApp(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "token rejected", "code": "unauthorized"},
			})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole gates a route to callers holding at least one of the given
// roles. Must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"message": "missing claims", "code": "unauthorized"},
			})
			return
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{"message": "role_missing", "code": "unauthorized"},
		})
	}
}

// Claims returns the verified app claims of the request, or nil outside
// an authenticated route.
func Claims(c *gin.Context) *domain.AppClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*domain.AppClaims)
	return claims
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	// projection screens open the export endpoint from a plain <a> tag
	return c.Query("token")
}
