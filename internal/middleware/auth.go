package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"billing-system/internal/auth"
	"billing-system/internal/httpx"
)

// Keys under which the authenticated identity is stored in the gin
// context.
const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
	CtxToken  = "raw_token"
)

// JWTAuth validates the bearer token and consults the revocation
// ledger on every request. A sign-out is visible to the very next
// call through here.
func JWTAuth(signer *auth.Signer, ledger *auth.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httpx.Fail(c, http.StatusUnauthorized, httpx.TypeMissingToken, "Authorization header is required", nil)
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader || tokenStr == "" {
			httpx.Fail(c, http.StatusUnauthorized, httpx.TypeInvalidToken, "Authorization header must be in the form: Bearer <token>", nil)
			c.Abort()
			return
		}

		claims, err := signer.Parse(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				httpx.Fail(c, http.StatusUnauthorized, httpx.TypeTokenExpired, "Token has expired", nil)
			} else {
				httpx.Fail(c, http.StatusUnauthorized, httpx.TypeInvalidToken, "Invalid token", nil)
			}
			c.Abort()
			return
		}

		revoked, err := ledger.IsRevoked(c.Request.Context(), tokenStr)
		if err != nil {
			httpx.Fail(c, http.StatusInternalServerError, httpx.TypeServerError, "Failed to verify token", nil)
			c.Abort()
			return
		}
		if revoked {
			httpx.Fail(c, http.StatusUnauthorized, httpx.TypeTokenRevoked, "Token has been revoked", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxEmail, claims.Email)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxToken, tokenStr)

		c.Next()
	}
}

// RequireRole guards a route group behind a specific role.
func RequireRole(allowedRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(CtxRole)
		if !exists || role != allowedRole {
			httpx.Fail(c, http.StatusForbidden, httpx.TypeForbidden, "You do not have permission to access this resource", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
