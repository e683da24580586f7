package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/carepoint/internal/domain"
	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Authenticator resolves a bearer access token to the caller's claims.
type Authenticator interface {
	Authenticate(accessToken string) (*domain.Claims, error)
}

type errorBody struct {
	Error string `json:"error"`
}

func abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, errorBody{Error: msg})
}

// RequireAuth validates the Authorization header and stores the claims on the
// gin context and the caller identity on the request context.
func RequireAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abort(c, http.StatusUnauthorized, "authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := a.Authenticate(strings.TrimSpace(token))
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(claimsKey, claims)

		actor, _ := domain.ActorFromContext(c.Request.Context())
		actor.UserID = claims.UserID
		actor.Role = claims.Role
		c.Request = c.Request.WithContext(domain.WithActor(c.Request.Context(), actor))

		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "authentication required")
			return
		}
		if !slices.Contains(roles, claims.Role) {
			abort(c, http.StatusForbidden, "access denied")
			return
		}
		c.Next()
	}
}

func ClaimsFrom(c *gin.Context) (*domain.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.Claims)
	return claims, ok
}
