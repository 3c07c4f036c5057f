package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/identity"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserLoader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	TouchLastActivity(ctx context.Context, id string) error
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserLoader
	log   *slog.Logger
}

func NewAuthMiddleware(jwt TokenVerifier, users UserLoader, log *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:   jwt,
		users: users,
		log:   log,
	}
}

// RequireAuth is the guard in front of every protected route. Token
// validity alone is not enough: the store is re-consulted on each request,
// so blocking a user kills their live sessions on the very next call.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthorized(c, "Missing or invalid access token")
			return
		}

		// verification is pure, so it runs before any store round trip
		claims, err := m.jwt.Verify(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		u, err := m.users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				abortUnauthorized(c, "User not found")
				return
			}

			m.log.Error("guard user lookup", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": gin.H{
					"code":    "internal_error",
					"message": "Could not authenticate request",
				},
			})
			return
		}

		if u.Blocked() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "User account is blocked",
				},
			})
			return
		}

		ident := identity.Identity{
			ID:     u.ID,
			Name:   u.Name,
			Email:  u.Email,
			Status: u.Status,
		}

		c.Set(ctxIdentityKey, ident)
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), ident))

		// best effort: a failed activity bump never fails the request
		if err := m.users.TouchLastActivity(c.Request.Context(), u.ID); err != nil {
			m.log.Error("touch last activity", "err", err, "user_id", u.ID)
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "unauthorized",
			"message": message,
		},
	})
}

const ctxIdentityKey = "auth.identity"

// IdentityFromContext is the helper handlers use so they never touch the
// magic key directly.
func IdentityFromContext(c *gin.Context) (identity.Identity, bool) {
	v, ok := c.Get(ctxIdentityKey)
	if !ok {
		return identity.Identity{}, false
	}
	ident, ok := v.(identity.Identity)
	return ident, ok
}
