package middleware

import (
	"net/http"
	"strings"
	"time"

	"anoa.com/sparkvest/internal/entity"
	userRepo "anoa.com/sparkvest/internal/modules/user/repository"
	"anoa.com/sparkvest/pkg/logger"
	"anoa.com/sparkvest/pkg/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextUserID    = "user_id"
	ContextUser      = "user"
	ContextTokenID   = "token_id"
	ContextTokenExp  = "token_exp"
	authDeniedNotice = "You do not have permission to access this page."
)

type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	tokens   *token.Manager
	revoker  token.Revoker
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, tokens *token.Manager, revoker token.Revoker) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		tokens:   tokens,
		revoker:  revoker,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		claims, err := m.tokens.Parse(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		if claims.ID != "" {
			revoked, err := m.revoker.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// Fail closed: a logged-out token must not slip through while
				// the revocation list is unreachable.
				logger.L().Error().Err(err).Msg("token revocation check failed")
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session check unavailable, please retry"})
				c.Abort()
				return
			}
			if revoked {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked"})
				c.Abort()
				return
			}
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(ContextTokenExp, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}

// RequireRole loads the caller and rejects anyone whose role is not listed.
// Must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get(ContextUserID)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			c.Abort()
			return
		}

		id, err := uuid.Parse(userID.(string))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			c.Abort()
			return
		}

		user, err := m.userRepo.FindByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			c.Abort()
			return
		}

		if !user.HasRole(roles...) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden", "notice": authDeniedNotice})
			c.Abort()
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(entity.RoleAdmin)
}

// LoadUser makes the caller available through CurrentUser without restricting roles.
func (m *AuthMiddleware) LoadUser() gin.HandlerFunc {
	return m.RequireRole(entity.RoleInvestor, entity.RoleIdeaOwner, entity.RoleAdmin)
}

// CurrentUser returns the user loaded by RequireRole, if any.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, ok := c.Get(ContextUser)
	if !ok {
		return nil, false
	}
	user, ok := v.(*entity.User)
	return user, ok
}

// TokenInfo returns the id and expiry of the bearer token set by RequireAuth.
func TokenInfo(c *gin.Context) (string, time.Time) {
	id := c.GetString(ContextTokenID)
	exp, _ := c.Get(ContextTokenExp)
	t, _ := exp.(time.Time)
	return id, t
}
