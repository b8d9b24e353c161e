package middleware

import (
	"net/http"
	"strings"

	"anoa.com/isfportal/internal/access"
	"anoa.com/isfportal/internal/entity"
	identityHttp "anoa.com/isfportal/internal/modules/identity/delivery/http"
	identityRepo "anoa.com/isfportal/internal/modules/identity/repository"
	identityService "anoa.com/isfportal/internal/modules/identity/service"
	"anoa.com/isfportal/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProfileKey holds the caller's *entity.Profile once a role check or
// optional auth has loaded it.
const ProfileKey = "profile"

type AuthMiddleware struct {
	accounts identityRepo.AccountRepository
	tokens   identityRepo.TokenStore
	secret   string
}

func NewAuthMiddleware(accounts identityRepo.AccountRepository, tokens identityRepo.TokenStore, secret string) *AuthMiddleware {
	return &AuthMiddleware{
		accounts: accounts,
		tokens:   tokens,
		secret:   secret,
	}
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Fallback to query parameter "token" (useful for WebSockets)
	return c.Query("token")
}

// authenticate verifies the token and stores the caller in the context.
// It writes the 401 itself and reports false when the request must stop.
func (m *AuthMiddleware) authenticate(c *gin.Context, tokenString string) bool {
	claims, err := identityService.ParseAccessToken(m.secret, tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return false
	}

	if m.tokens != nil {
		denied, err := m.tokens.IsDenied(c.Request.Context(), claims.ID)
		if err != nil {
			logger.Error().Err(err).Msg("token denylist lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return false
		}
		if denied {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return false
		}
	}

	c.Set("user_id", claims.Subject)
	c.Set(identityHttp.ClaimsKey, claims)
	return true
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		if !m.authenticate(c, tokenString) {
			return
		}
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through but rejects a bad token, and
// loads the caller's profile when one is presented.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		if !m.authenticate(c, tokenString) {
			return
		}

		if _, ok := m.loadProfile(c); !ok {
			return
		}
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := m.loadProfile(c)
		if !ok {
			return
		}

		if access.Decide(access.Known(profile.Role), role) != access.Allow {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}

		c.Next()
	}
}

func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.RequireRole(entity.RoleAdmin)
}

func (m *AuthMiddleware) loadProfile(c *gin.Context) (*entity.Profile, bool) {
	if p, ok := c.Get(ProfileKey); ok {
		return p.(*entity.Profile), true
	}

	userID, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return nil, false
	}

	profile, err := m.accounts.FindProfile(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}

	c.Set(ProfileKey, profile)
	return profile, true
}

// Subject exposes the caller to the access guard.
func Subject(c *gin.Context) access.Subject {
	if p, ok := c.Get(ProfileKey); ok {
		if profile, ok := p.(*entity.Profile); ok {
			return access.Known(profile.Role)
		}
	}
	return access.Anonymous()
}
