package handlers

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/routing"
	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

// Context keys set by AuthMiddleware
const (
	ctxUserID   = "user_id"
	ctxUserRole = "user_role"
	ctxSession  = "session"
	ctxToken    = "session_token"
)

// AuthMiddleware resolves bearer session tokens against the session store
type AuthMiddleware struct {
	sessions services.SessionService
	logger   utils.Logger
}

func NewAuthMiddleware(sessions services.SessionService, logger utils.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		logger:   logger,
	}
}

// RequireSession rejects requests without a live session. Missing, expired and
// malformed sessions all answer 401 with a redirect to the login view.
func (am *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message:  "authorization header missing or malformed",
				Redirect: routing.ViewLogin,
			})
			return
		}

		session, err := am.sessions.Load(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, services.ErrUnauthorized) {
				utils.GetLogger(c, am.logger).Error("Failed to load session", "error", err)
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message:  "session expired or invalid",
				Redirect: routing.ViewLogin,
			})
			return
		}

		c.Set(ctxUserID, session.UserID)
		c.Set(ctxUserRole, session.Rol)
		c.Set(ctxSession, session)
		c.Set(ctxToken, token)

		c.Next()
	}
}

// RequireRoleMiddleware admits only the listed roles. Others are sent back to
// the root view, which resolves their own landing page.
func (am *AuthMiddleware) RequireRoleMiddleware(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := currentRole(c)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message:  "User not authenticated",
				Redirect: routing.ViewLogin,
			})
			return
		}

		if !slices.Contains(roles, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Message:  "Forbidden - insufficient permissions",
				Redirect: routing.ViewLogin,
			})
			return
		}

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

