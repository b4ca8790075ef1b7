package callable

import (
	"github.com/T1nker-1220/kusina-de-amadeo-sub000/internal/pkg/auth"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenVerifier checks storefront access tokens
type TokenVerifier interface {
	ValidateAccessToken(token string) (*auth.Claims, error)
}

// RequireAdmin only lets staff access tokens through. Every function sends
// messages on the store's provider accounts.
func RequireAdmin(tokens TokenVerifier, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.ExtractTokenFromHeader(c.GetHeader("Authorization"))
		if token == "" {
			writeError(c, Errorf(StatusUnauthenticated, "a bearer token is required"))
			return
		}

		claims, err := tokens.ValidateAccessToken(token)
		if err != nil {
			logger.WithError(err).WithField("path", c.Request.URL.Path).Warn("Callable request with invalid token")
			writeError(c, Errorf(StatusUnauthenticated, "invalid or expired token"))
			return
		}
		if !claims.IsAdmin {
			logger.WithFields(logrus.Fields{
				"user_id": claims.UserID,
				"path":    c.Request.URL.Path,
			}).Warn("Callable request from non-admin")
			writeError(c, Errorf(StatusPermissionDenied, "admin access required"))
			return
		}

		c.Set("user_id", claims.UserID)
		c.Next()
	}
}
