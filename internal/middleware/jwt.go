package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
	"github.com/noah-isme/lms-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenVerifier validates tokens and answers revocation queries. The
// revocation check runs on every authenticated request: a structurally valid,
// unexpired token bound to a revoked jti is still rejected here.
type TokenVerifier interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMetrics counts rejected authentication attempts. Nil disables counting.
type AuthMetrics interface {
	CountAuthRejection(reason string)
}

// JWT protects routes by requiring a valid, unrevoked access token.
func JWT(verifier TokenVerifier, metrics AuthMetrics) gin.HandlerFunc {
	reject := func(reason string) {
		if metrics != nil {
			metrics.CountAuthRejection(reason)
		}
	}

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			reject("missing_header")
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			reject("malformed_header")
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := verifier.ValidateToken(parts[1])
		if err != nil {
			reject("invalid_token")
			response.Error(c, err)
			c.Abort()
			return
		}

		revoked, err := verifier.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		if revoked {
			reject("revoked")
			response.Error(c, appErrors.ErrTokenRevoked)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}
