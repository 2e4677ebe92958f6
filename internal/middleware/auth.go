package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/pkg/errors"
	"github.com/safeanchor/safeanchor/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxKindKey   = "accountKind"
)

// Auth enforces bearer token authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		// Propagate identity into request context
		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxKindKey, claims.Kind)

		c.Next()
	}
}

// RequireKind restricts a route group to the listed account kinds. It must
// run after Auth.
func RequireKind(kinds ...models.UserKind) gin.HandlerFunc {
	allowed := make(map[models.UserKind]struct{}, len(kinds))
	for _, kind := range kinds {
		allowed[kind] = struct{}{}
	}

	return func(c *gin.Context) {
		value, ok := c.Get(CtxKindKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		kind, ok := value.(models.UserKind)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowed[kind]; !ok {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireVerified rejects accounts that have not completed email
// verification. Tokens are only issued after verification, so this guards
// against accounts deactivated or reset after issue. It must run after Auth.
func RequireVerified(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserIDKey)
		if userID == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		var verified bool
		err := db.Model(&models.User{}).
			Select("is_verified").
			Where("id = ?", userID).
			Scan(&verified).Error
		if err != nil || !verified {
			response.Error(c, errors.ErrEmailNotVerified)
			c.Abort()
			return
		}

		c.Next()
	}
}
