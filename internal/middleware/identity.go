package middleware

import (
	"errors"
	"net/http"
	"strings"

	apperrors "concert-tickets/pkg/app_errors"
	"concert-tickets/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	userIDKey = "identity.user_id"
	adminKey  = "identity.admin"
)

var errNoUserClaim = errors.New("token has no userid claim")

// Identity 解析 Authorization: Bearer <jwt>。
// 沒帶 token 時直接放行 (公開路由)，帶了但無效則回 401。
func Identity(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortUnauthorized(c, "Invalid authorization header")
			return
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !tok.Valid {
			logger.WithComponent("handler").Warn("invalid token", zap.Error(err))
			abortUnauthorized(c, "Invalid token")
			return
		}
		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "Invalid token")
			return
		}
		userID, err := userIDFromClaims(claims)
		if err != nil {
			abortUnauthorized(c, "Invalid token")
			return
		}

		c.Set(userIDKey, userID)
		if admin, ok := claims["admin"].(bool); ok && admin {
			c.Set(adminKey, true)
		}
		c.Next()
	}
}

// userid 優先，其次 sub
func userIDFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	for _, key := range []string{"userid", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return uuid.Parse(v)
		}
	}
	return uuid.Nil, errNoUserClaim
}

// RequireUser 需要已登入的使用者
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin 需要 admin claim
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := UserID(c); !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !c.GetBool(adminKey) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   apperrors.ErrForbidden.Error(),
				"message": "Admin permission required",
			})
			return
		}
		c.Next()
	}
}

// UserID 取出 Identity 放進 context 的使用者 id
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// abortUnauthorized error 固定為 ErrUnauthorized，message 說明原因
func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   apperrors.ErrUnauthorized.Error(),
		"message": msg,
	})
}
