package handler

import (
	"net/http"

	"concert-tickets/internal/middleware"
	apperrors "concert-tickets/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// parseUUIDParam 解析路徑參數，失敗時直接回 400
func parseUUIDParam(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " uuid"})
		return uuid.Nil, false
	}
	return id, true
}

// currentUser 路由已掛 RequireUser，這裡取不到代表 middleware 沒接上
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": apperrors.ErrUnauthorized.Error()})
	}
	return userID, ok
}
