package utils

import (
	"discuss/internal/models"
	"errors"

	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

var ErrNotLoggedIn = errors.New("未登录")

// SetUserID 由鉴权中间件写入
func SetUserID(c *gin.Context, id models.UserID) {
	c.Set(userIDKey, id)
}

func GetUserID(c *gin.Context) (models.UserID, error) {
	raw, exists := c.Get(userIDKey)
	if !exists {
		return 0, ErrNotLoggedIn
	}
	id, ok := raw.(models.UserID)
	if !ok || id == 0 {
		return 0, errors.New("用户ID类型错误")
	}
	return id, nil
}

// ViewerID 匿名访问时返回 nil
func ViewerID(c *gin.Context) *models.UserID {
	id, err := GetUserID(c)
	if err != nil {
		return nil
	}
	return &id
}
