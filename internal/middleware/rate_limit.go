package middleware

import (
	"context"
	"discuss/internal/utils"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Limiter interface {
	AllowRequest(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimitMiddleware 按用户和动作限流，必须放在鉴权之后。lim 为 nil 时不限流。
func RateLimitMiddleware(lim Limiter, action string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if lim == nil {
			c.Next()
			return
		}
		userID, err := utils.GetUserID(c)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, err.Error())
			return
		}
		key := fmt.Sprintf("rate:limit:%d:%s", userID, action)

		allowed, err := lim.AllowRequest(c.Request.Context(), key, limit, window)
		if err != nil {
			// Redis 出错时放行
			zap.L().Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			utils.Error(c, http.StatusTooManyRequests, "操作太频繁，请稍后再试")
			return
		}
		c.Next()
	}
}
