package middleware

import (
	"context"
	"discuss/config"
	"discuss/internal/utils"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Blacklist 登出 token 的黑名单，一般是 Redis
type Blacklist interface {
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuthMiddleware 要求登录
func JWTAuthMiddleware(cfg *config.Config, bl Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearer(c)
		if !ok {
			utils.Error(c, http.StatusUnauthorized, "缺少或无效的 Authorization 头")
			return
		}
		if !authenticate(c, cfg, bl, tokenString) {
			utils.Error(c, http.StatusUnauthorized, "token 无效或已过期")
			return
		}
		c.Next()
	}
}

// OptionalAuthMiddleware 允许匿名访问，带了合法 token 就识别用户
func OptionalAuthMiddleware(cfg *config.Config, bl Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString, ok := bearer(c); ok {
			authenticate(c, cfg, bl, tokenString)
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, cfg *config.Config, bl Blacklist, tokenString string) bool {
	claims, err := utils.ValidateToken(cfg, tokenString)
	if err != nil {
		return false
	}
	if bl != nil {
		blocked, err := bl.IsTokenBlacklisted(c.Request.Context(), claims.ID)
		if err != nil {
			// Redis 不可用时放行，签名和有效期已经校验过
			zap.L().Warn("blacklist check failed", zap.String("token", utils.GetTokenHash(tokenString)), zap.Error(err))
		} else if blocked {
			return false
		}
	}
	id, err := claims.Viewer()
	if err != nil {
		return false
	}
	utils.SetUserID(c, id)
	c.Set("claims", claims)
	return true
}

func bearer(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
