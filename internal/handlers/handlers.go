package handlers

import (
	"discuss/internal/apperr"
	"discuss/internal/store"
	"discuss/internal/svc"
	"discuss/internal/utils"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc *svc.ServiceContext
}

func New(svc *svc.ServiceContext) *Handler {
	return &Handler{svc: svc}
}

// fail 把领域错误映射成 HTTP 状态码
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidationFailed):
		utils.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthenticated):
		utils.Error(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, store.ErrForbidden):
		utils.Error(c, http.StatusForbidden, "只有作者可以操作这条评论")
	case errors.Is(err, apperr.ErrNotFound):
		utils.Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrUsernameTaken):
		utils.Error(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		zap.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "服务器错误")
	}
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(c, http.StatusBadRequest, "无效的ID")
		return 0, false
	}
	return uint(id), true
}
