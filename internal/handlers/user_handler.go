package handlers

import (
	"discuss/internal/apperr"
	"discuss/internal/models"
	"discuss/internal/utils"
	"discuss/internal/validators"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) Register(c *gin.Context) {
	var req validators.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, err)
		return
	}
	user, err := h.svc.Store.CreateUser(c.Request.Context(), req.Username, string(hashed))
	if err != nil {
		fail(c, err)
		return
	}

	utils.Created(c, gin.H{"id": user.ID, "username": user.Username})
}

func (h *Handler) Login(c *gin.Context) {
	var req validators.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.svc.Store.UserByName(c.Request.Context(), req.Username)
	if errors.Is(err, apperr.ErrNotFound) {
		utils.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.Error(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(h.svc.Config, models.UserID(user.ID), user.Username)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to generate token")
		return
	}

	utils.Success(c, gin.H{"token": token, "user": gin.H{
		"id":       user.ID,
		"username": user.Username,
	}})
}

// Logout 把 token 拉黑到过期为止
func (h *Handler) Logout(c *gin.Context) {
	raw, _ := c.Get("claims")
	claims, ok := raw.(*utils.Claims)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "未登录")
		return
	}
	if h.svc.Cache == nil {
		zap.L().Warn("logout without redis, token stays valid until expiry", zap.String("jti", claims.ID))
		utils.Success(c, gin.H{"message": "logged out"})
		return
	}

	if err := h.svc.Cache.BlacklistToken(c.Request.Context(), claims.ID, claims.Remaining(time.Now())); err != nil {
		zap.L().Error("failed to add token to blacklist", zap.Error(err), zap.String("jti", claims.ID))
		utils.Error(c, http.StatusInternalServerError, "failed to logout")
		return
	}
	utils.Success(c, gin.H{"message": "logged out"})
}

// GetUser 返回 {id, name, avatar}，先查 Redis
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if h.svc.Cache != nil {
		if p, hit := h.svc.Cache.GetProfile(ctx, models.UserID(id)); hit {
			utils.Success(c, p)
			return
		}
	}

	p, err := h.svc.Store.LookupUser(ctx, models.UserID(id))
	if err != nil {
		fail(c, err)
		return
	}
	if h.svc.Cache != nil {
		h.svc.Cache.SetProfile(ctx, p)
	}
	utils.Success(c, p)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, "未登录")
		return
	}
	var req validators.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request")
		return
	}

	ctx := c.Request.Context()
	user, err := h.svc.Store.UserByID(ctx, userID)
	if err != nil {
		fail(c, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		utils.Error(c, http.StatusUnauthorized, "old password is incorrect")
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("hash password failed", zap.Error(err))
		utils.Error(c, http.StatusInternalServerError, "failed to hash new password")
		return
	}
	if err := h.svc.Store.SetPassword(ctx, userID, string(newHash)); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "password changed successfully"})
}
