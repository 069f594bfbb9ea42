package handlers

import (
	"discuss/internal/models"
	"discuss/internal/utils"
	"discuss/internal/validators"
	"net/http"

	"github.com/gin-gonic/gin"
)

// React 切换表态，返回切换后的权威快照
func (h *Handler) React(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	kind, err := models.ParseEntityKind(c.Param("kind"))
	if err != nil {
		utils.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req validators.ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "不支持的表态")
		return
	}

	entity := models.EntityRef{Kind: kind, ID: id}
	snap, err := h.svc.Store.ToggleReaction(c.Request.Context(), userID, entity, models.ReactionCategory(req.Action))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, snap)
}
