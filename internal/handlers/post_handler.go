package handlers

import (
	"discuss/internal/models"
	"discuss/internal/utils"
	"discuss/internal/validators"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreatePost(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	var req validators.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid post")
		return
	}

	post, err := h.svc.Store.CreatePost(c.Request.Context(), userID, req.Title, req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Created(c, post)
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.Store.Post(c.Request.Context(), models.PostID(id), utils.ViewerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, view)
}
