package handlers

import (
	"discuss/internal/models"
	"discuss/internal/utils"
	"discuss/internal/validators"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetThread 匿名也可以看，登录时快照里带上自己的表态
func (h *Handler) GetThread(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	th, err := h.svc.Store.Thread(c.Request.Context(), models.PostID(id), utils.ViewerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, th)
}

func (h *Handler) CreateComment(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	postID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req validators.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "评论内容不能为空")
		return
	}

	var parentID *models.CommentID
	if req.ParentID != nil {
		p := models.CommentID(*req.ParentID)
		parentID = &p
	}
	node, err := h.svc.Store.CreateComment(c.Request.Context(), userID, models.PostID(postID), req.Content, parentID)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Created(c, node)
}

func (h *Handler) EditComment(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req validators.EditCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "评论内容不能为空")
		return
	}

	node, err := h.svc.Store.EditComment(c.Request.Context(), userID, models.CommentID(id), req.Content)
	if err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, node)
}

func (h *Handler) DeleteComment(c *gin.Context) {
	userID, err := utils.GetUserID(c)
	if err != nil {
		utils.Error(c, http.StatusUnauthorized, err.Error())
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Store.DeleteComment(c.Request.Context(), userID, models.CommentID(id)); err != nil {
		fail(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "deleted"})
}
