package validators

type CreatePostRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
}

type CreateCommentRequest struct {
	Content  string `json:"content" binding:"required,max=5000"`
	ParentID *uint  `json:"parent_id,omitempty" binding:"omitempty,min=1"`
}

type EditCommentRequest struct {
	Content string `json:"content" binding:"required,max=5000"`
}

type ReactRequest struct {
	Action string `json:"action" binding:"required,oneof=like love haha wow sad angry"`
}
