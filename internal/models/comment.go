package models

import "time"

// AuthorDisplay 评论作者的展示信息
type AuthorDisplay struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// CommentNode is one node of a post's comment tree.
type CommentNode struct {
	ID            CommentID        `json:"id"`
	AuthorID      UserID           `json:"author_id"`
	AuthorDisplay AuthorDisplay    `json:"author"`
	CreatedAt     time.Time        `json:"created_at"`
	Content       string           `json:"content"`
	ReplyCount    int              `json:"reply_count"`
	ReactionState ReactionSnapshot `json:"reaction_state"`
	Children      []CommentNode    `json:"children"`
}

// Thread is the authoritative discussion state of one post.
type Thread struct {
	PostID        PostID           `json:"post_id"`
	PostReactions ReactionSnapshot `json:"post_reactions"`
	Comments      []CommentNode    `json:"comments"`
}

// Comment 数据库中的扁平评论行，树形结构由 ParentID 还原
type Comment struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	PostID   uint   `json:"post_id" gorm:"index"`
	ParentID *uint  `json:"parent_id,omitempty" gorm:"index"`
	UserID   uint   `json:"user_id" gorm:"index"`
	Content  string `json:"content" gorm:"type:text"`

	ReplyCount     int            `json:"reply_count" gorm:"default:0"`
	ReactionCounts map[string]int `json:"reaction_counts" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// CommentMsg 投递到 comment_queue 的消息
type CommentMsg struct {
	ID        string `json:"id"`
	PostID    uint   `json:"post_id"`
	CommentID uint   `json:"comment_id"`
	ParentID  *uint  `json:"parent_id,omitempty"`
	Action    string `json:"action"` // "create" / "edit" / "delete"
}
