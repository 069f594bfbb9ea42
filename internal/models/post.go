package models

import "time"

type Post struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	UserID  uint   `json:"user_id" gorm:"index"`
	Title   string `json:"title" gorm:"size:200"`
	Content string `json:"content" gorm:"type:text"`

	CommentCount   int            `json:"comment_count" gorm:"default:0"`
	ReactionCounts map[string]int `json:"reaction_counts" gorm:"serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PostView 帖子详情，附带当前用户视角的表态快照
type PostView struct {
	Post
	Reactions ReactionSnapshot `json:"reactions"`
}
