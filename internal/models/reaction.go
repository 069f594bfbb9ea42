package models

import "time"

// ReactionCategory 表情类别，封闭枚举
type ReactionCategory string

const (
	ReactionLike  ReactionCategory = "like"
	ReactionLove  ReactionCategory = "love"
	ReactionHaha  ReactionCategory = "haha"
	ReactionWow   ReactionCategory = "wow"
	ReactionSad   ReactionCategory = "sad"
	ReactionAngry ReactionCategory = "angry"
)

// Categories 展示顺序
var Categories = []ReactionCategory{
	ReactionLike, ReactionLove, ReactionHaha, ReactionWow, ReactionSad, ReactionAngry,
}

var categoryEmoji = map[ReactionCategory]string{
	ReactionLike:  "👍",
	ReactionLove:  "❤️",
	ReactionHaha:  "😂",
	ReactionWow:   "😮",
	ReactionSad:   "😢",
	ReactionAngry: "😡",
}

// Valid reports whether c is one of Categories.
func (c ReactionCategory) Valid() bool {
	_, ok := categoryEmoji[c]
	return ok
}

func (c ReactionCategory) Emoji() string {
	return categoryEmoji[c]
}

// Reaction is one user's current reaction on an entity.
type Reaction struct {
	UserID    UserID           `json:"user_id"`
	Action    ReactionCategory `json:"action"`
	CreatedAt time.Time        `json:"created_at"`
}

// ReactionRecord 数据库中的一行，(entity_kind, entity_id, user_id) 唯一
type ReactionRecord struct {
	ID         uint       `gorm:"primaryKey"`
	EntityKind EntityKind `gorm:"size:16;uniqueIndex:idx_reaction_owner"`
	EntityID   uint       `gorm:"uniqueIndex:idx_reaction_owner"`
	UserID     uint       `gorm:"uniqueIndex:idx_reaction_owner;index"`
	Action     string     `gorm:"size:16"`

	CreatedAt time.Time
}

func (ReactionRecord) TableName() string {
	return "reactions"
}

func (r ReactionRecord) Reaction() Reaction {
	return Reaction{
		UserID:    UserID(r.UserID),
		Action:    ReactionCategory(r.Action),
		CreatedAt: r.CreatedAt,
	}
}

// ReactionMsg 投递到 react_queue 的消息
type ReactionMsg struct {
	ID         string     `json:"id"`
	UserID     uint       `json:"user_id"`
	EntityKind EntityKind `json:"entity_kind"`
	EntityID   uint       `json:"entity_id"`
	PostID     uint       `json:"post_id"`
	Action     string     `json:"action"`
}
