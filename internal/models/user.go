package models

import "time"

type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Username string `json:"username" gorm:"size:50;uniqueIndex"`
	Password string `json:"-"`
	// Avatar 是对象存储里的 key，不是 URL
	Avatar string `json:"avatar,omitempty" gorm:"size:255"`
	Bio    string `json:"bio,omitempty" gorm:"size:150"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is what the discussion layer needs to render a user.
type Profile struct {
	ID     UserID `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}
