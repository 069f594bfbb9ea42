package models

import (
	"fmt"
	"strconv"
)

type (
	UserID    uint
	PostID    uint
	CommentID uint
)

// EntityKind 可被表态的对象类型
type EntityKind string

const (
	EntityPost    EntityKind = "post"
	EntityComment EntityKind = "comment"
)

func ParseEntityKind(s string) (EntityKind, error) {
	switch EntityKind(s) {
	case EntityPost, EntityComment:
		return EntityKind(s), nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// EntityRef identifies a reaction-bearing entity. It is comparable and used as a map key.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uint       `json:"id"`
}

func PostRef(id PostID) EntityRef {
	return EntityRef{Kind: EntityPost, ID: uint(id)}
}

func CommentRef(id CommentID) EntityRef {
	return EntityRef{Kind: EntityComment, ID: uint(id)}
}

func (e EntityRef) String() string {
	return string(e.Kind) + ":" + strconv.FormatUint(uint64(e.ID), 10)
}
