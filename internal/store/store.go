// Package store persists users, posts, comments and reactions with GORM and
// serves comment threads as nested trees.
package store

import (
	"context"
	"discuss/internal/models"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrUsernameTaken = errors.New("username already exists")
)

// ThreadCache 缓存每个帖子的原始评论行和表态行
type ThreadCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSONWithRandomTTL(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Events 接收写操作产生的事件，用于维护冗余计数
type Events interface {
	CommentChanged(ctx context.Context, msg models.CommentMsg)
	ReactionChanged(ctx context.Context, msg models.ReactionMsg)
}

type Option func(*Store)

func WithCache(c ThreadCache, ttl time.Duration) Option {
	return func(s *Store) {
		s.cache = c
		s.ttl = ttl
	}
}

func WithEvents(e Events) Option {
	return func(s *Store) { s.events = e }
}

// WithAvatarURL 把头像 key 转成可访问的 URL
func WithAvatarURL(fn func(key string) string) Option {
	return func(s *Store) { s.avatarURL = fn }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	db        *gorm.DB
	cache     ThreadCache
	ttl       time.Duration
	events    Events
	avatarURL func(string) string
	now       func() time.Time
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:        db,
		ttl:       10 * time.Minute,
		avatarURL: func(key string) string { return key },
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		// 没有外部事件通道时同步更新计数
		s.events = inlineEvents{s}
	}
	return s
}

type inlineEvents struct{ s *Store }

func (e inlineEvents) CommentChanged(ctx context.Context, msg models.CommentMsg) {
	if err := e.s.HandleCommentEvent(ctx, msg); err != nil {
		zap.L().Error("update comment counters failed", zap.Uint("comment_id", msg.CommentID), zap.Error(err))
	}
}

func (e inlineEvents) ReactionChanged(ctx context.Context, msg models.ReactionMsg) {
	if err := e.s.HandleReactionEvent(ctx, msg); err != nil {
		zap.L().Error("update reaction counters failed", zap.Uint("entity_id", msg.EntityID), zap.Error(err))
	}
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
