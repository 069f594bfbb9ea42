package store

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"discuss/internal/reaction"
	"fmt"
	"strings"
)

func (s *Store) CreatePost(ctx context.Context, userID models.UserID, title, content string) (models.Post, error) {
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return models.Post{}, fmt.Errorf("create post: %w: title and content are required", apperr.ErrValidationFailed)
	}
	post := models.Post{UserID: uint(userID), Title: title, Content: content, ReactionCounts: map[string]int{}}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return models.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

// Post 返回帖子和 viewer 视角的表态快照，viewer 为 nil 表示匿名
func (s *Store) Post(ctx context.Context, id models.PostID, viewer *models.UserID) (models.PostView, error) {
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, uint(id)).Error
	if notFound(err) {
		return models.PostView{}, fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.PostView{}, err
	}
	reactions, err := s.reactionsOf(ctx, s.db.WithContext(ctx), models.PostRef(id))
	if err != nil {
		return models.PostView{}, err
	}
	return models.PostView{Post: post, Reactions: reaction.ComputeSnapshot(reactions, viewer)}, nil
}

func (s *Store) postExists(ctx context.Context, id models.PostID) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", uint(id)).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("post %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
