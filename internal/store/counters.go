package store

import (
	"context"
	"discuss/internal/models"
	"fmt"
)

// HandleCommentEvent 重新统计父评论的回复数和帖子的评论数。
// 重新统计而不是加减，重复投递也不会算错。
func (s *Store) HandleCommentEvent(ctx context.Context, msg models.CommentMsg) error {
	db := s.db.WithContext(ctx)
	if msg.ParentID != nil {
		var replies int64
		if err := db.Model(&models.Comment{}).Where("parent_id = ?", *msg.ParentID).Count(&replies).Error; err != nil {
			return err
		}
		if err := db.Model(&models.Comment{}).Where("id = ?", *msg.ParentID).Update("reply_count", replies).Error; err != nil {
			return fmt.Errorf("update reply_count: %w", err)
		}
	}

	var total int64
	if err := db.Model(&models.Comment{}).Where("post_id = ?", msg.PostID).Count(&total).Error; err != nil {
		return err
	}
	if err := db.Model(&models.Post{}).Where("id = ?", msg.PostID).Update("comment_count", total).Error; err != nil {
		return fmt.Errorf("update comment_count: %w", err)
	}

	s.invalidate(ctx, models.PostID(msg.PostID))
	return nil
}

// HandleReactionEvent 重新统计 entity 各类别的表态数
func (s *Store) HandleReactionEvent(ctx context.Context, msg models.ReactionMsg) error {
	counts, err := s.ReactionCounts(ctx, models.EntityRef{Kind: msg.EntityKind, ID: msg.EntityID})
	if err != nil {
		return err
	}

	db := s.db.WithContext(ctx)
	switch msg.EntityKind {
	case models.EntityPost:
		err = db.Model(&models.Post{ID: msg.EntityID}).Select("reaction_counts").Updates(&models.Post{ReactionCounts: counts}).Error
	case models.EntityComment:
		err = db.Model(&models.Comment{ID: msg.EntityID}).Select("reaction_counts").Updates(&models.Comment{ReactionCounts: counts}).Error
	default:
		return fmt.Errorf("unknown entity kind %q", msg.EntityKind)
	}
	if err != nil {
		return fmt.Errorf("update reaction_counts: %w", err)
	}

	s.invalidate(ctx, models.PostID(msg.PostID))
	return nil
}

// ReactionCounts 按类别统计，结果包含所有类别
func (s *Store) ReactionCounts(ctx context.Context, entity models.EntityRef) (map[string]int, error) {
	var rows []struct {
		Action string
		N      int
	}
	err := s.db.WithContext(ctx).Model(&models.ReactionRecord{}).
		Select("action, COUNT(*) AS n").
		Where("entity_kind = ? AND entity_id = ?", entity.Kind, entity.ID).
		Group("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[string(c)] = 0
	}
	for _, r := range rows {
		counts[r.Action] = r.N
	}
	return counts, nil
}
