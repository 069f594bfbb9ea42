package store

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"discuss/internal/reaction"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ToggleReaction 按表态规则切换 viewer 在 entity 上的表态，返回切换后的权威快照：
// 没有表态则添加，相同类别则撤销，不同类别则替换。
func (s *Store) ToggleReaction(ctx context.Context, viewer models.UserID, entity models.EntityRef, category models.ReactionCategory) (models.ReactionSnapshot, error) {
	if !category.Valid() {
		return models.ReactionSnapshot{}, fmt.Errorf("react: %w: unknown category %q", apperr.ErrValidationFailed, category)
	}

	var (
		snap   models.ReactionSnapshot
		postID models.PostID
		target models.ReactionCategory
		err    error
	)
	// 同一用户并发点击可能撞唯一索引，重试一次
	for attempt := 0; attempt < 2; attempt++ {
		snap, postID, target, err = s.toggle(ctx, viewer, entity, category)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if err != nil {
		return models.ReactionSnapshot{}, fmt.Errorf("react %s: %w", entity, err)
	}

	s.invalidate(ctx, postID)
	s.events.ReactionChanged(ctx, models.ReactionMsg{
		UserID:     uint(viewer),
		EntityKind: entity.Kind,
		EntityID:   entity.ID,
		PostID:     uint(postID),
		Action:     string(target),
	})
	return snap, nil
}

func (s *Store) toggle(ctx context.Context, viewer models.UserID, entity models.EntityRef, category models.ReactionCategory) (models.ReactionSnapshot, models.PostID, models.ReactionCategory, error) {
	var (
		snap   models.ReactionSnapshot
		postID models.PostID
		target models.ReactionCategory
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		postID, err = s.postOf(tx, entity)
		if err != nil {
			return err
		}

		current, err := s.reactionsOf(ctx, tx, entity)
		if err != nil {
			return err
		}
		now := s.now()
		before := reaction.ComputeSnapshot(current, &viewer).ViewerReaction
		target = reaction.Next(before, category)

		owner := tx.Where("entity_kind = ? AND entity_id = ? AND user_id = ?", entity.Kind, entity.ID, uint(viewer))
		switch {
		case target == "":
			err = owner.Delete(&models.ReactionRecord{}).Error
		case before == "":
			err = tx.Create(&models.ReactionRecord{
				EntityKind: entity.Kind,
				EntityID:   entity.ID,
				UserID:     uint(viewer),
				Action:     string(target),
				CreatedAt:  now,
			}).Error
		default:
			err = owner.Model(&models.ReactionRecord{}).Updates(map[string]interface{}{
				"action":     string(target),
				"created_at": now,
			}).Error
		}
		if err != nil {
			return err
		}

		snap = reaction.ComputeSnapshot(reaction.Apply(current, viewer, target, now), &viewer)
		return nil
	})
	return snap, postID, target, err
}

// postOf 返回 entity 所属的帖子，entity 不存在时返回 ErrNotFound
func (s *Store) postOf(db *gorm.DB, entity models.EntityRef) (models.PostID, error) {
	switch entity.Kind {
	case models.EntityPost:
		var n int64
		if err := db.Model(&models.Post{}).Where("id = ?", entity.ID).Count(&n).Error; err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, fmt.Errorf("post %d: %w", entity.ID, apperr.ErrNotFound)
		}
		return models.PostID(entity.ID), nil
	case models.EntityComment:
		var c models.Comment
		err := db.Select("id, post_id").First(&c, entity.ID).Error
		if notFound(err) {
			return 0, fmt.Errorf("comment %d: %w", entity.ID, apperr.ErrNotFound)
		}
		return models.PostID(c.PostID), err
	}
	return 0, fmt.Errorf("%w: unknown entity kind %q", apperr.ErrValidationFailed, entity.Kind)
}
