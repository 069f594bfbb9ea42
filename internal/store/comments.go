package store

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"discuss/internal/profile"
	"discuss/internal/reaction"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// CreateComment 发表评论，parentID 不为空时作为回复，父评论必须属于同一个帖子
func (s *Store) CreateComment(ctx context.Context, userID models.UserID, postID models.PostID, content string, parentID *models.CommentID) (models.CommentNode, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.CommentNode{}, fmt.Errorf("create comment: %w: empty content", apperr.ErrValidationFailed)
	}
	if err := s.postExists(ctx, postID); err != nil {
		return models.CommentNode{}, err
	}

	row := models.Comment{
		PostID:         uint(postID),
		UserID:         uint(userID),
		Content:        content,
		ReactionCounts: map[string]int{},
	}
	db := s.db.WithContext(ctx)
	if parentID != nil {
		var parent models.Comment
		err := db.Select("id, post_id").First(&parent, uint(*parentID)).Error
		if notFound(err) || (err == nil && parent.PostID != uint(postID)) {
			return models.CommentNode{}, fmt.Errorf("parent comment %d: %w", *parentID, apperr.ErrNotFound)
		}
		if err != nil {
			return models.CommentNode{}, err
		}
		pid := parent.ID
		row.ParentID = &pid
	}

	if err := db.Create(&row).Error; err != nil {
		return models.CommentNode{}, fmt.Errorf("create comment: %w", err)
	}

	s.invalidate(ctx, postID)
	s.events.CommentChanged(ctx, models.CommentMsg{
		PostID:    row.PostID,
		CommentID: row.ID,
		ParentID:  row.ParentID,
		Action:    "create",
	})
	v := userID
	return s.nodeOf(ctx, row, &v)
}

// EditComment 只有作者可以修改内容
func (s *Store) EditComment(ctx context.Context, userID models.UserID, id models.CommentID, content string) (models.CommentNode, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.CommentNode{}, fmt.Errorf("edit comment: %w: empty content", apperr.ErrValidationFailed)
	}

	row, err := s.ownComment(ctx, s.db.WithContext(ctx), userID, id)
	if err != nil {
		return models.CommentNode{}, err
	}
	if err := s.db.WithContext(ctx).Model(&row).Update("content", content).Error; err != nil {
		return models.CommentNode{}, fmt.Errorf("edit comment: %w", err)
	}
	row.Content = content

	s.invalidate(ctx, models.PostID(row.PostID))
	s.events.CommentChanged(ctx, models.CommentMsg{
		PostID:    row.PostID,
		CommentID: row.ID,
		ParentID:  row.ParentID,
		Action:    "edit",
	})
	v := userID
	return s.nodeOf(ctx, row, &v)
}

// DeleteComment 删除评论及其所有回复和它们的表态
func (s *Store) DeleteComment(ctx context.Context, userID models.UserID, id models.CommentID) error {
	var row models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = s.ownComment(ctx, tx, userID, id)
		if err != nil {
			return err
		}

		ids := []uint{row.ID}
		frontier := []uint{row.ID}
		for len(frontier) > 0 {
			var next []uint
			if err := tx.Model(&models.Comment{}).Where("parent_id IN ?", frontier).Pluck("id", &next).Error; err != nil {
				return err
			}
			ids = append(ids, next...)
			frontier = next
		}

		if err := tx.Where("entity_kind = ? AND entity_id IN ?", models.EntityComment, ids).Delete(&models.ReactionRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Comment{}).Error
	})
	if err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}

	s.invalidate(ctx, models.PostID(row.PostID))
	s.events.CommentChanged(ctx, models.CommentMsg{
		PostID:    row.PostID,
		CommentID: row.ID,
		ParentID:  row.ParentID,
		Action:    "delete",
	})
	return nil
}

func (s *Store) ownComment(ctx context.Context, db *gorm.DB, userID models.UserID, id models.CommentID) (models.Comment, error) {
	var row models.Comment
	err := db.First(&row, uint(id)).Error
	if notFound(err) {
		return models.Comment{}, fmt.Errorf("comment %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Comment{}, err
	}
	if row.UserID != uint(userID) {
		return models.Comment{}, fmt.Errorf("comment %d: %w", id, ErrForbidden)
	}
	return row, nil
}

// nodeOf 单个评论节点，不带子节点
func (s *Store) nodeOf(ctx context.Context, row models.Comment, viewer *models.UserID) (models.CommentNode, error) {
	author, err := s.LookupUser(ctx, models.UserID(row.UserID))
	if err != nil {
		author = profile.Fallback(models.UserID(row.UserID))
	}
	reactions, err := s.reactionsOf(ctx, s.db.WithContext(ctx), models.CommentRef(models.CommentID(row.ID)))
	if err != nil {
		return models.CommentNode{}, err
	}
	return models.CommentNode{
		ID:            models.CommentID(row.ID),
		AuthorID:      models.UserID(row.UserID),
		AuthorDisplay: models.AuthorDisplay{Name: author.Name, Avatar: author.Avatar},
		CreatedAt:     row.CreatedAt,
		Content:       row.Content,
		ReplyCount:    row.ReplyCount,
		ReactionState: reaction.ComputeSnapshot(reactions, viewer),
	}, nil
}
