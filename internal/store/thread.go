package store

import (
	"context"
	"discuss/internal/infra/cache"
	"discuss/internal/models"
	"discuss/internal/profile"
	"discuss/internal/reaction"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// threadRows 一个帖子的原始行，和 viewer 无关，可以整体缓存
type threadRows struct {
	Comments  []models.Comment        `json:"comments"`
	Reactions []models.ReactionRecord `json:"reactions"`
	Authors   []models.Profile        `json:"authors"`
}

// Thread 返回帖子的完整评论树。顶层和每层回复都按创建时间从旧到新排列，
// 表态快照按 viewer 计算，viewer 为 nil 表示匿名。
func (s *Store) Thread(ctx context.Context, postID models.PostID, viewer *models.UserID) (models.Thread, error) {
	rows, err := s.threadRows(ctx, postID)
	if err != nil {
		return models.Thread{}, err
	}

	reactions := make(map[models.EntityRef][]models.Reaction)
	for _, r := range rows.Reactions {
		ref := models.EntityRef{Kind: r.EntityKind, ID: r.EntityID}
		reactions[ref] = append(reactions[ref], r.Reaction())
	}
	authors := make(map[models.UserID]models.Profile, len(rows.Authors))
	for _, p := range rows.Authors {
		authors[p.ID] = p
	}

	// parent id -> 子评论，0 表示顶层
	children := make(map[uint][]models.Comment)
	for _, c := range rows.Comments {
		var parent uint
		if c.ParentID != nil {
			parent = *c.ParentID
		}
		children[parent] = append(children[parent], c)
	}

	var build func(parent uint) []models.CommentNode
	build = func(parent uint) []models.CommentNode {
		level := children[parent]
		if len(level) == 0 {
			return nil
		}
		nodes := make([]models.CommentNode, 0, len(level))
		for _, c := range level {
			kids := build(c.ID)
			author, ok := authors[models.UserID(c.UserID)]
			if !ok {
				author = profile.Fallback(models.UserID(c.UserID))
			}
			nodes = append(nodes, models.CommentNode{
				ID:            models.CommentID(c.ID),
				AuthorID:      models.UserID(c.UserID),
				AuthorDisplay: models.AuthorDisplay{Name: author.Name, Avatar: author.Avatar},
				CreatedAt:     c.CreatedAt,
				Content:       c.Content,
				ReplyCount:    len(kids),
				ReactionState: reaction.ComputeSnapshot(reactions[models.CommentRef(models.CommentID(c.ID))], viewer),
				Children:      kids,
			})
		}
		return nodes
	}

	return models.Thread{
		PostID:        postID,
		PostReactions: reaction.ComputeSnapshot(reactions[models.PostRef(postID)], viewer),
		Comments:      build(0),
	}, nil
}

func (s *Store) threadRows(ctx context.Context, postID models.PostID) (threadRows, error) {
	key := cache.ThreadKey(postID)
	var rows threadRows
	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, &rows)
		if err != nil {
			zap.L().Warn("thread cache read failed", zap.String("key", key), zap.Error(err))
		}
		if hit {
			return rows, nil
		}
	}

	if err := s.postExists(ctx, postID); err != nil {
		return threadRows{}, err
	}

	db := s.db.WithContext(ctx)
	if err := db.Where("post_id = ?", uint(postID)).Order("created_at, id").Find(&rows.Comments).Error; err != nil {
		return threadRows{}, err
	}

	commentIDs := db.Model(&models.Comment{}).Select("id").Where("post_id = ?", uint(postID))
	err := db.Where("(entity_kind = ? AND entity_id = ?) OR (entity_kind = ? AND entity_id IN (?))",
		models.EntityPost, uint(postID), models.EntityComment, commentIDs).
		Order("created_at, id").
		Find(&rows.Reactions).Error
	if err != nil {
		return threadRows{}, err
	}

	seen := make(map[uint]bool)
	var ids []uint
	for _, c := range rows.Comments {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}
	authors, err := s.profiles(ctx, ids)
	if err != nil {
		return threadRows{}, err
	}
	for _, id := range ids {
		if p, ok := authors[models.UserID(id)]; ok {
			rows.Authors = append(rows.Authors, p)
		}
	}

	if s.cache != nil {
		if err := s.cache.SetJSONWithRandomTTL(ctx, key, rows, s.ttl); err != nil {
			zap.L().Warn("thread cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return rows, nil
}

// invalidate 删除帖子的缓存，失败只记日志
func (s *Store) invalidate(ctx context.Context, postID models.PostID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cache.ThreadKey(postID)); err != nil {
		zap.L().Warn("thread cache invalidate failed", zap.Uint("post_id", uint(postID)), zap.Error(err))
	}
}

func (s *Store) reactionsOf(ctx context.Context, db *gorm.DB, entity models.EntityRef) ([]models.Reaction, error) {
	var records []models.ReactionRecord
	err := db.Where("entity_kind = ? AND entity_id = ?", entity.Kind, entity.ID).
		Order("created_at, id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Reaction, len(records))
	for i, r := range records {
		out[i] = r.Reaction()
	}
	return out, nil
}
