package discussion

import (
	"context"
	"discuss/internal/models"
	"discuss/internal/optimistic"
)

// Remote is the server side of a thread. Implementations classify failures
// with the apperr sentinels.
type Remote interface {
	FetchThread(ctx context.Context, postID models.PostID) (models.Thread, error)
	CreateComment(ctx context.Context, postID models.PostID, content string, parentID *models.CommentID) (models.CommentNode, error)
	EditComment(ctx context.Context, id models.CommentID, content string) (models.CommentNode, error)
	DeleteComment(ctx context.Context, id models.CommentID) error
	optimistic.Mutator
}

// Viewer is consulted before every write.
type Viewer = optimistic.Viewer
