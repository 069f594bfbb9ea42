// Package discussion is the single entry point the presentation layer uses
// for one post's thread: load it, write comments and react. It composes the
// comment tree, the optimistic reaction controller, the profile resolver and
// the per-viewer interaction state.
package discussion

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/interaction"
	"discuss/internal/models"
	"discuss/internal/optimistic"
	"discuss/internal/profile"
	"discuss/internal/tree"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("discuss/discussion")

type Option func(*Facade)

func WithLogger(l *zap.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

func WithResolver(r *profile.Resolver) Option {
	return func(f *Facade) { f.profiles = r }
}

// WithControllerOptions passes options to the reaction controller.
func WithControllerOptions(opts ...optimistic.Option) Option {
	return func(f *Facade) { f.ctrlOpts = append(f.ctrlOpts, opts...) }
}

type Facade struct {
	remote   Remote
	viewer   Viewer
	ctrl     *optimistic.Controller
	ctrlOpts []optimistic.Option
	profiles *profile.Resolver
	ui       *interaction.State
	logger   *zap.Logger

	mu        sync.RWMutex
	postID    models.PostID
	loaded    bool
	comments  []models.CommentNode
	// 最近一次请求加载的帖子，较早发起的加载结果到达时直接丢弃
	requested models.PostID
}

func New(remote Remote, viewer Viewer, opts ...Option) *Facade {
	f := &Facade{
		remote: remote,
		viewer: viewer,
		ui:     interaction.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = zap.L()
	}
	f.ctrl = optimistic.NewController(remote, viewer, append([]optimistic.Option{optimistic.WithLogger(f.logger)}, f.ctrlOpts...)...)
	return f
}

// LoadThread fetches the authoritative thread of postID. Switching to another
// post tears down the previous thread's view state first. On failure the last
// loaded thread is kept. A load overtaken by a load of another post, or by
// TearDown, is dropped without touching any state.
func (f *Facade) LoadThread(ctx context.Context, postID models.PostID) error {
	ctx, span := tracer.Start(ctx, "discussion.LoadThread", trace.WithAttributes(attribute.Int64("post.id", int64(postID))))
	defer span.End()

	f.mu.RLock()
	switching := f.loaded && f.postID != postID
	f.mu.RUnlock()
	if switching {
		f.TearDown()
	}
	f.mu.Lock()
	f.requested = postID
	f.mu.Unlock()

	th, err := f.remote.FetchThread(ctx, postID)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("load thread %d: %w", postID, err)
	}
	if !f.current(postID) {
		f.logger.Debug("superseded thread load dropped", zap.Uint("post_id", uint(postID)))
		return nil
	}

	th.PostReactions = f.ctrl.Observe(models.PostRef(postID), th.PostReactions)
	present := map[models.CommentID]bool{}
	var authors []models.Profile
	comments := tree.Transform(th.Comments, func(n models.CommentNode) models.CommentNode {
		present[n.ID] = true
		n.ReactionState = f.ctrl.Observe(models.CommentRef(n.ID), n.ReactionState)
		authors = append(authors, models.Profile{ID: n.AuthorID, Name: n.AuthorDisplay.Name, Avatar: n.AuthorDisplay.Avatar})
		return n
	})
	if f.profiles != nil {
		f.profiles.Prime(authors...)
	}

	f.mu.Lock()
	if f.requested != postID {
		f.mu.Unlock()
		f.logger.Debug("superseded thread load dropped", zap.Uint("post_id", uint(postID)))
		return nil
	}
	var gone []models.CommentID
	if f.postID == postID {
		tree.Walk(f.comments, func(n models.CommentNode, _ int) bool {
			if !present[n.ID] {
				gone = append(gone, n.ID)
			}
			return true
		})
	}
	f.postID = postID
	f.loaded = true
	f.comments = comments
	f.mu.Unlock()

	f.forget(gone)
	span.SetAttributes(attribute.Int("comments.count", tree.Count(comments)))
	return nil
}

// CreateComment posts a comment, as a reply when parentID is set, and then
// reloads the thread.
func (f *Facade) CreateComment(ctx context.Context, postID models.PostID, content string, parentID *models.CommentID) (models.CommentNode, error) {
	ctx, span := tracer.Start(ctx, "discussion.CreateComment")
	defer span.End()

	content, err := f.checkWrite("create comment", content)
	if err != nil {
		return models.CommentNode{}, err
	}

	node, err := f.remote.CreateComment(ctx, postID, content, parentID)
	if err != nil {
		recordError(span, err)
		return models.CommentNode{}, fmt.Errorf("create comment: %w", err)
	}

	if parentID != nil {
		f.ui.SetExpanded(*parentID, true)
	}
	f.ui.CloseReplyComposer()

	if err := f.LoadThread(ctx, postID); err != nil {
		// the write succeeded; keep the tree usable until the next load
		f.logger.Warn("reload after create failed", zap.Uint("post_id", uint(postID)), zap.Error(err))
		f.mu.Lock()
		if f.loaded && f.postID == postID {
			f.comments = tree.Insert(f.comments, parentID, node)
		}
		f.mu.Unlock()
	}
	return node, nil
}

// EditComment replaces a comment's content.
func (f *Facade) EditComment(ctx context.Context, id models.CommentID, content string) (models.CommentNode, error) {
	ctx, span := tracer.Start(ctx, "discussion.EditComment")
	defer span.End()

	content, err := f.checkWrite("edit comment", content)
	if err != nil {
		return models.CommentNode{}, err
	}

	node, err := f.remote.EditComment(ctx, id, content)
	if err != nil {
		recordError(span, err)
		return models.CommentNode{}, fmt.Errorf("edit comment %d: %w", id, err)
	}

	f.mu.Lock()
	f.comments = tree.ReplaceContent(f.comments, id, node.Content)
	f.mu.Unlock()
	f.ui.CloseOverflowMenu()
	return node, nil
}

// DeleteComment removes a comment and its replies, then reloads the thread.
// Deleting a comment someone else already deleted succeeds.
func (f *Facade) DeleteComment(ctx context.Context, id models.CommentID) error {
	ctx, span := tracer.Start(ctx, "discussion.DeleteComment")
	defer span.End()

	if _, ok := f.viewer.CurrentViewerID(); !ok {
		return fmt.Errorf("delete comment %d: %w", id, apperr.ErrUnauthenticated)
	}

	err := f.remote.DeleteComment(ctx, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		recordError(span, err)
		return fmt.Errorf("delete comment %d: %w", id, err)
	}

	f.mu.Lock()
	gone := tree.SubtreeIDs(f.comments, id)
	f.comments = tree.Remove(f.comments, id)
	postID, loaded := f.postID, f.loaded
	f.mu.Unlock()
	f.forget(gone)

	if loaded {
		if err := f.LoadThread(ctx, postID); err != nil {
			f.logger.Warn("reload after delete failed", zap.Uint("post_id", uint(postID)), zap.Error(err))
		}
	}
	return nil
}

// React toggles the viewer's reaction on a post or comment through the
// optimistic controller. It never reloads the thread.
func (f *Facade) React(ctx context.Context, entity models.EntityRef, category models.ReactionCategory) (models.ReactionSnapshot, error) {
	ctx, span := tracer.Start(ctx, "discussion.React", trace.WithAttributes(
		attribute.String("entity", entity.String()),
		attribute.String("category", string(category)),
	))
	defer span.End()

	snap, err := f.ctrl.Toggle(ctx, entity, category)
	if entity.Kind == models.EntityComment {
		if cur, ok := f.ctrl.Snapshot(entity); ok {
			f.mu.Lock()
			f.comments = tree.MapReaction(f.comments, models.CommentID(entity.ID), cur)
			f.mu.Unlock()
		}
	}
	if err != nil {
		recordError(span, err)
		return snap, fmt.Errorf("react: %w", err)
	}
	return snap, nil
}

// Tree returns the current thread with every comment carrying the reaction
// snapshot currently published for it.
func (f *Facade) Tree() []models.CommentNode {
	f.mu.RLock()
	comments := f.comments
	f.mu.RUnlock()

	return tree.Transform(comments, func(n models.CommentNode) models.CommentNode {
		if snap, ok := f.ctrl.Snapshot(models.CommentRef(n.ID)); ok {
			n.ReactionState = snap
		} else {
			n.ReactionState = n.ReactionState.Clone()
		}
		return n
	})
}

// Comment returns one comment of the current thread.
func (f *Facade) Comment(id models.CommentID) (models.CommentNode, bool) {
	return tree.Find(f.Tree(), id)
}

// Snapshot returns the published reaction snapshot of any entity.
func (f *Facade) Snapshot(entity models.EntityRef) (models.ReactionSnapshot, bool) {
	return f.ctrl.Snapshot(entity)
}

// PostID returns the post whose thread is loaded.
func (f *Facade) PostID() (models.PostID, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.postID, f.loaded
}

func (f *Facade) Interaction() *interaction.State {
	return f.ui
}

func (f *Facade) Profiles() *profile.Resolver {
	return f.profiles
}

// Subscribe forwards reaction updates to fn. See optimistic.Listener.
func (f *Facade) Subscribe(fn optimistic.Listener) {
	f.ctrl.Subscribe(fn)
}

// TearDown drops the thread and every piece of view state attached to it.
func (f *Facade) TearDown() {
	f.mu.Lock()
	f.comments = nil
	f.loaded = false
	f.postID = 0
	f.requested = 0
	f.mu.Unlock()

	f.ui.Reset()
	f.ctrl.Reset()
	if f.profiles != nil {
		f.profiles.Reset()
	}
}

func (f *Facade) current(postID models.PostID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.requested == postID
}

func (f *Facade) checkWrite(op, content string) (string, error) {
	if _, ok := f.viewer.CurrentViewerID(); !ok {
		return "", fmt.Errorf("%s: %w", op, apperr.ErrUnauthenticated)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("%s: %w: empty content", op, apperr.ErrValidationFailed)
	}
	return content, nil
}

func (f *Facade) forget(ids []models.CommentID) {
	if len(ids) == 0 {
		return
	}
	refs := make([]models.EntityRef, len(ids))
	for i, id := range ids {
		refs[i] = models.CommentRef(id)
	}
	f.ctrl.Forget(refs...)
	f.ui.Forget(ids...)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
