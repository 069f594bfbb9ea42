package store

import (
	"context"
	"discuss/internal/apperr"
	"discuss/internal/models"
	"discuss/internal/store/storetest"
	"discuss/internal/tree"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func (m *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(raw, dst)
}

func (m *memCache) SetJSONWithRandomTTL(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memCache) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

type fixture struct {
	st    *Store
	alice models.UserID
	bob   models.UserID
	post  models.PostID
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]Option{WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})}, opts...)
	st := New(storetest.Open(t), opts...)

	alice, err := st.CreateUser(ctx, "alice", "x")
	require.NoError(t, err)
	bob, err := st.CreateUser(ctx, "bob", "x")
	require.NoError(t, err)
	post, err := st.CreatePost(ctx, models.UserID(alice.ID), "hello", "first post")
	require.NoError(t, err)

	return fixture{st: st, alice: models.UserID(alice.ID), bob: models.UserID(bob.ID), post: models.PostID(post.ID)}
}

func (f fixture) comment(t *testing.T, by models.UserID, content string, parent *models.CommentID) models.CommentID {
	t.Helper()
	n, err := f.st.CreateComment(context.Background(), by, f.post, content, parent)
	require.NoError(t, err)
	return n.ID
}

func ptr(id models.CommentID) *models.CommentID { return &id }

func TestThread_BuildsNestedTree(t *testing.T) {
	f := newFixture(t)
	c1 := f.comment(t, f.alice, "first", nil)
	c2 := f.comment(t, f.bob, "reply", ptr(c1))
	c3 := f.comment(t, f.alice, "deeper", ptr(c2))
	c4 := f.comment(t, f.bob, "second", nil)
	c5 := f.comment(t, f.bob, "another reply", ptr(c1))

	th, err := f.st.Thread(context.Background(), f.post, nil)

	require.NoError(t, err)
	require.Len(t, th.Comments, 2)
	assert.Equal(t, c1, th.Comments[0].ID)
	assert.Equal(t, c4, th.Comments[1].ID)
	assert.Equal(t, 2, th.Comments[0].ReplyCount)
	assert.Equal(t, []models.CommentID{c1, c2, c3}, tree.Path(th.Comments, c3))
	assert.Equal(t, []models.CommentID{c1, c5}, tree.Path(th.Comments, c5))
	assert.Equal(t, "bob", th.Comments[0].Children[0].AuthorDisplay.Name)
	assert.Equal(t, 5, tree.Count(th.Comments))
}

func TestThread_MissingPost(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.Thread(context.Background(), f.post+100, nil)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestThread_ViewerPerspective(t *testing.T) {
	f := newFixture(t)
	c1 := f.comment(t, f.alice, "first", nil)
	_, err := f.st.ToggleReaction(context.Background(), f.bob, models.CommentRef(c1), models.ReactionLove)
	require.NoError(t, err)

	asBob, err := f.st.Thread(context.Background(), f.post, &f.bob)
	require.NoError(t, err)
	asNobody, err := f.st.Thread(context.Background(), f.post, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ReactionLove, asBob.Comments[0].ReactionState.ViewerReaction)
	assert.False(t, asNobody.Comments[0].ReactionState.HasViewerReaction())
	assert.Equal(t, 1, asNobody.Comments[0].ReactionState.Total)
}

func TestCreateComment_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, err := f.st.CreatePost(ctx, f.alice, "other", "post")
	require.NoError(t, err)
	foreign, err := f.st.CreateComment(ctx, f.alice, models.PostID(other.ID), "elsewhere", nil)
	require.NoError(t, err)

	_, err = f.st.CreateComment(ctx, f.alice, f.post, "   ", nil)
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = f.st.CreateComment(ctx, f.alice, f.post+100, "hi", nil)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.st.CreateComment(ctx, f.alice, f.post, "hi", ptr(999))
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.st.CreateComment(ctx, f.alice, f.post, "hi", ptr(foreign.ID))
	assert.ErrorIs(t, err, apperr.ErrNotFound, "parent must belong to the same post")
}

func TestEditComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.comment(t, f.alice, "first", nil)

	_, err := f.st.EditComment(ctx, f.bob, c1, "hijack")
	assert.ErrorIs(t, err, ErrForbidden)

	node, err := f.st.EditComment(ctx, f.alice, c1, " fixed ")
	require.NoError(t, err)
	assert.Equal(t, "fixed", node.Content)

	_, err = f.st.EditComment(ctx, f.alice, 999, "x")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteComment_CascadesAndRecounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c1 := f.comment(t, f.alice, "first", nil)
	c2 := f.comment(t, f.alice, "reply", ptr(c1))
	c3 := f.comment(t, f.bob, "deeper", ptr(c2))
	f.comment(t, f.bob, "sibling", ptr(c1))
	_, err := f.st.ToggleReaction(ctx, f.bob, models.CommentRef(c3), models.ReactionLike)
	require.NoError(t, err)

	assert.ErrorIs(t, f.st.DeleteComment(ctx, f.bob, c2), ErrForbidden)
	require.NoError(t, f.st.DeleteComment(ctx, f.alice, c2))

	th, err := f.st.Thread(ctx, f.post, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Count(th.Comments))
	_, found := tree.Find(th.Comments, c3)
	assert.False(t, found)

	var orphaned int64
	require.NoError(t, f.st.db.Model(&models.ReactionRecord{}).Where("entity_id = ?", uint(c3)).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	var parent models.Comment
	require.NoError(t, f.st.db.First(&parent, uint(c1)).Error)
	assert.Equal(t, 1, parent.ReplyCount)
	var post models.Post
	require.NoError(t, f.st.db.First(&post, uint(f.post)).Error)
	assert.Equal(t, 2, post.CommentCount)

	assert.ErrorIs(t, f.st.DeleteComment(ctx, f.alice, c2), apperr.ErrNotFound)
}

func TestToggleReaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := models.PostRef(f.post)

	snap, err := f.st.ToggleReaction(ctx, f.alice, target, models.ReactionLike)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLike, snap.ViewerReaction)
	assert.Equal(t, 1, snap.Total)

	snap, err = f.st.ToggleReaction(ctx, f.bob, target, models.ReactionHaha)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Total)

	snap, err = f.st.ToggleReaction(ctx, f.alice, target, models.ReactionLove)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionLove, snap.ViewerReaction)
	assert.Equal(t, 0, snap.Count(models.ReactionLike))
	assert.Equal(t, 2, snap.Total)

	snap, err = f.st.ToggleReaction(ctx, f.alice, target, models.ReactionLove)
	require.NoError(t, err)
	assert.False(t, snap.HasViewerReaction())
	assert.Equal(t, 1, snap.Total)

	view, err := f.st.Post(ctx, f.post, &f.bob)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionHaha, view.Reactions.ViewerReaction)
	assert.Equal(t, 1, view.ReactionCounts["haha"])
	assert.Equal(t, 0, view.ReactionCounts["love"])
}

func TestToggleReaction_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.st.ToggleReaction(ctx, f.alice, models.PostRef(f.post), "meh")
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)

	_, err = f.st.ToggleReaction(ctx, f.alice, models.CommentRef(404), models.ReactionLike)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

type recordedEvents struct {
	comments  []models.CommentMsg
	reactions []models.ReactionMsg
}

func (r *recordedEvents) CommentChanged(_ context.Context, msg models.CommentMsg) {
	r.comments = append(r.comments, msg)
}

func (r *recordedEvents) ReactionChanged(_ context.Context, msg models.ReactionMsg) {
	r.reactions = append(r.reactions, msg)
}

func TestEventsArePublished(t *testing.T) {
	events := &recordedEvents{}
	f := newFixture(t, WithEvents(events))
	ctx := context.Background()

	c1 := f.comment(t, f.alice, "first", nil)
	_, err := f.st.ToggleReaction(ctx, f.bob, models.CommentRef(c1), models.ReactionSad)
	require.NoError(t, err)
	require.NoError(t, f.st.DeleteComment(ctx, f.alice, c1))

	require.Len(t, events.comments, 2)
	assert.Equal(t, "create", events.comments[0].Action)
	assert.Equal(t, "delete", events.comments[1].Action)
	require.Len(t, events.reactions, 1)
	assert.Equal(t, uint(f.post), events.reactions[0].PostID)
	assert.Equal(t, "sad", events.reactions[0].Action)
}

func TestThreadCache(t *testing.T) {
	mc := &memCache{data: map[string][]byte{}}
	f := newFixture(t, WithCache(mc, time.Minute))
	ctx := context.Background()
	f.comment(t, f.alice, "first", nil)

	_, err := f.st.Thread(ctx, f.post, nil)
	require.NoError(t, err)
	_, err = f.st.Thread(ctx, f.post, &f.bob)
	require.NoError(t, err)
	assert.Equal(t, 1, mc.hits)

	f.comment(t, f.bob, "second", nil)
	th, err := f.st.Thread(ctx, f.post, nil)
	require.NoError(t, err)
	assert.Len(t, th.Comments, 2, "writes invalidate the cached rows")
	assert.Equal(t, 1, mc.hits)
}

func TestCreateUser_Duplicate(t *testing.T) {
	f := newFixture(t)

	_, err := f.st.CreateUser(context.Background(), "alice", "y")

	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestLookupUser(t *testing.T) {
	f := newFixture(t, WithAvatarURL(func(key string) string { return "cdn/" + key }))
	require.NoError(t, f.st.db.Model(&models.User{}).Where("id = ?", uint(f.bob)).Update("avatar", "b.png").Error)

	p, err := f.st.LookupUser(context.Background(), f.bob)
	require.NoError(t, err)
	assert.Equal(t, models.Profile{ID: f.bob, Name: "bob", Avatar: "cdn/b.png"}, p)

	_, err = f.st.LookupUser(context.Background(), 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserByIDAndSetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.st.SetPassword(ctx, f.alice, "hash2"))
	u, err := f.st.UserByID(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "hash2", u.Password)

	assert.ErrorIs(t, f.st.SetPassword(ctx, 999, "h"), apperr.ErrNotFound)
	_, err = f.st.UserByID(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
