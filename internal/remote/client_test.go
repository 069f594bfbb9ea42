package remote

import (
	"context"
	"discuss/config"
	"discuss/internal/apperr"
	"discuss/internal/discussion"
	"discuss/internal/handlers"
	"discuss/internal/models"
	"discuss/internal/profile"
	"discuss/internal/store"
	"discuss/internal/store/storetest"
	"discuss/internal/svc"
	"discuss/internal/tree"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := storetest.Open(t)
	s := &svc.ServiceContext{
		Config: &config.Config{
			JWTSecretKey:      "secret",
			JWTIssuer:         "discuss_test",
			JWTExpirationTime: time.Hour,
			ReactRateLimit:    100,
			ReactRateWindow:   time.Minute,
		},
		DB:    db,
		Store: store.New(db),
	}
	srv := httptest.NewServer(handlers.NewRouter(s))
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, base, name string) *Client {
	t.Helper()
	c := New(base)
	ctx := context.Background()
	require.NoError(t, c.call(ctx, "register", http.MethodPost, "/register", map[string]string{"username": name, "password": "secret123"}, nil))
	_, err := c.Login(ctx, name, "secret123")
	require.NoError(t, err)
	return c
}

func createPost(t *testing.T, c *Client) models.PostID {
	t.Helper()
	var p models.Post
	require.NoError(t, c.call(context.Background(), "create post", http.MethodPost, "/posts", map[string]string{"title": "t", "content": "c"}, &p))
	return models.PostID(p.ID)
}

func TestFacadeAgainstServer(t *testing.T) {
	srv := newServer(t)
	alice := login(t, srv.URL, "alice")
	bob := login(t, srv.URL, "bob")
	post := createPost(t, alice)
	ctx := context.Background()

	f := discussion.New(bob, NewTokenViewer(bob.Token()), discussion.WithResolver(profile.NewResolver(bob)))
	require.NoError(t, f.LoadThread(ctx, post))
	assert.Empty(t, f.Tree())

	root, err := f.CreateComment(ctx, post, "hello", nil)
	require.NoError(t, err)
	reply, err := f.CreateComment(ctx, post, "nested", &root.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.CommentID{root.ID, reply.ID}, tree.Path(f.Tree(), reply.ID))

	snap, err := f.React(ctx, models.CommentRef(root.ID), models.ReactionWow)
	require.NoError(t, err)
	assert.Equal(t, models.ReactionWow, snap.ViewerReaction)

	_, err = f.EditComment(ctx, reply.ID, "nested, edited")
	require.NoError(t, err)
	n, _ := f.Comment(reply.ID)
	assert.Equal(t, "nested, edited", n.Content)

	require.NoError(t, f.DeleteComment(ctx, root.ID))
	assert.Empty(t, f.Tree())

	who := f.Profiles().Resolve(ctx, reply.AuthorID)
	assert.Equal(t, "bob", who.Name)
}

func TestFacadeAgainstServer_AuthorOnly(t *testing.T) {
	srv := newServer(t)
	alice := login(t, srv.URL, "alice")
	bob := login(t, srv.URL, "bob")
	post := createPost(t, alice)
	ctx := context.Background()

	mine, err := alice.CreateComment(ctx, post, "alice's", nil)
	require.NoError(t, err)

	f := discussion.New(bob, NewTokenViewer(bob.Token()))
	require.NoError(t, f.LoadThread(ctx, post))

	_, err = f.EditComment(ctx, mine.ID, "bob's now")
	assert.ErrorIs(t, err, apperr.ErrRemoteRejected)
	err = f.DeleteComment(ctx, mine.ID)
	assert.ErrorIs(t, err, apperr.ErrRemoteRejected)
	_, still := f.Comment(mine.ID)
	assert.True(t, still)
}

func TestAnonymousClient(t *testing.T) {
	srv := newServer(t)
	alice := login(t, srv.URL, "alice")
	post := createPost(t, alice)
	anon := New(srv.URL)

	th, err := anon.FetchThread(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, post, th.PostID)

	_, err = anon.React(context.Background(), models.PostRef(post), models.ReactionLike)
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, err, apperr.ErrRemoteRejected)

	_, ok := NewTokenViewer("").CurrentViewerID()
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, apperr.ErrUnauthenticated},
		{http.StatusBadRequest, apperr.ErrValidationFailed},
		{http.StatusNotFound, apperr.ErrNotFound},
		{http.StatusForbidden, apperr.ErrRemoteRejected},
		{http.StatusTooManyRequests, apperr.ErrRemoteRejected},
		{http.StatusInternalServerError, apperr.ErrRemoteRejected},
		{http.StatusServiceUnavailable, apperr.ErrRemoteUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"code":1,"message":"nope"}`))
		}))
		_, err := New(srv.URL).FetchThread(context.Background(), 1)
		srv.Close()
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(base).FetchThread(context.Background(), 1)

	assert.ErrorIs(t, err, apperr.ErrRemoteUnavailable)
}

func TestMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := New(srv.URL).FetchThread(context.Background(), 1)

	require.Error(t, err)
	assert.False(t, apperr.Expected(err))
}
