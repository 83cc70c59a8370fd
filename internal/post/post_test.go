package post

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/backend/backendtest"
	"github.com/ghaggin/feed/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ana = &model.Session{UserID: "u1", AccessToken: "tok-ana"}

func newRepo() (*Repository, *backendtest.Fake) {
	f := backendtest.New()
	return New(Params{Tables: f, Log: zap.NewNop()}), f
}

func TestValidate(t *testing.T) {
	assert := assert.New(t)

	assert.ErrorIs(Validate(""), ErrEmpty)
	assert.ErrorIs(Validate("   \n\t "), ErrEmpty)
	assert.ErrorIs(Validate(strings.Repeat("a", MaxLength+1)), ErrTooLong)
	assert.ErrorIs(Validate(strings.Repeat("a", MaxLength+1)), ErrInvalidContent)

	assert.NoError(Validate("a"))
	assert.NoError(Validate(strings.Repeat("a", MaxLength)))
	// characters, not bytes
	assert.NoError(Validate(strings.Repeat("ñ", MaxLength)))
}

func TestCreate_rejectsBeforeAnyCall(t *testing.T) {
	for _, content := range []string{"", "   ", "\n", strings.Repeat("x", 281), strings.Repeat("é", 300)} {
		r, f := newRepo()

		_, err := r.Create(context.Background(), ana, content)

		assert.ErrorIs(t, err, ErrInvalidContent)
		assert.Empty(t, f.Calls)
	}
}

func TestCreate_forwardsRawContent(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r, f := newRepo()

	p, err := r.Create(context.Background(), ana, "  hola mundo  ")
	require.NoError(err)

	require.Len(f.InsertedPosts, 1)
	assert.Equal("  hola mundo  ", f.InsertedPosts[0].Content)
	assert.Equal("u1", f.InsertedPosts[0].AuthorID)
	assert.Equal("u1", p.AuthorID)
}

func TestCreate_forwardsTrimmedContent(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r, f := newRepo()

	_, err := r.Create(context.Background(), ana, strings.TrimSpace("  hola mundo  "))
	require.NoError(err)

	require.Len(f.InsertedPosts, 1)
	assert.Equal("hola mundo", f.InsertedPosts[0].Content)
	assert.Equal("u1", f.InsertedPosts[0].AuthorID)
}

func TestCreate_maxLength(t *testing.T) {
	r, f := newRepo()

	_, err := r.Create(context.Background(), ana, strings.Repeat("x", MaxLength))

	assert.NoError(t, err)
	assert.Equal(t, 1, f.CallCount("InsertPost"))
}

func TestCreate_remoteFailure(t *testing.T) {
	r, f := newRepo()
	f.InsertPostErr = errors.New("connection reset")

	_, err := r.Create(context.Background(), ana, "hola")

	var rf *backend.RemoteFailure
	assert.True(t, errors.As(err, &rf))
	assert.Equal(t, "create post", rf.Op)
}

func TestList_newestFirst(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	r, f := newRepo()
	base := f.Now
	f.Posts = []model.Post{
		{ID: "1", CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "3", CreatedAt: base},
		{ID: "2", CreatedAt: base.Add(-time.Hour)},
	}

	posts, err := r.List(context.Background(), ana)
	require.NoError(err)

	ids := []model.ID{}
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	assert.Equal([]model.ID{"3", "2", "1"}, ids)
}

func TestList_remoteFailureNotRetried(t *testing.T) {
	r, f := newRepo()
	f.ListPostsErr = errors.New("timeout")

	_, err := r.List(context.Background(), ana)

	var rf *backend.RemoteFailure
	assert.True(t, errors.As(err, &rf))
	assert.Equal(t, 1, f.CallCount("ListPosts"))
}

func TestDelete_ownPost(t *testing.T) {
	r, f := newRepo()
	f.Posts = []model.Post{{ID: "7", AuthorID: "u1"}}

	require.NoError(t, r.Delete(context.Background(), ana, "7"))

	assert.Equal(t, 1, f.CallCount("DeletePost"))
	assert.Empty(t, f.Posts)
}

func TestDelete_otherAuthorNeverDeletes(t *testing.T) {
	r, f := newRepo()
	f.Posts = []model.Post{{ID: "7", AuthorID: "u2"}}

	err := r.Delete(context.Background(), ana, "7")

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 1, f.CallCount("GetPostAuthor"))
	assert.Equal(t, 0, f.CallCount("DeletePost"))
	assert.Len(t, f.Posts, 1)
}

func TestDelete_remoteFailures(t *testing.T) {
	assert := assert.New(t)

	r, f := newRepo()
	f.GetPostAuthorErr = errors.New("boom")

	err := r.Delete(context.Background(), ana, "7")
	var rf *backend.RemoteFailure
	assert.True(errors.As(err, &rf))
	assert.Equal(0, f.CallCount("DeletePost"))

	r, f = newRepo()
	f.Posts = []model.Post{{ID: "7", AuthorID: "u1"}}
	f.DeletePostErr = errors.New("boom")

	err = r.Delete(context.Background(), ana, "7")
	assert.True(errors.As(err, &rf))
	assert.Equal("delete post", rf.Op)
}
