// Package post is the client side of the posts table: listing, creating
// and deleting posts with the checks that can be made before calling the
// backend. The backend enforces the same rules on its own.
package post

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/model"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MaxLength is the longest post allowed, in characters.
const MaxLength = 280

var (
	ErrInvalidContent   = errors.New("invalid content")
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEmpty and ErrTooLong both match ErrInvalidContent with errors.Is.
	ErrEmpty   error = &contentError{"content is empty"}
	ErrTooLong error = &contentError{"content is longer than 280 characters"}
)

type contentError struct {
	msg string
}

func (e *contentError) Error() string {
	return e.msg
}

func (e *contentError) Is(target error) bool {
	return target == ErrInvalidContent
}

// Validate reports whether content may be posted. Length is counted in
// characters of the content as given, emptiness after trimming.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmpty
	}
	if utf8.RuneCountInString(content) > MaxLength {
		return ErrTooLong
	}
	return nil
}

type Repository struct {
	tables backend.Tables
	log    *zap.Logger
}

type Params struct {
	fx.In

	Tables backend.Tables
	Log    *zap.Logger
}

func New(p Params) *Repository {
	return &Repository{
		tables: p.Tables,
		log:    p.Log.Named("post"),
	}
}

// List returns every post, newest first.
func (r *Repository) List(ctx context.Context, s *model.Session) ([]model.Post, error) {
	posts, err := r.tables.ListPosts(ctx, s.Token())
	if err != nil {
		return nil, backend.Fail("list posts", err)
	}

	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})

	return posts, nil
}

// Create posts content as the session's user. The content is sent exactly
// as given; callers that want it trimmed trim it first.
func (r *Repository) Create(ctx context.Context, s *model.Session, content string) (*model.Post, error) {
	if err := Validate(content); err != nil {
		return nil, err
	}

	p, err := r.tables.InsertPost(ctx, s.Token(), &model.NewPost{
		AuthorID: s.UserID,
		Content:  content,
	})
	if err != nil {
		return nil, backend.Fail("create post", err)
	}

	r.log.Info("post created", zap.Stringer("post", p.ID), zap.String("author", s.UserID))
	return p, nil
}

// Delete removes a post owned by the session's user. The ownership check
// here only spares a round trip; the backend's policy is what enforces it.
func (r *Repository) Delete(ctx context.Context, s *model.Session, id model.ID) error {
	author, err := r.tables.GetPostAuthor(ctx, s.Token(), id)
	if err != nil {
		return backend.Fail("get post", err)
	}

	if author != s.UserID {
		r.log.Warn("refusing to delete post of another author",
			zap.Stringer("post", id),
			zap.String("author", author),
			zap.String("user", s.UserID),
		)
		return ErrPermissionDenied
	}

	if err := r.tables.DeletePost(ctx, s.Token(), id); err != nil {
		return backend.Fail("delete post", err)
	}

	r.log.Info("post deleted", zap.Stringer("post", id), zap.String("author", author))
	return nil
}
