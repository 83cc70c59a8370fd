package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ghaggin/feed/internal/backend"
	"github.com/ghaggin/feed/internal/model"
)

const (
	preferMinimal        = "return=minimal"
	preferRepresentation = "return=representation"

	postsSelect = "*,profiles(username,full_name)"
)

func eq(v string) string {
	return "eq." + v
}

func (c *Client) table(name string) string {
	return restPath + "/" + name
}

func (c *Client) InsertProfile(ctx context.Context, token string, p *model.Profile) error {
	return c.do(ctx, request{
		op:     "insert profile",
		method: http.MethodPost,
		path:   c.table(c.tables.Profiles),
		token:  token,
		prefer: preferMinimal,
		body:   []*model.Profile{p},
	}, nil)
}

func (c *Client) GetProfile(ctx context.Context, token, id string) (*model.Profile, error) {
	var rows []model.Profile
	err := c.do(ctx, request{
		op:     "get profile",
		method: http.MethodGet,
		path:   c.table(c.tables.Profiles),
		query: url.Values{
			"select": {"*"},
			"id":     {eq(id)},
			"limit":  {"1"},
		},
		token: token,
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &backend.RemoteFailure{Op: "get profile", Status: http.StatusNotFound, Err: backend.ErrNotFound}
	}

	return &rows[0], nil
}

func (c *Client) InsertPost(ctx context.Context, token string, p *model.NewPost) (*model.Post, error) {
	var rows []model.Post
	err := c.do(ctx, request{
		op:     "insert post",
		method: http.MethodPost,
		path:   c.table(c.tables.Posts),
		token:  token,
		prefer: preferRepresentation,
		body:   []*model.NewPost{p},
	}, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &backend.RemoteFailure{Op: "insert post", Message: "no row returned"}
	}

	return &rows[0], nil
}

func (c *Client) ListPosts(ctx context.Context, token string) ([]model.Post, error) {
	var rows []model.Post
	err := c.do(ctx, request{
		op:     "list posts",
		method: http.MethodGet,
		path:   c.table(c.tables.Posts),
		query: url.Values{
			"select": {postsSelect},
			"order":  {"created_at.desc"},
		},
		token: token,
	}, &rows)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

func (c *Client) GetPostAuthor(ctx context.Context, token string, id model.ID) (string, error) {
	var rows []struct {
		AuthorID string `json:"user_id"`
	}
	err := c.do(ctx, request{
		op:     "get post",
		method: http.MethodGet,
		path:   c.table(c.tables.Posts),
		query: url.Values{
			"select": {"user_id"},
			"id":     {eq(id.String())},
			"limit":  {"1"},
		},
		token: token,
	}, &rows)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", &backend.RemoteFailure{Op: "get post", Status: http.StatusNotFound, Err: backend.ErrNotFound}
	}

	return rows[0].AuthorID, nil
}

// DeletePost asks for the deleted rows back: row level security silently
// filters rows the caller may not delete, and an empty answer is the only
// sign of that.
func (c *Client) DeletePost(ctx context.Context, token string, id model.ID) error {
	var rows []struct {
		ID model.ID `json:"id"`
	}
	err := c.do(ctx, request{
		op:     "delete post",
		method: http.MethodDelete,
		path:   c.table(c.tables.Posts),
		query: url.Values{
			"id":     {eq(id.String())},
			"select": {"id"},
		},
		token:  token,
		prefer: preferRepresentation,
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &backend.RemoteFailure{Op: "delete post", Status: http.StatusNotFound, Message: "no se eliminó ninguna fila", Err: backend.ErrNotFound}
	}

	return nil
}
