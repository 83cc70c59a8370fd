package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ghaggin/feed/internal/model"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// tokenResponse is what GoTrue answers for both sign in and sign up. A sign
// up that still needs confirmation only carries the user at the top level.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         *model.User `json:"user"`
	ID           string      `json:"id"`
}

func (c *Client) session(t *tokenResponse) *model.Session {
	s := &model.Session{
		UserID:       t.ID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    c.expiry(t.ExpiresIn),
	}
	if t.User != nil {
		s.UserID = t.User.ID
	}
	return s
}

func (c *Client) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	var u model.User
	err := c.do(ctx, request{
		op:     "get user",
		method: http.MethodGet,
		path:   authPath + "/user",
		token:  token,
	}, &u)
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, nil
	}

	return &u, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	var t tokenResponse
	err := c.do(ctx, request{
		op:     "sign in",
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   credentials{Email: email, Password: password},
	}, &t)
	if err != nil {
		return nil, err
	}

	return c.session(&t), nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	var t tokenResponse
	err := c.do(ctx, request{
		op:     "sign up",
		method: http.MethodPost,
		path:   authPath + "/signup",
		body:   credentials{Email: email, Password: password},
	}, &t)
	if err != nil {
		return nil, err
	}

	return c.session(&t), nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*model.Session, error) {
	var t tokenResponse
	err := c.do(ctx, request{
		op:     "refresh session",
		method: http.MethodPost,
		path:   authPath + "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   refreshRequest{RefreshToken: refreshToken},
	}, &t)
	if err != nil {
		return nil, err
	}

	return c.session(&t), nil
}

// SignOut treats a token the backend no longer knows as already signed out.
func (c *Client) SignOut(ctx context.Context, token string) error {
	err := c.do(ctx, request{
		op:     "sign out",
		method: http.MethodPost,
		path:   authPath + "/logout",
		token:  token,
	}, nil)
	switch statusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil
	}
	return err
}
